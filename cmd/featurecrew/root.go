// ABOUTME: Root cobra command and the shared configuration loading used by subcommands.
// ABOUTME: Loads .env first, then resolves viper config from flags, environment, an optional file and defaults.
package main

import (
	"fmt"

	"github.com/2389-research/featurecrew/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	envFile string
	cfg     config.Config
}

func newApp() *app {
	return &app{v: config.New()}
}

func newRootCmd() *cobra.Command {
	a := newApp()

	root := &cobra.Command{
		Use:           "featurecrew",
		Short:         "Run a four-agent feature development crew and stream its progress",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (YAML)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

// load binds the given key→flag pairs of cmd and resolves the configuration.
// Binding happens here, for the command actually running, because viper keeps
// one flag per key.
func (a *app) load(cmd *cobra.Command, bindings map[string]string) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	for key, name := range bindings {
		if err := a.v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
