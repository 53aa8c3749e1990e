// ABOUTME: The watch command: follows a running server's event stream in an inline terminal view.
package main

import (
	"errors"
	"fmt"

	"github.com/2389-research/featurecrew/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch crew progress on a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := tui.Dial(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer conn.Close()

			p := tea.NewProgram(tui.NewWatchModel(conn, url), tea.WithContext(cmd.Context()))
			final, err := p.Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			m, ok := final.(tui.WatchModel)
			if !ok || !m.Done() {
				return nil
			}
			if m.Err() != nil {
				return fmt.Errorf("event stream closed: %w", m.Err())
			}
			if !m.Success() {
				return errors.New("crew failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8000/ws", "server WebSocket URL")
	return cmd
}
