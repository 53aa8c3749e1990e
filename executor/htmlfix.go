// ABOUTME: Cleans up the generated frontend file so it is a bare HTML document.
// ABOUTME: Strips stray leading/trailing periods and anything outside the doctype..</html> span.
package executor

import (
	"fmt"
	"os"
	"strings"
)

const (
	htmlDoctype = "<!DOCTYPE html>"
	htmlClose   = "</html>"
)

// RepairHTML trims s down to the HTML document it contains.
func RepairHTML(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, ".") {
		s = strings.TrimSpace(s[1:])
	}
	for strings.HasSuffix(s, ".") {
		s = strings.TrimSpace(s[:len(s)-1])
	}

	if !strings.HasPrefix(s, htmlDoctype) {
		if i := strings.Index(s, htmlDoctype); i >= 0 {
			s = s[i:]
		}
	}
	if !strings.HasSuffix(s, htmlClose) {
		if i := strings.LastIndex(s, htmlClose); i >= 0 {
			s = s[:i+len(htmlClose)]
		}
	}
	return s
}

// repairHTMLFile rewrites path in place with RepairHTML applied.
func repairHTMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	fixed := RepairHTML(string(data))
	if fixed == string(data) {
		return nil
	}
	if err := os.WriteFile(path, []byte(fixed), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
