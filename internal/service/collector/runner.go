// Package collector invokes the external codebase collector executable and
// loads its consolidated output into the context store.
package collector

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/mkessel/prompter/backend/internal/service/contextstore"
)

// Runner shells out to the collector tool and refreshes the codebase blob.
type Runner struct {
	Script     string
	Dir        string
	OutputPath string
	Contexts   *contextstore.Store
}

// Run executes the collector against the configured directory, reads the
// deposited output file and replaces the codebase context.
func (r *Runner) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Script, r.Dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("collector command failed: %w (output: %s)", err, out)
	}

	content, err := os.ReadFile(r.OutputPath)
	if err != nil {
		return fmt.Errorf("collector output %q not readable: %w", r.OutputPath, err)
	}

	r.Contexts.SetCodebaseContext(string(content))
	log.Printf("[collector] codebase context refreshed, %d bytes", len(content))
	return nil
}
