// Package pac shells out to the Power Platform CLI to enumerate the
// environments the signed-in user can reach.
package pac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"

	"github.com/davwright/XB-DataverseTools/internal/constants"
	"github.com/davwright/XB-DataverseTools/pkg/dataverse"
)

// Runner executes an external command and returns its stdout. Split out
// so tests can stub the pac binary.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client lists Power Platform environments via `pac admin list --json`.
type Client struct {
	run Runner
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the command runner. Intended for tests.
func WithRunner(run Runner) Option {
	return func(c *Client) {
		c.run = run
	}
}

// NewClient creates a pac CLI client.
func NewClient(opts ...Option) *Client {
	client := &Client{run: execRunner}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ListEnvironments returns the environments reported by the pac CLI.
func (c *Client) ListEnvironments(ctx context.Context) ([]dataverse.Environment, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.PacCommandTimeout)
	defer cancel()

	output, err := c.run(ctx, "pac", "admin", "list", "--json")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, constants.ErrPacNotFound
		}

		return nil, fmt.Errorf("%w: %w", constants.ErrPacListFailed, err)
	}

	var environments []dataverse.Environment

	err = json.Unmarshal(output, &environments)
	if err != nil {
		return nil, fmt.Errorf("parsing pac output: %w", err)
	}

	return environments, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	output, err := cmd.Output()
	if err != nil {
		exitErr := &exec.ExitError{}
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, exitErr.Stderr)
		}

		return nil, err
	}

	return output, nil
}
