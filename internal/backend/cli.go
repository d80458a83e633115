package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/joescharf/reviewgate/internal/models"
)

// CLIInvoker runs a backend's CLI with the prompt piped on stdin.
// Stdin delivery avoids OS argument length limits on large documents.
type CLIInvoker struct {
	name   string
	recipe Recipe
}

func (c *CLIInvoker) Name() string { return c.name }

// Check verifies the executable is on PATH.
func (c *CLIInvoker) Check() error {
	if _, err := exec.LookPath(c.recipe.Command[0]); err != nil {
		return fmt.Errorf("%w: %s not found on PATH", ErrUnavailable, c.recipe.Command[0])
	}
	return nil
}

// Invoke spawns one process for this call. Each invocation is independent;
// there is no shared state between calls.
func (c *CLIInvoker) Invoke(ctx context.Context, prompt string, unitIDs []string) models.RawResponse {
	resp := models.RawResponse{Backend: c.name, UnitIDs: unitIDs}

	cmd := exec.CommandContext(ctx, c.recipe.Command[0], c.recipe.Command[1:]...)
	cmd.Stdin = strings.NewReader(prompt)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = stripEnv(os.Environ(), c.recipe.StripEnv)

	start := time.Now()
	err := cmd.Run()
	resp.Elapsed = time.Since(start)
	resp.Text = stdout.String()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			resp.Err = fmt.Sprintf("%s after %s", ctxErr, resp.Elapsed.Round(time.Millisecond))
			return resp
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			resp.ExitCode = exitErr.ExitCode()
			resp.Err = fmt.Sprintf("exit %d: %s", resp.ExitCode, strings.TrimSpace(stderr.String()))
			return resp
		}
		resp.Err = err.Error()
	}
	return resp
}

// stripEnv removes the named variables from an environment list.
func stripEnv(env, names []string) []string {
	if len(names) == 0 {
		return env
	}
	out := env[:0:0]
	for _, kv := range env {
		drop := false
		for _, name := range names {
			if strings.HasPrefix(kv, name+"=") {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, kv)
		}
	}
	return out
}
