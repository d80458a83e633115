package engine

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
)

// newRunID generates a ULID for a saved run directory. ULIDs sort by
// creation time, so saved runs list chronologically.
func newRunID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// SaveReview writes each backend's raw response and the aggregate JSON to a
// ULID-named directory under dir. Returns the created directory.
func (e *Engine) SaveReview(run *ReviewRun, dir string) (string, error) {
	out := filepath.Join(dir, newRunID())
	if err := os.MkdirAll(out, 0755); err != nil {
		return "", fmt.Errorf("create save directory: %w", err)
	}

	for name, resp := range run.Responses {
		path := filepath.Join(out, name+".raw.md")
		if err := os.WriteFile(path, []byte(resp.Text), 0644); err != nil {
			return "", fmt.Errorf("save raw response: %w", err)
		}
	}

	if err := writeAggregate(out, run); err != nil {
		return "", err
	}
	e.ui.Info("Saved to %s/", out)
	return out, nil
}

// SaveRefRun writes per-backend per-reference raw responses and the
// aggregate JSON to a ULID-named directory under dir.
func (e *Engine) SaveRefRun(run *RefRun, dir string) (string, error) {
	out := filepath.Join(dir, "check-refs-"+newRunID())
	if err := os.MkdirAll(out, 0755); err != nil {
		return "", fmt.Errorf("create save directory: %w", err)
	}

	for name, byRef := range run.Responses {
		backendDir := filepath.Join(out, name)
		if err := os.MkdirAll(backendDir, 0755); err != nil {
			return "", fmt.Errorf("create backend directory: %w", err)
		}
		for refKey, resp := range byRef {
			path := filepath.Join(backendDir, "ref-"+refKey+".md")
			if err := os.WriteFile(path, []byte(resp.Text), 0644); err != nil {
				return "", fmt.Errorf("save raw response: %w", err)
			}
		}
	}

	if err := writeAggregate(out, run); err != nil {
		return "", err
	}
	e.ui.Info("Saved to %s/", out)
	return out, nil
}

func writeAggregate(dir string, run any) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal aggregate: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "aggregate.json"), data, 0644); err != nil {
		return fmt.Errorf("save aggregate: %w", err)
	}
	return nil
}
