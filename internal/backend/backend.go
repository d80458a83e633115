package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joescharf/reviewgate/internal/models"
)

// ErrUnavailable marks a backend whose executable or credentials are missing.
// It is fatal for that backend only; other backends proceed.
var ErrUnavailable = errors.New("backend unavailable")

// Kind selects how a backend is invoked.
type Kind string

const (
	KindCLI Kind = "cli"
	KindAPI Kind = "api"
)

// Recipe describes how to invoke one model backend.
type Recipe struct {
	Kind Kind `yaml:"kind"`

	// Command is the argv for a CLI backend. The prompt is always
	// delivered on stdin, never as an argument.
	Command []string `yaml:"command"`

	// Model is the model identifier for an API backend.
	Model string `yaml:"model"`

	// StripEnv lists environment variables removed before spawning a
	// CLI backend (e.g. CLAUDECODE, so the tool can run inside an agent).
	StripEnv []string `yaml:"strip_env"`
}

// Registry maps backend names to invocation recipes. It is passed into the
// engine explicitly; there is no process-wide registry.
type Registry map[string]Recipe

// DefaultRegistry returns the built-in backends.
func DefaultRegistry() Registry {
	return Registry{
		"claude": {
			Kind:     KindCLI,
			Command:  []string{"claude", "-p"},
			StripEnv: []string{"CLAUDECODE"},
		},
		"gemini": {
			// gemini's -p takes a string; empty makes it read stdin.
			Kind:    KindCLI,
			Command: []string{"gemini", "-p", ""},
		},
		"claude-api": {
			Kind:  KindAPI,
			Model: "claude-sonnet-4-5",
		},
	}
}

type registryFile struct {
	Backends map[string]Recipe `yaml:"backends"`
}

// LoadRegistry merges backend definitions from a YAML file over the built-in
// defaults. A missing file is not an error; a malformed one is.
func LoadRegistry(path string) (Registry, error) {
	reg := DefaultRegistry()
	if path == "" {
		return reg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read backends file: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse backends file %s: %w", path, err)
	}
	for name, r := range f.Backends {
		if r.Kind == "" {
			r.Kind = KindCLI
		}
		reg[name] = r
	}
	return reg, nil
}

// Names returns the registered backend names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoker runs a prompt against one backend. Invocation failures that are
// recoverable (timeout, non-zero exit, API error) are reported in the
// returned RawResponse, not as an error.
type Invoker interface {
	Name() string

	// Check verifies the backend can be invoked at all. Returns an error
	// wrapping ErrUnavailable when it cannot.
	Check() error

	// Invoke runs the prompt and returns the raw outcome. unitIDs records
	// which review units the prompt asked about, so the parser can assign
	// conservative defaults on failure.
	Invoke(ctx context.Context, prompt string, unitIDs []string) models.RawResponse
}

// New builds an Invoker for a named backend from the registry. An unknown
// name is a fatal configuration error.
func New(reg Registry, name, apiKey string) (Invoker, error) {
	recipe, ok := reg[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (known: %s)", name, strings.Join(reg.Names(), ", "))
	}
	switch recipe.Kind {
	case KindAPI:
		return newAPIInvoker(name, recipe, apiKey), nil
	case KindCLI, "":
		if len(recipe.Command) == 0 {
			return nil, fmt.Errorf("backend %q has an empty command", name)
		}
		return &CLIInvoker{name: name, recipe: recipe}, nil
	default:
		return nil, fmt.Errorf("backend %q has unknown kind %q", name, recipe.Kind)
	}
}
