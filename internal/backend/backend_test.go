package backend

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []string{"claude", "claude-api", "gemini"}, reg.Names())

	assert.Equal(t, KindCLI, reg["claude"].Kind)
	assert.Contains(t, reg["claude"].StripEnv, "CLAUDECODE")
	assert.Equal(t, KindAPI, reg["claude-api"].Kind)
}

func TestLoadRegistry(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		reg, err := LoadRegistry("")
		require.NoError(t, err)
		assert.Len(t, reg, 3)
	})

	t.Run("missing file returns defaults", func(t *testing.T) {
		reg, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Len(t, reg, 3)
	})

	t.Run("file merges over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "backends.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
backends:
  llama:
    command: ["ollama", "run", "llama3"]
  claude:
    kind: cli
    command: ["claude", "--print"]
`), 0644))

		reg, err := LoadRegistry(path)
		require.NoError(t, err)

		assert.Equal(t, []string{"ollama", "run", "llama3"}, reg["llama"].Command)
		assert.Equal(t, KindCLI, reg["llama"].Kind, "kind defaults to cli")
		assert.Equal(t, []string{"claude", "--print"}, reg["claude"].Command, "override replaces default")
		assert.Contains(t, reg, "gemini", "untouched defaults survive")
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backends: [not a map"), 0644))

		_, err := LoadRegistry(path)
		assert.Error(t, err)
	})
}

func TestNew(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(reg, "gpt-12", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown backend "gpt-12"`)
		assert.Contains(t, err.Error(), "claude", "error lists known backends")
	})

	t.Run("cli backend", func(t *testing.T) {
		inv, err := New(reg, "claude", "")
		require.NoError(t, err)
		assert.Equal(t, "claude", inv.Name())
		assert.IsType(t, &CLIInvoker{}, inv)
	})

	t.Run("api backend", func(t *testing.T) {
		inv, err := New(reg, "claude-api", "sk-test")
		require.NoError(t, err)
		assert.IsType(t, &APIInvoker{}, inv)
	})

	t.Run("empty command", func(t *testing.T) {
		_, err := New(Registry{"broken": {Kind: KindCLI}}, "broken", "")
		assert.Error(t, err)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := New(Registry{"weird": {Kind: "grpc"}}, "weird", "")
		assert.Error(t, err)
	})
}

func TestCLIInvoker_Check(t *testing.T) {
	t.Run("missing executable", func(t *testing.T) {
		inv := &CLIInvoker{name: "x", recipe: Recipe{Command: []string{"definitely-not-a-real-binary-xyz"}}}
		err := inv.Check()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("present executable", func(t *testing.T) {
		inv := &CLIInvoker{name: "x", recipe: Recipe{Command: []string{"sh"}}}
		assert.NoError(t, inv.Check())
	})
}

func TestAPIInvoker_Check(t *testing.T) {
	reg := DefaultRegistry()

	inv, err := New(reg, "claude-api", "")
	require.NoError(t, err)
	assert.ErrorIs(t, inv.Check(), ErrUnavailable)

	inv, err = New(reg, "claude-api", "sk-test")
	require.NoError(t, err)
	assert.NoError(t, inv.Check())
}

func TestCLIInvoker_Invoke(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	t.Run("captures stdout and exit 0", func(t *testing.T) {
		inv := &CLIInvoker{name: "echo", recipe: Recipe{Command: []string{"sh", "-c", "cat"}}}
		resp := inv.Invoke(context.Background(), "hello prompt", []string{"c1"})

		assert.False(t, resp.Failed())
		assert.Equal(t, "hello prompt", resp.Text, "prompt arrives on stdin")
		assert.Equal(t, "echo", resp.Backend)
		assert.Equal(t, []string{"c1"}, resp.UnitIDs)
		assert.Equal(t, 0, resp.ExitCode)
	})

	t.Run("nonzero exit reports stderr", func(t *testing.T) {
		inv := &CLIInvoker{name: "fail", recipe: Recipe{Command: []string{"sh", "-c", "echo oops >&2; exit 3"}}}
		resp := inv.Invoke(context.Background(), "p", nil)

		assert.True(t, resp.Failed())
		assert.Equal(t, 3, resp.ExitCode)
		assert.Equal(t, "exit 3: oops", resp.Err)
	})

	t.Run("timeout reported as context error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		inv := &CLIInvoker{name: "slow", recipe: Recipe{Command: []string{"sleep", "10"}}}
		resp := inv.Invoke(ctx, "p", nil)

		assert.True(t, resp.Failed())
		assert.Contains(t, resp.Err, "context deadline exceeded")
	})

	t.Run("strips configured env vars", func(t *testing.T) {
		t.Setenv("REVIEWGATE_TEST_STRIP", "1")
		t.Setenv("REVIEWGATE_TEST_KEEP", "1")

		inv := &CLIInvoker{name: "env", recipe: Recipe{
			Command:  []string{"sh", "-c", "env"},
			StripEnv: []string{"REVIEWGATE_TEST_STRIP"},
		}}
		resp := inv.Invoke(context.Background(), "", nil)

		require.False(t, resp.Failed())
		assert.NotContains(t, resp.Text, "REVIEWGATE_TEST_STRIP=")
		assert.Contains(t, resp.Text, "REVIEWGATE_TEST_KEEP=1")
	})
}

func TestStripEnv(t *testing.T) {
	env := []string{"A=1", "B=2", "AB=3"}
	assert.Equal(t, []string{"B=2", "AB=3"}, stripEnv(env, []string{"A"}))
	assert.Equal(t, env, stripEnv(env, nil))
}
