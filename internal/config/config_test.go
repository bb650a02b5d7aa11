package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGlobal(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, ".config", "actionbar")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func writeLocal(t *testing.T, workspace, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(workspace, LocalConfigFile), []byte(content), 0o644))
}

func TestLoader_Load_CreatesDefaultIfMissing(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader("")
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultColor, cfg.DefaultColor)
	assert.Empty(t, cfg.ReloadButton)
	assert.True(t, cfg.LoadNpmCommands)
	assert.False(t, cfg.InheritGlobalCommands)
	assert.Empty(t, cfg.Commands)
	assert.Equal(t, "tmux", cfg.Host)
	assert.Equal(t, []string{"package.json"}, cfg.NpmManifests)

	_, err = os.Stat(loader.Path())
	assert.NoError(t, err)
}

func TestLoader_Load_ReadsExistingConfig(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	writeGlobal(t, tmpHome, `
defaultColor: green
reloadButton: "↻"
loadNpmCommands: false
logDir: ~/logs
commands:
  - name: Run Tests
    command: go test ./...
    color: yellow
    singleInstance: true
  - name: Build
    command: make
    openOwnTerminal: false
    closeOnSuccess: true
    useVsCodeApi: false
    args: [a, b]
`)

	loader, err := NewLoader("")
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "green", cfg.DefaultColor)
	assert.Equal(t, "↻", cfg.ReloadButton)
	assert.False(t, cfg.LoadNpmCommands)
	assert.Equal(t, filepath.Join(tmpHome, "logs"), cfg.LogDir)

	require.Len(t, cfg.Commands, 2)
	assert.Equal(t, "Run Tests", cfg.Commands[0].Name)
	assert.Equal(t, "go test ./...", cfg.Commands[0].Command)
	assert.Equal(t, "yellow", cfg.Commands[0].Color)
	assert.True(t, cfg.Commands[0].SingleInstance)
	assert.True(t, cfg.Commands[0].OwnTerminal())

	assert.False(t, cfg.Commands[1].OwnTerminal())
	assert.True(t, cfg.Commands[1].CloseOnSuccess)
	assert.Equal(t, []string{"a", "b"}, cfg.Commands[1].Args)
}

func TestLoader_Load_WorkspaceOverlay(t *testing.T) {
	global := `
defaultColor: green
commands:
  - name: Global
    command: echo global
`

	t.Run("local commands replace global commands", func(t *testing.T) {
		tmpHome := t.TempDir()
		t.Setenv("HOME", tmpHome)
		ws := t.TempDir()
		writeGlobal(t, tmpHome, global)
		writeLocal(t, ws, `
defaultColor: red
commands:
  - name: Local
    command: echo local
`)

		loader, err := NewLoader(ws)
		require.NoError(t, err)
		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, "red", cfg.DefaultColor)
		require.Len(t, cfg.Commands, 1)
		assert.Equal(t, "Local", cfg.Commands[0].Name)
		require.Len(t, cfg.GlobalCommands, 1)
		assert.True(t, cfg.HasLocalCommands)
		assert.Equal(t, []string{"Local"}, specNames(cfg.Specs()))
	})

	t.Run("inherit prepends global commands", func(t *testing.T) {
		tmpHome := t.TempDir()
		t.Setenv("HOME", tmpHome)
		ws := t.TempDir()
		writeGlobal(t, tmpHome, global)
		writeLocal(t, ws, `
inheritGlobalCommands: true
commands:
  - name: Local
    command: echo local
`)

		loader, err := NewLoader(ws)
		require.NoError(t, err)
		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, []string{"Global", "Local"}, specNames(cfg.Specs()))
	})

	t.Run("inherit without local commands does not duplicate", func(t *testing.T) {
		tmpHome := t.TempDir()
		t.Setenv("HOME", tmpHome)
		ws := t.TempDir()
		writeGlobal(t, tmpHome, global)
		writeLocal(t, ws, "inheritGlobalCommands: true\n")

		loader, err := NewLoader(ws)
		require.NoError(t, err)
		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.False(t, cfg.HasLocalCommands)
		assert.Equal(t, []string{"Global"}, specNames(cfg.Specs()))
	})

	t.Run("relative envFile resolves against workspace", func(t *testing.T) {
		tmpHome := t.TempDir()
		t.Setenv("HOME", tmpHome)
		ws := t.TempDir()
		writeGlobal(t, tmpHome, global)
		writeLocal(t, ws, "envFile: .env\n")

		loader, err := NewLoader(ws)
		require.NoError(t, err)
		cfg, err := loader.Load()
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(ws, ".env"), cfg.EnvFile)
	})
}

func specNames(specs []CommandSpec) []string {
	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}
	return names
}

func TestLoader_Load_EnvVarOverride(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("ACTIONBAR_HOST", "shell")
	t.Setenv("ACTIONBAR_DEFAULT_COLOR", "blue")

	loader, err := NewLoader("")
	require.NoError(t, err)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "shell", cfg.Host)
	assert.Equal(t, "blue", cfg.DefaultColor)
}

func TestLoader_Path(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	ws := t.TempDir()

	loader, err := NewLoader(ws)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmpHome, ".config", "actionbar", "config.yaml"), loader.Path())
	assert.Equal(t, filepath.Join(ws, ".actionbar.yaml"), loader.LocalPath())
}

func TestLoader_Get(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader("")
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	t.Run("valid key returns value", func(t *testing.T) {
		val, err := loader.Get("defaultColor")
		require.NoError(t, err)
		assert.Equal(t, DefaultColor, val)
	})

	t.Run("invalid key returns error", func(t *testing.T) {
		_, err := loader.Get("invalid.key")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})
}

func TestLoader_Set(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	loader, err := NewLoader("")
	require.NoError(t, err)

	_, err = loader.Load()
	require.NoError(t, err)

	t.Run("sets valid key", func(t *testing.T) {
		err := loader.Set("host", "shell")
		require.NoError(t, err)

		val, err := loader.Get("host")
		require.NoError(t, err)
		assert.Equal(t, "shell", val)

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, "shell", cfg.Host)
	})

	t.Run("sets boolean key", func(t *testing.T) {
		require.NoError(t, loader.Set("strictVariables", "true"))

		cfg, err := loader.Load()
		require.NoError(t, err)
		assert.True(t, cfg.StrictVariables)
	})

	t.Run("rejects invalid key", func(t *testing.T) {
		err := loader.Set("invalid.key", "value")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects list key", func(t *testing.T) {
		err := loader.Set("commands", "value")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("rejects invalid host", func(t *testing.T) {
		err := loader.Set("host", "screen")
		assert.ErrorIs(t, err, ErrInvalidHost)
	})

	t.Run("rejects invalid shell", func(t *testing.T) {
		err := loader.Set("shell", "fish")
		assert.ErrorIs(t, err, ErrInvalidShell)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{
			Host:     "tmux",
			Shell:    "posix",
			Commands: []CommandSpec{{Name: "Build", Command: "make"}},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("command without name", func(t *testing.T) {
		cfg := &Config{Commands: []CommandSpec{{Command: "make"}}}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Name")
	})

	t.Run("command without command is allowed", func(t *testing.T) {
		cfg := &Config{Commands: []CommandSpec{{Name: "Empty"}}}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("invalid host", func(t *testing.T) {
		cfg := &Config{Host: "screen"}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Host")
	})

	t.Run("folder without path", func(t *testing.T) {
		cfg := &Config{WorkspaceFolders: []Folder{{Name: "api"}}}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Path")
	})
}

func TestCommandSpec_OwnTerminal(t *testing.T) {
	no := false
	yes := true

	assert.True(t, (&CommandSpec{}).OwnTerminal())
	assert.True(t, (&CommandSpec{OpenOwnTerminal: &yes}).OwnTerminal())
	assert.False(t, (&CommandSpec{OpenOwnTerminal: &no}).OwnTerminal())
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"defaultColor is valid", "defaultColor", nil},
		{"lowercase key is valid", "defaultcolor", nil},
		{"reloadButton is valid", "reloadButton", nil},
		{"loadNpmCommands is valid", "loadNpmCommands", nil},
		{"inheritGlobalCommands is valid", "inheritGlobalCommands", nil},
		{"commands is valid", "commands", nil},
		{"host is valid", "host", nil},
		{"shell is valid", "shell", nil},
		{"workspaceFolders is valid", "workspaceFolders", nil},
		{"internal field is not a key", "GlobalCommands", ErrInvalidKey},
		{"unknown.key returns error", "unknown.key", ErrInvalidKey},
		{"empty key returns error", "", ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoader_expandPath(t *testing.T) {
	tmpHome := "/home/test"

	tests := []struct {
		name      string
		workspace string
		input     string
		expected  string
	}{
		{"expands ~/ prefix", "", "~/foo", filepath.Join(tmpHome, "foo")},
		{"expands ~ alone", "", "~", tmpHome},
		{"preserves absolute path", "/ws", "/absolute/path", "/absolute/path"},
		{"preserves relative path without workspace", "", "relative/path", "relative/path"},
		{"joins relative path to workspace", "/ws", "relative/path", filepath.Join("/ws", "relative", "path")},
		{"keeps empty", "/ws", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := &Loader{homeDir: tmpHome, workspace: tt.workspace}
			assert.Equal(t, tt.expected, loader.expandPath(tt.input))
		})
	}
}
