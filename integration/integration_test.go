//go:build integration

// Package integration provides integration tests for the actionbar CLI using testscript.
package integration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/jmgilman/actionbar/internal/cmd"
)

// TestMain sets up the testscript environment.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"actionbar": actionbarMain,
	}))
}

// actionbarMain runs the CLI in the test binary's subprocess.
func actionbarMain() int {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// TestScripts runs all testscript files in testdata/scripts.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata/scripts",
		Setup: setupTestEnv,
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"kill_tmux_server": cmdKillTmuxServer,
		},
		Condition: evalCondition,
	})
}

// setupTestEnv configures the test environment with isolated paths.
func setupTestEnv(env *testscript.Env) error {
	testHome := filepath.Join(env.WorkDir, "home")
	configDir := filepath.Join(testHome, ".config", "actionbar")
	tmuxDir := filepath.Join(env.WorkDir, "tmux")

	for _, dir := range []string{configDir, tmuxDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	env.Setenv("HOME", testHome)
	env.Setenv("XDG_CONFIG_HOME", filepath.Join(testHome, ".config"))
	// Private tmux server per script, never the developer's session.
	env.Setenv("TMUX_TMPDIR", tmuxDir)
	env.Setenv("TMUX", "")
	if path := os.Getenv("PATH"); path != "" {
		env.Setenv("PATH", path)
	}

	configContent := fmt.Sprintf(`defaultColor: white
loadNpmCommands: true
host: shell
shell: posix
logDir: %s
`, filepath.Join(env.WorkDir, "logs"))

	// Scripts may ship their own global config.
	configPath := filepath.Join(configDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// evalCondition evaluates custom conditions for testscript.
func evalCondition(cond string) (bool, error) {
	switch cond {
	case "tmux":
		_, err := exec.LookPath("tmux")
		return err == nil, nil
	case "linux":
		return runtime.GOOS == "linux", nil
	case "darwin":
		return runtime.GOOS == "darwin", nil
	default:
		return false, fmt.Errorf("unknown condition: %s", cond)
	}
}

// cmdKillTmuxServer stops the script's private tmux server.
func cmdKillTmuxServer(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("kill_tmux_server does not support negation")
	}

	c := exec.Command("tmux", "kill-server")
	c.Env = append(os.Environ(), "TMUX_TMPDIR="+ts.Getenv("TMUX_TMPDIR"), "TMUX=")
	// Best-effort cleanup, ignore errors
	_ = c.Run()
}
