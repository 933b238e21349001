package cli

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/baaaaaaaka/rproxy/internal/config"
	"github.com/baaaaaaaka/rproxy/internal/launcher"
	"github.com/baaaaaaaka/rproxy/internal/proc"
)

type testEnv struct {
	configPath   string
	settingsPath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	return testEnv{
		configPath:   filepath.Join(dir, "profiles.json"),
		settingsPath: filepath.Join(dir, "settings.yaml"),
	}
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"--config", e.configPath, "--settings", e.settingsPath}, args...)
	return runCLI(t, full...)
}

func (e testEnv) store(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.NewStore(e.configPath)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func (e testEnv) writeSettings(t *testing.T, content string) {
	t.Helper()
	if err := os.WriteFile(e.settingsPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

type fakeDirectory struct {
	infos   []proc.Info
	exes    map[int]string
	listErr error
}

func (d fakeDirectory) List() ([]proc.Info, error) { return d.infos, d.listErr }

func (d fakeDirectory) ResolveExecutable(pid int) (string, error) {
	if exe, ok := d.exes[pid]; ok {
		return exe, nil
	}
	return "", &proc.ResolveError{PID: pid, Err: proc.ErrNotFound}
}

func stubDirectory(t *testing.T, d proc.Directory) {
	t.Helper()
	prev := newDirectory
	newDirectory = func() proc.Directory { return d }
	t.Cleanup(func() { newDirectory = prev })
}

type spawnRecorder struct {
	mu   sync.Mutex
	cmds []*exec.Cmd
}

func (r *spawnRecorder) calls() []*exec.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*exec.Cmd(nil), r.cmds...)
}

// stubLauncher replaces process creation with a recorder. A non-nil spawnErr
// makes every spawn fail.
func stubLauncher(t *testing.T, spawnErr error) *spawnRecorder {
	t.Helper()
	rec := &spawnRecorder{}
	prev := newLauncher
	newLauncher = func() *launcher.Launcher {
		return launcher.New(
			launcher.WithBaseEnv(func() []string {
				return []string{"PATH=/usr/bin", "HTTP_PROXY=http://old:1"}
			}),
			launcher.WithSpawn(func(c *exec.Cmd) (int, error) {
				rec.mu.Lock()
				rec.cmds = append(rec.cmds, c)
				rec.mu.Unlock()
				if spawnErr != nil {
					return 0, spawnErr
				}
				return 4242, nil
			}),
		)
	}
	t.Cleanup(func() { newLauncher = prev })
	return rec
}
