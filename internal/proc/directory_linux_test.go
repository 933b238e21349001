//go:build linux

package proc

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
)

type fakeProc struct {
	pid  int
	comm string
	stat string
	exe  string
}

func newFakeProcRoot(t *testing.T, procs ...fakeProc) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range procs {
		dir := filepath.Join(root, strconv.Itoa(p.pid))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if p.comm != "" {
			if err := os.WriteFile(filepath.Join(dir, "comm"), []byte(p.comm+"\n"), 0o644); err != nil {
				t.Fatalf("write comm: %v", err)
			}
		}
		if p.stat != "" {
			if err := os.WriteFile(filepath.Join(dir, "stat"), []byte(p.stat), 0o644); err != nil {
				t.Fatalf("write stat: %v", err)
			}
		}
		if p.exe != "" {
			if err := os.Symlink(p.exe, filepath.Join(dir, "exe")); err != nil {
				t.Fatalf("symlink exe: %v", err)
			}
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "sys"), 0o755); err != nil {
		t.Fatalf("mkdir sys: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "uptime"), []byte("1 1\n"), 0o644); err != nil {
		t.Fatalf("write uptime: %v", err)
	}
	return root
}

func TestLinuxDirectoryList(t *testing.T) {
	root := newFakeProcRoot(t,
		fakeProc{pid: 300, comm: "zsh", exe: "/usr/bin/zsh"},
		fakeProc{pid: 2, comm: "kthreadd"},
		fakeProc{pid: 77, stat: "77 (weird (name)) S 1 77 77 0", exe: "/opt/app/weird"},
		fakeProc{pid: 12, comm: "Bash", exe: "/bin/bash (deleted)"},
	)
	// A pid directory that has lost its files (process exited mid-walk).
	if err := os.MkdirAll(filepath.Join(root, "999"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	infos, err := linuxDirectory{root: root}.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []Info{
		{PID: 12, Name: "Bash", Executable: "/bin/bash"},
		{PID: 2, Name: "kthreadd"},
		{PID: 77, Name: "weird (name)", Executable: "/opt/app/weird"},
		{PID: 300, Name: "zsh", Executable: "/usr/bin/zsh"},
	}
	if len(infos) != len(want) {
		t.Fatalf("got %d processes, want %d: %#v", len(infos), len(want), infos)
	}
	for i := range want {
		if infos[i] != want[i] {
			t.Fatalf("infos[%d]=%#v want %#v", i, infos[i], want[i])
		}
	}
}

func TestLinuxDirectoryResolve(t *testing.T) {
	root := newFakeProcRoot(t,
		fakeProc{pid: 300, comm: "zsh", exe: "/usr/bin/zsh"},
		fakeProc{pid: 2, comm: "kthreadd"},
	)
	d := linuxDirectory{root: root}

	exe, err := d.ResolveExecutable(300)
	if err != nil || exe != "/usr/bin/zsh" {
		t.Fatalf("ResolveExecutable(300)=%q,%v", exe, err)
	}

	if _, err := d.ResolveExecutable(4242); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale pid, got %v", err)
	}
	if _, err := d.ResolveExecutable(2); !errors.Is(err, ErrNoExecutable) {
		t.Fatalf("expected ErrNoExecutable for kernel thread, got %v", err)
	}
	if _, err := d.ResolveExecutable(0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for pid 0, got %v", err)
	}

	// A fresh List still works after a failed resolve.
	if infos, err := d.List(); err != nil || len(infos) != 2 {
		t.Fatalf("List after failed resolve: %#v, %v", infos, err)
	}
}

func TestLinuxDirectoryListMissingRoot(t *testing.T) {
	d := linuxDirectory{root: filepath.Join(t.TempDir(), "missing")}
	if _, err := d.List(); err == nil {
		t.Fatalf("expected error for missing proc root")
	}
}

func TestNewDirectoryFindsSelf(t *testing.T) {
	d := NewDirectory()

	infos, err := d.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	self := os.Getpid()
	found := false
	for _, info := range infos {
		if info.PID == self {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("own pid %d missing from snapshot of %d processes", self, len(infos))
	}

	exe, err := d.ResolveExecutable(self)
	if err != nil {
		t.Fatalf("ResolveExecutable(self): %v", err)
	}
	want, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	if exe != want {
		t.Fatalf("ResolveExecutable(self)=%q want %q", exe, want)
	}
}

func TestNewDirectoryStalePid(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 0")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	pid := cmd.Process.Pid
	if err := cmd.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	if _, err := NewDirectory().ResolveExecutable(pid); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for exited pid %d, got %v", pid, err)
	}
}
