//go:build darwin

package proc

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func stubPS(t *testing.T, fn func(args ...string) ([]byte, error)) {
	t.Helper()
	prev := runPS
	runPS = fn
	t.Cleanup(func() { runPS = prev })
}

func TestParsePSLine(t *testing.T) {
	pid, comm, ok := parsePSLine("  512 /Applications/Google Chrome.app/Contents/MacOS/Google Chrome")
	if !ok || pid != 512 || comm != "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome" {
		t.Fatalf("got %d %q %v", pid, comm, ok)
	}
	for _, line := range []string{"", "abc def", "12"} {
		if _, _, ok := parsePSLine(line); ok {
			t.Fatalf("expected %q to be rejected", line)
		}
	}
}

func TestPSDirectoryList(t *testing.T) {
	stubPS(t, func(args ...string) ([]byte, error) {
		return []byte("  1 /sbin/launchd\n 88 zsh\n 40 /usr/bin/Zed Editor\n"), nil
	})

	infos, err := psDirectory{}.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 processes, got %#v", infos)
	}
	if infos[0].Name != "launchd" || infos[0].Executable != "/sbin/launchd" {
		t.Fatalf("unexpected first entry %#v", infos[0])
	}
	if infos[1].Name != "Zed Editor" || infos[2].Name != "zsh" || infos[2].Executable != "" {
		t.Fatalf("unexpected entries %#v", infos)
	}
}

func TestPSDirectoryResolve(t *testing.T) {
	stubPS(t, func(args ...string) ([]byte, error) {
		switch strings.Join(args, " ") {
		case "-ww -p 10 -o comm=":
			return []byte("/usr/bin/vim\n"), nil
		case "-ww -p 11 -o comm=":
			return []byte("kernel_task\n"), nil
		default:
			return nil, &exec.ExitError{}
		}
	})
	d := psDirectory{}

	if exe, err := d.ResolveExecutable(10); err != nil || exe != "/usr/bin/vim" {
		t.Fatalf("ResolveExecutable(10)=%q,%v", exe, err)
	}
	if _, err := d.ResolveExecutable(11); !errors.Is(err, ErrNoExecutable) {
		t.Fatalf("expected ErrNoExecutable, got %v", err)
	}
	if _, err := d.ResolveExecutable(99999999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
