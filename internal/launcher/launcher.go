// Package launcher starts an executable with proxy variables added to its
// environment. The child is detached: it is not waited for, its output is
// not captured, and it is not tracked after a successful start.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/baaaaaaaka/rproxy/internal/config"
	"github.com/baaaaaaaka/rproxy/internal/env"
)

type Request struct {
	Executable string
	Args       []string
	Config     config.ProxyConfig
	// Dir is the child's working directory. Empty means the executable's directory.
	Dir string
}

type Handle struct {
	PID        int
	Executable string
	ProxyURL   string
}

// SpawnError reports a launch that did not produce a process.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

var errNoExecutable = errors.New("no executable path given")

// SpawnFunc starts cmd and returns the child's pid.
type SpawnFunc func(cmd *exec.Cmd) (int, error)

type Launcher struct {
	baseEnv func() []string
	spawn   SpawnFunc
}

type Option func(*Launcher)

// WithBaseEnv sets the environment the overlay is applied to. Default: os.Environ.
func WithBaseEnv(fn func() []string) Option {
	return func(l *Launcher) { l.baseEnv = fn }
}

func WithSpawn(fn SpawnFunc) Option {
	return func(l *Launcher) { l.spawn = fn }
}

func New(opts ...Option) *Launcher {
	l := &Launcher{
		baseEnv: os.Environ,
		spawn:   spawnDetached,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Command builds the child command without starting it.
func (l *Launcher) Command(req Request) (*exec.Cmd, error) {
	if req.Executable == "" {
		return nil, &SpawnError{Executable: req.Executable, Err: errNoExecutable}
	}
	if err := req.Config.Validate(); err != nil {
		return nil, &SpawnError{Executable: req.Executable, Err: err}
	}

	// A relative path would be resolved against Dir by the OS.
	path, err := filepath.Abs(req.Executable)
	if err != nil {
		return nil, &SpawnError{Executable: req.Executable, Err: err}
	}

	c := &exec.Cmd{
		Path: path,
		Args: append([]string{path}, req.Args...),
		Env:  env.WithProxy(l.baseEnv(), req.Config),
		Dir:  req.Dir,
	}
	if c.Dir == "" {
		c.Dir = filepath.Dir(path)
	}
	return c, nil
}

func (l *Launcher) Launch(req Request) (Handle, error) {
	c, err := l.Command(req)
	if err != nil {
		return Handle{}, err
	}

	pid, err := l.spawn(c)
	if err != nil {
		return Handle{}, &SpawnError{Executable: req.Executable, Err: err}
	}
	return Handle{PID: pid, Executable: req.Executable, ProxyURL: req.Config.URL()}, nil
}

func spawnDetached(c *exec.Cmd) (int, error) {
	c.Stdin = nil
	c.Stdout = nil
	c.Stderr = nil
	c.SysProcAttr = detachAttr()

	if err := c.Start(); err != nil {
		return 0, err
	}
	pid := c.Process.Pid
	_ = c.Process.Release()
	return pid, nil
}
