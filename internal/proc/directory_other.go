//go:build !linux && !darwin && !windows

package proc

type unsupportedDirectory struct{}

func NewDirectory() Directory {
	return unsupportedDirectory{}
}

func (unsupportedDirectory) List() ([]Info, error) {
	return nil, ErrUnsupported
}

func (unsupportedDirectory) ResolveExecutable(pid int) (string, error) {
	return "", &ResolveError{PID: pid, Err: ErrUnsupported}
}
