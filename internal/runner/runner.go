// Package runner executes external tools as child processes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	apperrors "github.com/savaki/stagectl/internal/errors"
)

// Runner executes external commands. Run inherits standard streams and only
// observes the exit status; Output captures stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// ChildProcessError reports a command that could not be started or exited non-zero
type ChildProcessError struct {
	Command  string
	ExitCode int
	Err      error
}

func (e *ChildProcessError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ChildProcessError) Unwrap() error {
	return e.Err
}

func (e *ChildProcessError) Is(target error) bool {
	return target == apperrors.ErrChildProcess
}

// Exec runs commands with os/exec
type Exec struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Env    []string
}

// New returns an Exec wired to the current process's standard streams
func New() *Exec {
	return &Exec{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (r *Exec) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	if err := cmd.Run(); err != nil {
		return wrap(name, args, err)
	}
	return nil
}

func (r *Exec) Output(ctx context.Context, name string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	if err := cmd.Run(); err != nil {
		perr := wrap(name, args, err)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			perr.Err = fmt.Errorf("%w: %s", perr.Err, msg)
		}
		return "", perr
	}

	return strings.TrimSpace(stdout.String()), nil
}

func wrap(name string, args []string, err error) *ChildProcessError {
	perr := &ChildProcessError{
		Command: Join(name, args...),
		Err:     err,
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		perr.ExitCode = exitErr.ExitCode()
	}
	return perr
}

// Split breaks a configured command such as "npx cdk" into name and leading args
func Split(command string) (string, []string) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// Join renders a command line for logs
func Join(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}
