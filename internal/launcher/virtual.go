package launcher

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// DistroNameEnv is set for commands run by the virtual backend, the way WSL
// sets it inside a distribution.
const DistroNameEnv = "WSL_DISTRO_NAME"

// VirtualLauncher runs commands in-process with a POSIX shell interpreter.
// It is used for development and testing on hosts without WSL.
type VirtualLauncher struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	env    []string
	logger *log.Logger
}

// NewVirtualLauncher creates a virtual launcher wired to the given streams.
func NewVirtualLauncher(stdin io.Reader, stdout, stderr io.Writer, logger *log.Logger) *VirtualLauncher {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &VirtualLauncher{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		env:    os.Environ(),
		logger: logger,
	}
}

// Launch interprets req.Command. Commands that do not parse are reported
// as E_INVALIDARG; interpreter failures other than an exit status as E_FAIL.
func (v *VirtualLauncher) Launch(ctx context.Context, req protocol.Request) (uint32, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(req.Command), req.Distribution)
	if err != nil {
		v.logger.Debug("parse command", "command", req.Command, "err", err)
		return 0, &protocol.LaunchError{HRESULT: protocol.E_INVALIDARG}
	}

	dir, err := v.workDir(req.UseCurrentDirectory)
	if err != nil {
		v.logger.Debug("resolve working directory", "err", err)
		return 0, &protocol.LaunchError{HRESULT: protocol.E_FAIL}
	}

	env := append(append([]string{}, v.env...), DistroNameEnv+"="+req.Distribution)
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(v.stdin, v.stdout, v.stderr),
	)
	if err != nil {
		v.logger.Debug("create interpreter", "err", err)
		return 0, &protocol.LaunchError{HRESULT: protocol.E_FAIL}
	}

	v.logger.Debug("virtual launch", "distribution", req.Distribution, "command", req.Command, "dir", dir)

	err = runner.Run(ctx, prog)
	var status interp.ExitStatus
	switch {
	case err == nil:
		return 0, nil
	case errors.As(err, &status):
		return uint32(status), nil
	default:
		v.logger.Debug("run command", "err", err)
		return 0, &protocol.LaunchError{HRESULT: protocol.E_FAIL}
	}
}

func (v *VirtualLauncher) workDir(useCurrent bool) (string, error) {
	if useCurrent {
		return os.Getwd()
	}
	return os.UserHomeDir()
}

// Close is a no-op; the virtual launcher holds no resources.
func (v *VirtualLauncher) Close() error {
	return nil
}
