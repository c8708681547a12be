package shim

import (
	"context"
	"errors"

	"wslrun/internal/failure"
	"wslrun/internal/invocation"
	"wslrun/internal/launcher"
	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
)

// launch runs the invoked command in distribution and returns the exit
// code this process should end with.
func launch(ctx context.Context, l launcher.Launcher, distribution string, inv invocation.Invocation, logger *log.Logger) (int, error) {
	req := protocol.Request{
		Distribution:        distribution,
		Command:             inv.Command(),
		UseCurrentDirectory: true,
	}
	logger.Debug("launching", "distribution", req.Distribution, "command", req.Command)

	stop := catchInterrupts()
	defer stop()

	exitCode, err := l.Launch(ctx, req)
	if err != nil {
		hr := protocol.E_FAIL
		var launchErr *protocol.LaunchError
		if errors.As(err, &launchErr) {
			hr = launchErr.HRESULT
		}
		return protocol.ExitFailure, failure.Wrap(err, failure.KindLaunchFailed, failure.SiteLaunch,
			"Failed to launch wsl process. (HRESULT: %s)", hr)
	}

	logger.Debug("command exited", "code", exitCode)
	return protocol.ExitCode(exitCode), nil
}
