// Package launcher provides the capability that runs a command inside a
// WSL distribution: the wslapi backend binds WslLaunchInteractive from
// wslapi.dll at runtime, and the virtual backend interprets the command
// in-process for development and tests.
package launcher

import (
	"context"
	"fmt"
	"os"

	"wslrun/internal/failure"
	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
)

// Launcher runs one interactive command and returns its exit code.
type Launcher interface {
	// Launch blocks until the command exits. A failed launch returns a
	// *protocol.LaunchError.
	Launch(ctx context.Context, req protocol.Request) (uint32, error)
	// Close releases the capability.
	Close() error
}

// Backend selects a Launcher implementation.
type Backend string

const (
	BackendWSLAPI  Backend = "wslapi"
	BackendVirtual Backend = "virtual"
)

// DLLName is the module that provides the launch entry point.
const DLLName = "wslapi.dll"

// ParseBackend validates a backend name. The empty string selects
// BackendWSLAPI.
func ParseBackend(name string) (Backend, error) {
	switch Backend(name) {
	case "", BackendWSLAPI:
		return BackendWSLAPI, nil
	case BackendVirtual:
		return BackendVirtual, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %s or %s)", name, BackendWSLAPI, BackendVirtual)
	}
}

// Open loads the launch capability for backend. A capability that cannot
// be loaded is reported as failure.KindCapabilityUnavailable.
func Open(backend Backend, logger *log.Logger) (Launcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	logger = logger.WithPrefix("launcher")

	switch backend {
	case BackendVirtual:
		logger.Debug("using virtual backend")
		return NewVirtualLauncher(os.Stdin, os.Stdout, os.Stderr, logger), nil
	default:
		l, err := openWSLAPI(logger)
		if err != nil {
			return nil, failure.Wrap(err, failure.KindCapabilityUnavailable, failure.SiteCapabilityLoad,
				"Could not load %s", DLLName)
		}
		return l, nil
	}
}
