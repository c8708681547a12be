// Package shim implements the wslrun entry controller.
//
// The binary looks at the name it was invoked as. Under its own name it is
// an administrative tool that creates links to itself; under any other name
// it forwards "<name> <args>" to the default WSL distribution and exits
// with the exit code of that command.
package shim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"wslrun/internal/audit"
	"wslrun/internal/distro"
	"wslrun/internal/failure"
	"wslrun/internal/invocation"
	"wslrun/internal/launcher"
	"wslrun/internal/linkset"
	"wslrun/internal/settings"
	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
)

// CanonicalName is the invocation name that selects administrative mode.
const CanonicalName = "wslrun"

// Env is everything one invocation reads from or writes to the outside.
type Env struct {
	CommandLine string // raw command line
	Executable  string // path of the running binary
	Stdout      io.Writer
	Stderr      io.Writer
	Settings    settings.Settings
	Registry    distro.Registry

	// OpenLauncher loads the launch capability. Defaults to launcher.Open.
	OpenLauncher func(launcher.Backend, *log.Logger) (launcher.Launcher, error)
	// Setenv changes the process environment. Defaults to os.Setenv.
	Setenv func(key, value string) error
}

// Run executes the shim for the current process and returns the exit code.
func Run() int {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stdout, "Could not locate %s binary. (%v)\n", CanonicalName, err)
		return protocol.ExitFailure
	}

	return RunWith(context.Background(), Env{
		CommandLine: invocation.Raw(),
		Executable:  exe,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Settings:    loadSettings(nil, newLogger(os.Stderr, settings.Defaults().LogLevel)),
		Registry:    distro.NewSystemRegistry(),
	})
}

// loadSettings reads settings through lookup and falls back to the defaults
// when they cannot be read.
func loadSettings(lookup func(string) (string, bool), logger *log.Logger) settings.Settings {
	s, err := settings.Load(lookup)
	if err != nil {
		logger.Warn("using default settings", "err", err)
		return settings.Defaults()
	}
	return s
}

// RunWith executes the shim against env and returns the exit code.
func RunWith(ctx context.Context, env Env) int {
	if env.OpenLauncher == nil {
		env.OpenLauncher = launcher.Open
	}
	if env.Setenv == nil {
		env.Setenv = os.Setenv
	}
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = io.Discard
	}
	logger := newLogger(env.Stderr, env.Settings.LogLevel)

	if env.Settings.ClearPath {
		logger.Debug("clearing PATH before launch")
		if err := env.Setenv("PATH", ""); err != nil {
			logger.Warn("failed to clear PATH", "err", err)
		}
	}

	// Start
	l, err := env.OpenLauncher(env.Settings.Backend, logger)
	if err != nil {
		return report(env.Stdout, logger, err)
	}
	defer l.Close()

	// NameCheck
	inv := invocation.Split(env.CommandLine)
	logger.Debug("invoked", "name", inv.Name, "args", inv.Args)

	if inv.Name == CanonicalName {
		linker := linkset.NewLinker(env.Executable, logger)
		return runAdmin(env.Stdout, env.CommandLine, linker, logger)
	}
	return runDelegated(ctx, env, l, inv, logger)
}

func runDelegated(ctx context.Context, env Env, l launcher.Launcher, inv invocation.Invocation, logger *log.Logger) int {
	auditLog := openAudit(env.Settings.AuditLog, logger)
	defer auditLog.Close()

	entry := audit.Entry{Command: inv.Command()}
	if cwd, err := os.Getwd(); err == nil {
		entry.Cwd = cwd
	}
	defer func() {
		if err := auditLog.Log(entry); err != nil {
			logger.Warn("audit log", "err", err)
		}
	}()

	// Resolve
	resolver := distro.NewResolver(env.Executable, env.Registry, logger)
	distribution, source, err := resolver.Resolve()
	entry.Source = string(source)
	if err != nil {
		entry.ExitCode, entry.Error = protocol.ExitFailure, err.Error()
		return report(env.Stdout, logger, err)
	}
	entry.Distribution = distribution

	// Launch
	started := time.Now()
	code, err := launch(ctx, l, distribution, inv, logger)
	entry.Duration = float64(time.Since(started).Microseconds()) / 1000
	entry.ExitCode = code
	if err != nil {
		entry.Error = err.Error()
		return report(env.Stdout, logger, err)
	}
	return code
}

func openAudit(path string, logger *log.Logger) *audit.Logger {
	a, err := audit.Open(path)
	if err != nil {
		logger.Warn("audit log disabled", "path", path, "err", err)
		a, _ = audit.Open("")
	}
	return a
}

// report prints the one-line message of err and returns the failure exit
// code. The cause, if any, goes to the debug log.
func report(stdout io.Writer, logger *log.Logger, err error) int {
	fmt.Fprintln(stdout, err.Error())
	if cause := errors.Unwrap(err); cause != nil {
		logger.Debug("failure", "kind", failure.KindOf(err), "site", failure.SiteOf(err), "cause", cause)
	}
	return protocol.ExitFailure
}

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix: CanonicalName,
		Level:  level,
	})
}
