// Package linkset manages the hard links that let one wslrun binary answer
// to many command names. Every link lives beside the binary and carries the
// executable extension so the shell can run it.
package linkset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"wslrun/internal/failure"

	"github.com/charmbracelet/log"
)

// ExecutableExt is appended to link names that do not already end in it.
const ExecutableExt = ".exe"

// Linker creates links to Executable in its own directory.
type Linker struct {
	executable string
	logger     *log.Logger
}

// NewLinker creates a Linker for the binary at executable.
func NewLinker(executable string, logger *log.Logger) *Linker {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Linker{
		executable: executable,
		logger:     logger.WithPrefix("linkset"),
	}
}

// Dir returns the directory links are created in.
func (l *Linker) Dir() string {
	return filepath.Dir(l.executable)
}

// Create adds a hard link named name (plus ExecutableExt if missing) next
// to the binary and returns its path.
func (l *Linker) Create(name string) (string, error) {
	if err := validateLinkName(name); err != nil {
		return "", failure.Wrap(err, failure.KindLinkRejected, failure.SiteLinkName,
			"Invalid link name: %s", name)
	}

	linkPath := filepath.Join(l.Dir(), LinkName(name))
	if err := os.Link(l.executable, linkPath); err != nil {
		return "", failure.Wrap(err, failure.KindLinkFailed, failure.SiteLinkCreate,
			"Failed to create link %s. (error: %s)", linkPath, errorCode(err))
	}

	l.logger.Info("created link", "link", linkPath, "target", l.executable)
	return linkPath, nil
}

// LinkName returns name with ExecutableExt appended unless its extension
// already matches, ignoring case.
func LinkName(name string) string {
	if strings.EqualFold(filepath.Ext(name), ExecutableExt) {
		return name
	}
	return name + ExecutableExt
}

// validateLinkName rejects names that do not denote a new entry in the
// binary's own directory.
func validateLinkName(name string) error {
	if name == "" {
		return fmt.Errorf("link name cannot be empty")
	}
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("link name cannot contain null bytes")
	}
	if strings.ContainsAny(name, `/\:`) || filepath.VolumeName(name) != "" || filepath.Base(name) != name {
		return fmt.Errorf("link name %q must not contain a path", name)
	}
	switch name {
	case ".", "..":
		return fmt.Errorf("link name cannot be %q", name)
	}
	return nil
}

// errorCode extracts the OS error number from a link error. On Windows this
// is the Win32 error code.
func errorCode(err error) string {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return fmt.Sprintf("%d", uint32(errno))
	}
	return err.Error()
}
