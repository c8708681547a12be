//go:build !windows

package launcher

import (
	"errors"

	"github.com/charmbracelet/log"
)

var errNotWindows = errors.New(DLLName + " is only available on windows")

func openWSLAPI(*log.Logger) (Launcher, error) {
	return nil, errNotWindows
}
