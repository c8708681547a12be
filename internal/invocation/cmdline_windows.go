//go:build windows

package invocation

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// Raw returns the command line of the current process exactly as Windows
// handed it over.
func Raw() string {
	return windows.UTF16PtrToString(windows.GetCommandLine())
}

// Fields splits a command line into arguments following the
// CommandLineToArgvW rules.
func Fields(raw string) ([]string, error) {
	args, err := windows.DecomposeCommandLine(raw)
	if err != nil {
		return nil, fmt.Errorf("decompose command line: %w", err)
	}
	return args, nil
}
