// Package protocol defines the contract between the wslrun shim and the
// capability that launches a command inside a WSL distribution: what is
// sent (Request) and how the result maps to a process exit code.
package protocol

import "fmt"

// Process exit codes produced by wslrun itself. Any other code is the exit
// code of the command that ran inside the distribution.
const (
	ExitSuccess = 0
	ExitFailure = -1
)

// Request describes one interactive launch.
type Request struct {
	Distribution        string `json:"distribution"`
	Command             string `json:"command"`
	UseCurrentDirectory bool   `json:"use_current_directory"`
}

// HRESULT is the status returned by the launch entry point.
type HRESULT uint32

// Failed reports whether the severity bit is set.
func (hr HRESULT) Failed() bool {
	return int32(hr) < 0
}

func (hr HRESULT) String() string {
	return fmt.Sprintf("%08x", uint32(hr))
}

// Common HRESULT values.
const (
	S_OK         HRESULT = 0x00000000
	E_FAIL       HRESULT = 0x80004005
	E_INVALIDARG HRESULT = 0x80070057
)

// LaunchError reports a launch whose HRESULT denotes failure.
type LaunchError struct {
	HRESULT HRESULT
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch returned HRESULT %s", e.HRESULT)
}

// ExitCode turns the inner command's exit code into the exit code of this
// process. The full 32 bits are kept; on Windows os.Exit hands them to
// ExitProcess unchanged.
func ExitCode(inner uint32) int {
	return int(inner)
}
