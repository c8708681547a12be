//go:build windows

package launcher

import (
	"context"
	"fmt"
	"syscall"
	"unsafe"

	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

const launchProcName = "WslLaunchInteractive"

// wslAPI holds wslapi.dll and the address of WslLaunchInteractive.
type wslAPI struct {
	module windows.Handle
	proc   uintptr
	logger *log.Logger
}

func openWSLAPI(logger *log.Logger) (*wslAPI, error) {
	module, err := windows.LoadLibraryEx(DLLName, 0, windows.LOAD_LIBRARY_SEARCH_SYSTEM32)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", DLLName, err)
	}

	proc, err := windows.GetProcAddress(module, launchProcName)
	if err != nil {
		_ = windows.FreeLibrary(module)
		return nil, fmt.Errorf("find %s in %s: %w", launchProcName, DLLName, err)
	}

	logger.Debug("loaded launch capability", "module", DLLName, "proc", launchProcName)
	return &wslAPI{module: module, proc: proc, logger: logger}, nil
}

// Launch calls
//
//	HRESULT WslLaunchInteractive(PCWSTR distributionName, PCWSTR command,
//	                             BOOL useCurrentWorkingDirectory, DWORD *exitCode)
func (w *wslAPI) Launch(ctx context.Context, req protocol.Request) (uint32, error) {
	distribution, err := windows.UTF16PtrFromString(req.Distribution)
	if err != nil {
		w.logger.Debug("invalid distribution name", "err", err)
		return 0, &protocol.LaunchError{HRESULT: protocol.E_INVALIDARG}
	}
	command, err := windows.UTF16PtrFromString(req.Command)
	if err != nil {
		w.logger.Debug("invalid command", "err", err)
		return 0, &protocol.LaunchError{HRESULT: protocol.E_INVALIDARG}
	}

	var useCwd uintptr
	if req.UseCurrentDirectory {
		useCwd = 1
	}

	var exitCode uint32
	r1, _, _ := syscall.SyscallN(w.proc,
		uintptr(unsafe.Pointer(distribution)),
		uintptr(unsafe.Pointer(command)),
		useCwd,
		uintptr(unsafe.Pointer(&exitCode)),
	)

	hr := protocol.HRESULT(r1)
	if hr.Failed() {
		return 0, &protocol.LaunchError{HRESULT: hr}
	}
	return exitCode, nil
}

func (w *wslAPI) Close() error {
	return windows.FreeLibrary(w.module)
}
