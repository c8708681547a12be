package shim

import (
	"os"
	"os/signal"
)

// catchInterrupts keeps Ctrl+C from ending wslrun while a command runs.
// The console delivers the interrupt to the command as well, and the
// command's exit code is what wslrun reports.
func catchInterrupts() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
