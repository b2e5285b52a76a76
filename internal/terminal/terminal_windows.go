//go:build windows

package terminal

import (
	"os"
	"os/signal"
	"sync"
)

// setupSignalReraising sets up signal handling that cleans up terminal state.
// On Windows, we don't re-raise the signal as syscall.Kill is not available.
func setupSignalReraising(sigChan chan os.Signal, cleanupOnce *sync.Once, doCleanup func()) {
	go func() {
		sig := <-sigChan

		cleanupOnce.Do(doCleanup)
		// stop notifications and restore default behavior for this signal
		signal.Stop(sigChan)
		signal.Reset(sig)
		// On Windows, we cannot re-raise the signal using syscall.Kill,
		// so we just clean up and let the signal handler exit normally.
	}()
}
