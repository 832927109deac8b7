//go:build unix

package platform

import (
	"os"

	"github.com/dshills/tuicore/internal/backend"
	"github.com/dshills/tuicore/internal/capability"
	"github.com/dshills/tuicore/internal/cleanup"
	"github.com/dshills/tuicore/internal/escape"
)

// init registers the termios-raw backend constructor and puts it first in
// the fallback order, mirroring platform_factory_fixed.py's Linux branch:
// direct-syscall I/O outperforms the portable golang.org/x/term path when
// it's available, so it is preferred over plain ANSI on every Unix build.
func init() {
	newTermiosRawBackend = constructTermiosRawBackend
	defaultOrder = []backend.Backend{backend.BackendTermiosRaw, backend.BackendANSI, backend.BackendCurses}
}

func constructTermiosRawBackend(stdin, stdout *os.File, caps capability.Capabilities, stack *cleanup.Stack) (backend.Display, backend.Input, error) {
	display := backend.NewTermiosRawDisplay(stdout, stdin, stack)
	if err := display.Init(caps); err != nil {
		return nil, nil, err
	}
	input := backend.NewTermiosRawInput(int(stdin.Fd()), int(stdout.Fd()), escape.New(), true)
	input.OnResize(display.Resize)
	return display, input, nil
}
