// Package main is a minimal embedder of the terminal I/O core: it opens a
// backend via PlatformFactory, draws a static screen, and polls for a quit
// key, demonstrating the control flow spec §2 describes an application
// following. It exists for manual smoke-testing, not as a product of its
// own.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dshills/tuicore/internal/applog"
	"github.com/dshills/tuicore/internal/backend"
	"github.com/dshills/tuicore/internal/cell"
	"github.com/dshills/tuicore/internal/event"
	"github.com/dshills/tuicore/internal/platform"
	"github.com/dshills/tuicore/internal/recovery"
	"github.com/dshills/tuicore/internal/screen"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	result, err := platform.Open(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tuicoredemo: failed to open a terminal backend: %v\n", err)
		return 1
	}
	defer result.Pair.Cleanup.Run()

	watcher := result.Pair.Cleanup.WatchSignals()
	defer watcher.Stop()

	buf := screen.New(result.Width, result.Height, 30)
	drawBanner(buf, result.Backend, result.Capabilities.Colors.String())

	rec := recovery.New(opts.Logger, 3, 50*time.Millisecond)

	if err := rec.Attempt("display", "flush", func() error {
		return result.Pair.Display.Flush(buf)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "tuicoredemo: initial flush failed: %v\n", err)
		return 1
	}

	for {
		ev, err := result.Pair.Input.Poll(time.Now().Add(50 * time.Millisecond))
		if err != nil {
			if rec.Record(err, "input", "poll") == recovery.StrategyEscalate {
				fmt.Fprintf(os.Stderr, "tuicoredemo: input backend failed: %v\n", err)
				return 1
			}
			continue
		}

		if ev == nil {
			continue
		}

		if quit, resized := handleEvent(ev, buf, result); quit {
			return 0
		} else if resized {
			drawBanner(buf, result.Backend, result.Capabilities.Colors.String())
		}

		if err := result.Pair.Display.Flush(buf); err != nil {
			if rec.Record(err, "display", "flush") == recovery.StrategyEscalate {
				fmt.Fprintf(os.Stderr, "tuicoredemo: display backend failed: %v\n", err)
				return 1
			}
		}
	}
}

// handleEvent applies ev to buf, returning whether the caller should quit
// and whether a resize requires the static banner to be redrawn.
func handleEvent(ev event.Event, buf *screen.Buffer, result *platform.Result) (quit, resized bool) {
	switch e := ev.(type) {
	case event.Key:
		if e.Code == event.KeyEscape || (e.Code == event.KeyPrintable && e.Text == "q") {
			return true, false
		}
	case event.Resize:
		buf.Resize(e.Cols, e.Rows)
		return false, true
	case event.Signal:
		if e.Kind == event.SignalInterrupt {
			return true, false
		}
	}
	return false, false
}

func drawBanner(buf *screen.Buffer, b backend.Backend, colors string) {
	buf.Clear(cell.DefaultAttr)
	title := fmt.Sprintf("tuicore demo - backend=%s colors=%s", b, colors)
	attr := cell.NewAttr(cell.Indexed16(7), cell.Default, cell.Bold)
	buf.PutText(2, 1, title, attr)
	buf.PutText(2, 3, "press q or Esc to quit", cell.DefaultAttr)
}

func parseFlags() platform.Options {
	var backendName string
	var logLevel string
	var disableCoalescing bool

	flag.StringVar(&backendName, "backend", "auto", "backend to use: ansi, termios, curses, auto")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&disableCoalescing, "no-coalesce", false, "disable mouse-move/resize event coalescing")
	flag.Parse()

	logger := applog.New(applog.Config{Level: applog.ParseLevel(logLevel)})

	return platform.Options{
		Backend:           backend.ParseBackend(backendName),
		Logger:            logger,
		DisableCoalescing: disableCoalescing,
	}
}
