// Package pacing implements the frame-pacing limiter that bounds how often
// the cell grid may be flushed to the terminal, per spec §4.2. Grounded on
// original_source/vindauga/io/fps_limiter.py, translated from its
// Optional[float]-timestamp/time.sleep shape into Go's time.Time and a
// mutex-protected struct usable from concurrent callers (the render loop
// and a resize handler may both want to force a frame).
package pacing

import (
	"sync"
	"time"
)

// Limiter enforces a maximum update rate. A Limiter constructed with 0 FPS
// is unlimited: every call proceeds immediately.
type Limiter struct {
	mu        sync.Mutex
	targetFPS int
	frameTime time.Duration
	last      time.Time
	hasLast   bool
	now       func() time.Time // overridable for tests
}

// New creates a Limiter targeting fps frames per second. fps == 0 disables
// limiting. Negative fps is clamped to 0.
func New(fps int) *Limiter {
	if fps < 0 {
		fps = 0
	}
	l := &Limiter{now: time.Now}
	l.setFPS(fps)
	return l
}

func (l *Limiter) setFPS(fps int) {
	l.targetFPS = fps
	if fps > 0 {
		l.frameTime = time.Second / time.Duration(fps)
	} else {
		l.frameTime = 0
	}
}

// Enabled reports whether limiting is active.
func (l *Limiter) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.targetFPS > 0
}

// ShouldUpdate is the non-blocking form: it reports whether enough time
// has elapsed since the last accepted frame, and if so, marks now as the
// last frame time as a side effect — exactly one accepted call per
// frame interval.
func (l *Limiter) ShouldUpdate() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.targetFPS == 0 {
		return true
	}

	now := l.now()
	if !l.hasLast {
		l.last = now
		l.hasLast = true
		return true
	}

	if now.Sub(l.last) >= l.frameTime {
		l.last = now
		return true
	}
	return false
}

// WaitUntilReady is the blocking form: it sleeps, if necessary, until the
// next frame interval, then records the frame time. Callers that want to
// pace a tight render loop without polling ShouldUpdate call this instead.
func (l *Limiter) WaitUntilReady() {
	l.mu.Lock()
	if l.targetFPS == 0 {
		l.mu.Unlock()
		return
	}

	now := l.now()
	var wait time.Duration
	if l.hasLast {
		elapsed := now.Sub(l.last)
		wait = l.frameTime - elapsed
	}
	l.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}

	l.mu.Lock()
	l.last = l.now()
	l.hasLast = true
	l.mu.Unlock()
}

// SetFPS changes the target rate without resetting the frame clock, so a
// rate change never triggers a burst of immediately-accepted frames.
func (l *Limiter) SetFPS(fps int) {
	if fps < 0 {
		fps = 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setFPS(fps)
}

// Reset clears the frame clock, allowing the next call to proceed
// immediately regardless of target rate.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasLast = false
}

// FrameTime returns the time elapsed since the last accepted frame, or 0
// if no frame has been accepted yet.
func (l *Limiter) FrameTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasLast {
		return 0
	}
	return l.now().Sub(l.last)
}

// CurrentFPS estimates the instantaneous frame rate from the time since
// the last accepted frame.
func (l *Limiter) CurrentFPS() float64 {
	ft := l.FrameTime()
	if ft <= 0 {
		return 0
	}
	return float64(time.Second) / float64(ft)
}
