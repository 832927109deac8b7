// Package recovery implements the terminal I/O core's error classification
// and fallback-escalation policy (ErrorRecovery, spec §4.9): retry transient
// I/O with exponential backoff, renegotiate capabilities on a mismatch, and
// escalate to the next backend in the fallback chain on a fatal failure.
//
// Grounded on original_source/vindauga/io/error_recovery.py's
// ErrorRecoveryManager: a per-error-type strategy table, an append-only
// error history, and a sliding-window degrade-mode heuristic, translated
// from Python's dynamic exception-type dispatch to Go's errors.As against
// the internal/errs taxonomy.
package recovery

import (
	"errors"
	"sync"
	"time"

	"github.com/dshills/tuicore/internal/applog"
	"github.com/dshills/tuicore/internal/backend"
	"github.com/dshills/tuicore/internal/errs"
)

// Strategy names the recovery action taken for a classified error.
type Strategy int

const (
	// StrategyRetry retries the failed operation after an exponential
	// backoff delay.
	StrategyRetry Strategy = iota
	// StrategyRenegotiate drops a capability (e.g. rgb24 to 256-color) and
	// asks the caller to retry with the downgraded Capabilities.
	StrategyRenegotiate
	// StrategyEscalate abandons the current backend and moves to the next
	// entry in the fallback chain.
	StrategyEscalate
	// StrategyIgnore discards the error and continues.
	StrategyIgnore
)

func (s Strategy) String() string {
	switch s {
	case StrategyRetry:
		return "retry"
	case StrategyRenegotiate:
		return "renegotiate"
	case StrategyEscalate:
		return "escalate"
	case StrategyIgnore:
		return "ignore"
	default:
		return "unknown"
	}
}

// record is one entry in the error history, used for the degrade-mode
// heuristic. Unlike error_recovery.py's ErrorContext, it carries no retry
// counter of its own — Manager.Attempt tracks that per call instead of per
// history entry, since Go call sites retry in a loop rather than via
// recursive self-calls.
type record struct {
	strategy Strategy
	at       time.Time
}

// Manager classifies errors returned from a Display/Input operation and
// decides what to do next, per spec §4.9's transient/capability-mismatch/
// fatal split. It is not itself a retry loop; Attempt wraps one.
type Manager struct {
	log *applog.Logger

	maxRetries int
	baseDelay  time.Duration

	mu      sync.Mutex
	history []record
}

// degradeWindow and degradeThreshold mirror error_recovery.py's
// should_degrade_mode: more than 10 errors inside a 60-second window
// suggests the terminal or transport is failing wholesale.
const (
	degradeWindow    = 60 * time.Second
	degradeThreshold = 10
)

// New creates a Manager. log may be nil, in which case recovery events are
// discarded. maxRetries and baseDelay default to 3 and 100ms (matching
// error_recovery.py's max_retries=3, delay=0.1*2**n) when zero.
func New(log *applog.Logger, maxRetries int, baseDelay time.Duration) *Manager {
	if log == nil {
		log = applog.Discard
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	return &Manager{log: log.WithComponent("recovery"), maxRetries: maxRetries, baseDelay: baseDelay}
}

// Classify maps err to a Strategy per spec §4.9: TransientIo retries,
// CapabilityMissing renegotiates, FatalIo and anything unrecognized
// escalates. ParseOverflow and ResizeOutOfRange are not failures the
// backend layer surfaces here — the parser and buffer already self-correct
// them — so they fall through to escalate only if somehow wrapped past
// that point.
func (m *Manager) Classify(err error) Strategy {
	var (
		transient *errs.TransientIO
		capMiss   *errs.CapabilityMissing
	)
	switch {
	case errors.As(err, &transient):
		return StrategyRetry
	case errors.As(err, &capMiss):
		return StrategyRenegotiate
	default:
		return StrategyEscalate
	}
}

// Record appends a classified error to the history and logs it, per
// error_recovery.py's handle_error logging a debug line before dispatching
// a strategy.
func (m *Manager) Record(err error, component, operation string) Strategy {
	strategy := m.Classify(err)

	m.mu.Lock()
	m.history = append(m.history, record{strategy: strategy, at: time.Now()})
	m.mu.Unlock()

	m.log.Debug("%s.%s: %v -> %s", component, operation, err, strategy)
	return strategy
}

// Attempt runs op, retrying with exponential backoff on a StrategyRetry
// classification up to maxRetries times, per error_recovery.py's
// _retry_operation. It returns the last error if retries are exhausted or
// the error classifies as anything other than retry.
func (m *Manager) Attempt(component, operation string, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		strategy := m.Record(err, component, operation)
		if strategy != StrategyRetry || attempt == m.maxRetries {
			return err
		}

		delay := m.baseDelay << attempt
		time.Sleep(delay)
	}
	return lastErr
}

// ErrorRate returns the number of errors recorded within the last window.
func (m *Manager) ErrorRate(window time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-window)
	n := 0
	for _, r := range m.history {
		if r.at.After(cutoff) {
			n++
		}
	}
	return n
}

// ShouldDegrade reports whether the recent error rate suggests the current
// backend should stop being trusted, per error_recovery.py's
// should_degrade_mode (more than 10 errors in the trailing 60 seconds, and
// at least 10 errors recorded in total to avoid triggering on a brief burst
// right after startup).
func (m *Manager) ShouldDegrade() bool {
	m.mu.Lock()
	total := len(m.history)
	m.mu.Unlock()

	if total < degradeThreshold {
		return false
	}
	return m.ErrorRate(degradeWindow) > degradeThreshold
}

// ClearHistory discards all recorded errors, e.g. after a successful
// fallback escalation establishes a clean baseline.
func (m *Manager) ClearHistory() {
	m.mu.Lock()
	m.history = nil
	m.mu.Unlock()
}

// FallbackChain is the fixed escalation order of spec §4.9: ANSI, then
// direct-termios, then the curses fallback, then bail.
var FallbackChain = []backend.Backend{backend.BackendANSI, backend.BackendTermiosRaw, backend.BackendCurses}

// Next returns the backend that follows current in FallbackChain, and
// false if current is already the last entry (the caller must then
// surface a fatal failure rather than construct another backend).
func Next(current backend.Backend) (backend.Backend, bool) {
	for i, b := range FallbackChain {
		if b == current && i+1 < len(FallbackChain) {
			return FallbackChain[i+1], true
		}
	}
	return backend.BackendAuto, false
}
