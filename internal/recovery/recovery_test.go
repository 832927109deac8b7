package recovery

import (
	"errors"
	"testing"
	"time"

	"github.com/dshills/tuicore/internal/backend"
	"github.com/dshills/tuicore/internal/errs"
)

func TestClassify(t *testing.T) {
	m := New(nil, 0, 0)

	cases := []struct {
		name string
		err  error
		want Strategy
	}{
		{"transient", &errs.TransientIO{Op: "write", Err: errors.New("eagain")}, StrategyRetry},
		{"capability", &errs.CapabilityMissing{Requested: "rgb24", Fallback: "256"}, StrategyRenegotiate},
		{"fatal", &errs.FatalIO{Op: "write", Err: errors.New("epipe")}, StrategyEscalate},
		{"unknown", errors.New("boom"), StrategyEscalate},
	}
	for _, c := range cases {
		if got := m.Classify(c.err); got != c.want {
			t.Errorf("%s: Classify = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestAttemptRetriesTransientThenSucceeds(t *testing.T) {
	m := New(nil, 3, time.Millisecond)

	calls := 0
	err := m.Attempt("display", "flush", func() error {
		calls++
		if calls < 3 {
			return &errs.TransientIO{Op: "write", Err: errors.New("eagain")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Attempt returned %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestAttemptGivesUpAfterMaxRetries(t *testing.T) {
	m := New(nil, 2, time.Millisecond)

	calls := 0
	wantErr := &errs.TransientIO{Op: "write", Err: errors.New("eagain")}
	err := m.Attempt("display", "flush", func() error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Attempt returned %v, want %v", err, wantErr)
	}
	if calls != 3 { // initial attempt + 2 retries
		t.Errorf("op called %d times, want 3", calls)
	}
}

func TestAttemptEscalatesImmediatelyOnFatal(t *testing.T) {
	m := New(nil, 3, time.Millisecond)

	calls := 0
	err := m.Attempt("display", "flush", func() error {
		calls++
		return &errs.FatalIO{Op: "write", Err: errors.New("epipe")}
	})
	if err == nil {
		t.Fatal("Attempt returned nil, want the fatal error")
	}
	if calls != 1 {
		t.Errorf("op called %d times, want 1 (fatal errors don't retry)", calls)
	}
}

func TestShouldDegradeAfterManyErrors(t *testing.T) {
	m := New(nil, 0, 0)

	if m.ShouldDegrade() {
		t.Fatal("fresh manager should not report degrade")
	}
	for i := 0; i < 11; i++ {
		m.Record(&errs.FatalIO{Op: "write", Err: errors.New("x")}, "display", "flush")
	}
	if !m.ShouldDegrade() {
		t.Error("manager with 11 recent errors should report degrade")
	}
}

func TestClearHistoryResetsDegrade(t *testing.T) {
	m := New(nil, 0, 0)
	for i := 0; i < 11; i++ {
		m.Record(&errs.FatalIO{Op: "write", Err: errors.New("x")}, "display", "flush")
	}
	m.ClearHistory()
	if m.ShouldDegrade() {
		t.Error("ClearHistory should reset the degrade heuristic")
	}
}

func TestFallbackChainOrder(t *testing.T) {
	next, ok := Next(backend.BackendANSI)
	if !ok || next != backend.BackendTermiosRaw {
		t.Errorf("Next(ANSI) = (%v, %v), want (TermiosRaw, true)", next, ok)
	}
	next, ok = Next(backend.BackendTermiosRaw)
	if !ok || next != backend.BackendCurses {
		t.Errorf("Next(TermiosRaw) = (%v, %v), want (Curses, true)", next, ok)
	}
	_, ok = Next(backend.BackendCurses)
	if ok {
		t.Error("Next(Curses) should report no further fallback")
	}
	_, ok = Next(backend.BackendAuto)
	if ok {
		t.Error("Next(Auto) should report no fallback (not in the chain)")
	}
}
