package circuit

import (
	"errors"
	"testing"
)

func TestExecutePassesThroughSuccess(t *testing.T) {
	b := New("testvenue")
	v, err := b.Execute(func() (any, error) { return "ok", nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" {
		t.Fatalf("got %v, want ok", v)
	}
}

func TestExecutePassesThroughFailure(t *testing.T) {
	b := New("testvenue")
	wantErr := errors.New("boom")
	_, err := b.Execute(func() (any, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestStateStartsClosed(t *testing.T) {
	b := New("testvenue")
	if b.State() != "closed" {
		t.Fatalf("State() = %q, want closed", b.State())
	}
}

func TestTripsAfterThreeConsecutiveFailures(t *testing.T) {
	b := New("testvenue")
	fail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(func() (any, error) { return nil, fail }); !errors.Is(err, fail) {
			t.Fatalf("call %d: got %v, want %v", i, err, fail)
		}
	}

	if b.State() != "open" {
		t.Fatalf("State() = %q, want open after 3 consecutive failures", b.State())
	}

	// The breaker itself, not the wrapped fn, now rejects further calls.
	called := false
	_, err := b.Execute(func() (any, error) { called = true; return "ok", nil })
	if err == nil {
		t.Fatal("expected an open-breaker error")
	}
	if called {
		t.Fatal("fn should not run while the breaker is open")
	}
}

func TestSuccessResetsConsecutiveFailureCount(t *testing.T) {
	b := New("testvenue")
	fail := errors.New("fail")

	b.Execute(func() (any, error) { return nil, fail })
	b.Execute(func() (any, error) { return nil, fail })
	b.Execute(func() (any, error) { return "ok", nil }) // resets consecutive count
	b.Execute(func() (any, error) { return nil, fail })
	b.Execute(func() (any, error) { return nil, fail })

	if b.State() != "closed" {
		t.Fatalf("State() = %q, want closed: a success should reset the consecutive-failure streak", b.State())
	}
}
