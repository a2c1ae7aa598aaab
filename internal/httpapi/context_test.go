package httpapi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type ctxKey struct{}

func TestJoinContextsKeepsValuesAndCause(t *testing.T) {
	a := context.WithValue(context.Background(), ctxKey{}, "req-7")
	shutdown := errors.New("shutting down")
	b, stop := context.WithCancelCause(context.Background())
	j, cancel := joinContexts(a, b)
	defer cancel()

	if j.Value(ctxKey{}) != "req-7" {
		t.Fatalf("request values lost")
	}
	stop(shutdown)
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context outlived the base context")
	}
	if !errors.Is(context.Cause(j), shutdown) {
		t.Fatalf("cause=%v", context.Cause(j))
	}
}

func TestJoinContextsCancelReleasesBase(t *testing.T) {
	b, stop := context.WithCancel(context.Background())
	defer stop()
	j, cancel := joinContexts(context.Background(), b)
	cancel()
	if j.Err() == nil {
		t.Fatal("cancel did not end the joined context")
	}
	stop()
}

func TestShutdownAbortsActivation(t *testing.T) {
	base, shutdown := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(context.Background())

	svc := &mockService{block: true}
	done := make(chan int, 1)
	go func() { done <- postActivate(t, NewMux(svc), `{"version":"1.15.0"}`).Code }()

	time.Sleep(20 * time.Millisecond)
	shutdown()
	select {
	case code := <-done:
		// nothing is written for an activation the server abandoned
		if code != http.StatusOK {
			t.Fatalf("status=%d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("activation kept running after shutdown")
	}
	if svc.lastReq.Version != "1.15.0" {
		t.Fatalf("activation never reached the service")
	}
}

func TestSetBaseContextNilMeansBackground(t *testing.T) {
	//nolint:staticcheck // nil is the documented reset
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatal("nil base context not reset")
	}
}
