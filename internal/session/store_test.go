// internal/session/store_test.go
//
// Run: go test ./internal/session -v

package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yanizio/serenity/internal/contact"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

// blockingTransport never finishes until ctx ends.
var blockingTransport = contact.TransportFunc(func(ctx context.Context, _ contact.Submission) error {
	<-ctx.Done()
	return ctx.Err()
})

func newStore(max int, ttl time.Duration) (*Store, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(func(string) *contact.Controller {
		return contact.New(blockingTransport, contact.WithTimeout(time.Minute))
	}, max, ttl)
	s.now = func() time.Time { return now }
	return s, &now
}

func validFields() contact.Fields {
	return contact.Fields{Name: "Jane", Email: "jane@example.com", Message: "Hello there friend"}
}

func TestStore_GetMountsOnce(t *testing.T) {
	s, _ := newStore(4, time.Minute)
	defer s.Close()

	a := s.Get("a")
	if s.Get("a") != a {
		t.Fatalf("second Get returned a different controller")
	}
	if _, ok := s.Lookup("b"); ok {
		t.Fatalf("Lookup created a session")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d", s.Len())
	}
}

func TestStore_CapacityEvictionClosesController(t *testing.T) {
	s, _ := newStore(1, time.Minute)
	defer s.Close()

	a := s.Get("a")
	if err := a.EditAll(validFields()); err != nil {
		t.Fatalf("EditAll: %v", err)
	}
	if err := a.Submit(context.Background(), contact.Meta{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.Get("b") // pushes a out
	a.Wait()   // delivery was cancelled by teardown

	if err := a.Edit(contact.FieldName, "x"); !errors.Is(err, contact.ErrClosed) {
		t.Fatalf("Edit on evicted controller = %v, want ErrClosed", err)
	}
	if a.Snapshot().State != contact.StateSubmitting {
		t.Fatalf("late result changed a torn-down controller")
	}
}

func TestStore_SweepIdle(t *testing.T) {
	s, now := newStore(8, time.Minute)
	defer s.Close()

	s.Get("old")
	*now = now.Add(45 * time.Second)
	s.Get("fresh")
	*now = now.Add(30 * time.Second)

	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if _, ok := s.Lookup("old"); ok {
		t.Fatalf("idle session survived")
	}
	if _, ok := s.Lookup("fresh"); !ok {
		t.Fatalf("fresh session swept")
	}
}

func TestStore_DropAndClose(t *testing.T) {
	s, _ := newStore(8, time.Minute)

	s.Get("a")
	if !s.Drop("a") || s.Drop("a") {
		t.Fatalf("Drop should succeed exactly once")
	}

	b := s.Get("b")
	if err := b.EditAll(validFields()); err != nil {
		t.Fatalf("EditAll: %v", err)
	}
	if err := b.Submit(context.Background(), contact.Meta{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	s.Close() // returns only after b's delivery goroutine exits
	s.Close()

	if s.Len() != 0 {
		t.Fatalf("Len after Close = %d", s.Len())
	}
	late := s.Get("c")
	if err := late.Edit(contact.FieldName, "x"); !errors.Is(err, contact.ErrClosed) {
		t.Fatalf("Get after Close returned a live controller")
	}
}

func TestStore_RunStopsWithContext(t *testing.T) {
	s, _ := newStore(2, time.Minute)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { s.Run(ctx); close(done) }()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestEnsure(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/contact", nil)
	id := Ensure(w, r, true)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != id || !cookies[0].Secure {
		t.Fatalf("cookie = %+v", cookies)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/contact", nil)
	r2.AddCookie(cookies[0])
	w2 := httptest.NewRecorder()
	if got := Ensure(w2, r2, true); got != id {
		t.Fatalf("Ensure minted a new id for an existing cookie")
	}
	if len(w2.Result().Cookies()) != 0 {
		t.Fatalf("cookie re-set for an existing session")
	}

	r3 := httptest.NewRequest(http.MethodGet, "/contact", nil)
	r3.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})
	if _, ok := ID(r3); ok {
		t.Fatalf("ID accepted a malformed cookie")
	}
}
