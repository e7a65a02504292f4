// internal/delivery/delivery_test.go
//
// Unit-tests for the delivery backends.  SQL goes through sqlmock, SQS
// through a recording fake, and the webhook through httptest.
//
// Run: go test ./internal/delivery -v

package delivery

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/sony/gobreaker"

	"github.com/yanizio/serenity/internal/config"
	"github.com/yanizio/serenity/internal/contact"
)

func sample() contact.Submission {
	return contact.Submission{
		ID: "sub_01J9Z3K6W7Y0B2C3D4E5F6G7H8",
		Fields: contact.Fields{
			Name:    "Anna Ozola",
			Email:   "anna@example.lv",
			Phone:   "+37125569575",
			Message: "Please call me about a massage booking.",
		},
		Meta:        contact.Meta{ClientIP: "203.0.113.7", UserAgent: "Mozilla/5.0", Country: "LV"},
		SubmittedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

//
// Simulated
//

func TestSimulated_DelayAndFailureRate(t *testing.T) {
	s := &Simulated{MinDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, roll: func() float64 { return 0.5 }}
	if err := s.Deliver(context.Background(), sample()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	s.FailureRate = 0.6
	if err := s.Deliver(context.Background(), sample()); !errors.Is(err, ErrSimulatedFailure) {
		t.Fatalf("Deliver = %v, want ErrSimulatedFailure", err)
	}
}

func TestSimulated_HonoursContext(t *testing.T) {
	s := &Simulated{MinDelay: time.Hour, MaxDelay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Deliver(ctx, sample()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Deliver = %v, want deadline exceeded", err)
	}
}

//
// Store
//

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "mysql"), mock
}

func TestStore_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	sub := sample()

	mock.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO contact_submission (id, full_name, email, phone, message, client_ip, user_agent, country, submitted_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)).
		WithArgs(sub.ID, "Anna Ozola", "anna@example.lv", "+37125569575", sub.Fields.Message,
			"203.0.113.7", "Mozilla/5.0", "LV", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := NewStore(db, "").Deliver(context.Background(), sub); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestStore_DuplicateIsSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO contact_log").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	if err := NewStore(db, "contact_log").Deliver(context.Background(), sample()); err != nil {
		t.Fatalf("Deliver = %v, want nil on duplicate", err)
	}
}

func TestStore_ErrorPropagates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO contact_submission").WillReturnError(errors.New("connection reset"))

	err := NewStore(db, "").Deliver(context.Background(), sample())
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("Deliver = %v", err)
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	if got := truncate("ēēē", 3); got != "ē" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}

//
// Queue
//

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestQueue_StandardAndFIFO(t *testing.T) {
	sub := sample()

	std := &fakeSQS{}
	q := &Queue{SQS: std, QueueURL: "http://localhost:4566/000000000000/contact"}
	if err := q.Deliver(context.Background(), sub); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	in := std.inputs[0]
	if in.MessageGroupId != nil || in.MessageDeduplicationId != nil {
		t.Fatalf("standard queue got FIFO attributes")
	}
	var got contact.Submission
	if err := json.Unmarshal([]byte(*in.MessageBody), &got); err != nil {
		t.Fatalf("body: %v", err)
	}
	if diff := cmp.Diff(sub, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	fifo := &fakeSQS{}
	q = &Queue{SQS: fifo, QueueURL: "http://localhost:4566/000000000000/contact.fifo"}
	if err := q.Deliver(context.Background(), sub); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	in = fifo.inputs[0]
	if in.MessageGroupId == nil || *in.MessageGroupId != fifoGroup {
		t.Fatalf("MessageGroupId = %v", in.MessageGroupId)
	}
	if in.MessageDeduplicationId == nil || *in.MessageDeduplicationId != sub.ID {
		t.Fatalf("MessageDeduplicationId = %v", in.MessageDeduplicationId)
	}
}

func TestQueue_SendError(t *testing.T) {
	q := &Queue{SQS: &fakeSQS{err: errors.New("throttled")}, QueueURL: "u"}
	if err := q.Deliver(context.Background(), sample()); err == nil {
		t.Fatalf("send error swallowed")
	}
}

//
// Webhook
//

func TestWebhook_PostsJSON(t *testing.T) {
	sub := sample()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Idempotency-Key") != sub.ID {
			t.Errorf("Idempotency-Key = %q", r.Header.Get("Idempotency-Key"))
		}
		var got contact.Submission
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil || got.ID != sub.ID {
			t.Errorf("body decode = %+v, %v", got, err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, "tok").Deliver(context.Background(), sub); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
}

func TestWebhook_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, "")
	for i := 0; i < 5; i++ {
		var se *StatusError
		if err := w.Deliver(context.Background(), sample()); !errors.As(err, &se) || se.Code != http.StatusBadGateway {
			t.Fatalf("attempt %d: err = %v, want StatusError 502", i, err)
		}
	}
	if err := w.Deliver(context.Background(), sample()); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want breaker open", err)
	}
	if hits.Load() != 5 {
		t.Fatalf("server hits = %d, want 5", hits.Load())
	}
}

//
// Multi, Instrument, and Build
//

type stub struct {
	name  string
	err   error
	calls *[]string
}

func (s stub) Name() string { return s.name }
func (s stub) Deliver(context.Context, contact.Submission) error {
	*s.calls = append(*s.calls, s.name)
	return s.err
}

func TestMulti_StopsAtFirstFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")
	m := Multi{
		Instrument(stub{name: "a", calls: &calls}),
		stub{name: "b", err: boom, calls: &calls},
		stub{name: "c", calls: &calls},
	}
	err := m.Deliver(context.Background(), sample())
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "b:") {
		t.Fatalf("err = %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, calls); diff != "" {
		t.Fatalf("calls (-want +got):\n%s", diff)
	}
	if m.Name() != "a+b+c" {
		t.Fatalf("Name = %q", m.Name())
	}
}

// sameID matches the first id it sees and then only that id.
type sameID struct{ id *string }

func (a sameID) Match(v driver.Value) bool {
	s, _ := v.(string)
	if *a.id == "" {
		*a.id = s
		return s != ""
	}
	return s == *a.id
}

type flaky struct{ fails int }

func (f *flaky) Name() string { return "webhook" }
func (f *flaky) Deliver(context.Context, contact.Submission) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("webhook down")
	}
	return nil
}

func TestMulti_RetryAfterPartialFailureInsertsOnce(t *testing.T) {
	db, mock := newMockDB(t)
	var id string
	any8 := []driver.Value{}
	for i := 0; i < 8; i++ {
		any8 = append(any8, sqlmock.AnyArg())
	}
	args := append([]driver.Value{sameID{&id}}, any8...)
	mock.ExpectExec("INSERT INTO contact_submission").WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO contact_submission").WithArgs(args...).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	settled := make(chan contact.Snapshot, 2)
	c := contact.New(Multi{NewStore(db, ""), &flaky{fails: 1}},
		contact.WithObserver(func(s contact.Snapshot) { settled <- s }))
	t.Cleanup(func() {
		c.Close()
		c.Wait()
	})
	for i, want := range []contact.State{contact.StateIdle, contact.StateSubmitted} {
		// The HTML form re-posts every value before each submit.
		if err := c.EditAll(sample().Fields); err != nil {
			t.Fatalf("attempt %d EditAll: %v", i, err)
		}
		if err := c.Submit(context.Background(), contact.Meta{}); err != nil {
			t.Fatalf("attempt %d Submit: %v", i, err)
		}
		select {
		case s := <-settled:
			if s.State != want {
				t.Fatalf("attempt %d state = %s, want %s", i, s.State, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d did not settle", i)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := map[string]error{
		"ok":       nil,
		"timeout":  context.DeadlineExceeded,
		"canceled": context.Canceled,
		"error":    errors.New("x"),
	}
	for want, err := range tests {
		if got := outcome(err); got != want {
			t.Errorf("outcome(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestBuild(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS contact_submission")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cfg := config.Delivery{
		Modes:    []string{config.ModeSimulate, config.ModeStore, config.ModeQueue},
		Simulate: config.Simulate{MaxDelay: time.Millisecond},
		Queue:    config.Queue{QueueURL: "http://localhost:4566/000000000000/contact"},
		Store:    config.Store{Table: DefaultTable},
	}
	p, err := Build(context.Background(), cfg, Deps{DB: db, SQS: &fakeSQS{}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()

	if p.Name() != "simulate+store+queue" {
		t.Fatalf("Name = %q", p.Name())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}

	if _, err := Build(context.Background(), config.Delivery{Modes: []string{"pigeon"}}, Deps{}); err == nil {
		t.Fatalf("unknown mode accepted")
	}
	if _, err := Build(context.Background(), config.Delivery{}, Deps{}); err == nil {
		t.Fatalf("empty mode list accepted")
	}
}
