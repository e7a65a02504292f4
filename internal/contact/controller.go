// internal/contact/controller.go
//
// Serenity – Contact form: controller.
//
// Context
//   A Controller owns one form instance: its Fields, its ErrorMap, its
//   State, and an optional form-level Notice.  Every public method takes the
//   same mutex, so edits, submits, resets, and the delivery callback are
//   serialised against one another.  The state itself is the guard against a
//   second submit; callers are never blocked while delivery is outstanding.
//
// Workflow
//   •  Edit       – Idle only.  Store the value and drop that field's error.
//   •  Submit     – Idle only.  Validate everything.  On failure keep Idle and
//                   return *ValidationError.  On success enter Submitting and
//                   start exactly one delivery goroutine.
//   •  settle     – Called by the delivery goroutine.  Success enters
//                   Submitted and clears the form.  Failure returns to Idle
//                   with values intact and a transport notice.  A retry
//                   with unchanged values reuses the failed submission ID,
//                   so idempotent backends see the same key twice.
//   •  Reset      – Submitted only.  Back to an empty Idle form.
//   •  Close      – Teardown.  Cancels delivery; late results are ignored.
//
//------------------------------------------------------------------------------

package contact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 30 * time.Second

// Snapshot is a read-only copy of a Controller's state.
type Snapshot struct {
	State        State    `json:"state"`
	Fields       Fields   `json:"fields"`
	Errors       ErrorMap `json:"errors"`
	Notice       *Notice  `json:"notice,omitempty"`
	SubmissionID string   `json:"submissionId,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout overrides DefaultTimeout.  Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger attaches a logger.  The default is zap.S().
func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithObserver registers fn to receive a snapshot after every settlement.
// fn runs on the delivery goroutine without the controller lock held.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) { c.observe = fn }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller drives one contact form instance.  The zero value is not
// usable; call New.
type Controller struct {
	mu     sync.Mutex
	fields Fields
	errs   ErrorMap
	state  State
	notice *Notice
	lastID string

	retryID     string // ID of the last failed attempt
	retryFields Fields // values that attempt carried

	gen    uint64             // bumped on every accepted submit
	cancel context.CancelFunc // cancels the outstanding delivery, if any
	closed bool
	wg     sync.WaitGroup

	transport Transport
	timeout   time.Duration
	log       *zap.SugaredLogger
	observe   func(Snapshot)
	now       func() time.Time
}

// New returns an empty, Idle controller that delivers through t.
func New(t Transport, opts ...Option) *Controller {
	c := &Controller{
		errs:      make(ErrorMap),
		transport: t,
		timeout:   DefaultTimeout,
		log:       zap.S(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:        c.state,
		Fields:       c.fields,
		Errors:       c.errs.Clone(),
		SubmissionID: c.lastID,
	}
	if c.notice != nil {
		n := *c.notice
		s.Notice = &n
	}
	return s
}

// Edit stores value under f.  Any error recorded for f is removed without
// re-validating; the next Submit decides again.
func (c *Controller) Edit(f Field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state != StateIdle {
		return fmt.Errorf("%w: state is %s", ErrNotEditable, c.state)
	}
	if !c.fields.set(f, value) {
		return fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	delete(c.errs, f)
	c.notice = nil
	return nil
}

// EditAll applies every field of v in display order.  It stops at the first
// refused edit.
func (c *Controller) EditAll(v Fields) error {
	for _, f := range AllFields {
		if err := c.Edit(f, v.Get(f)); err != nil {
			return err
		}
	}
	return nil
}

// Submit validates the current values and, when they pass, starts delivery.
// It returns *ValidationError when fields fail, ErrBusy while a delivery is
// outstanding, and ErrNotIdle after success until Reset.  ctx supplies
// request-scoped values only; delivery outlives the caller's cancellation.
func (c *Controller) Submit(ctx context.Context, meta Meta) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	next, err := transition(c.state, EventSubmit)
	if err != nil {
		return err
	}

	if errs := Validate(c.fields); len(errs) > 0 {
		c.errs = errs
		return &ValidationError{Fields: errs.Clone()}
	}

	c.errs = make(ErrorMap)
	c.notice = nil
	c.state = next
	c.gen++

	id := c.retryID
	if id == "" || c.fields != c.retryFields {
		id = NewSubmissionID(c.now())
	}
	c.retryID, c.retryFields = "", Fields{}

	sub := Submission{
		ID:          id,
		Fields:      c.fields,
		Meta:        meta,
		SubmittedAt: c.now().UTC(),
	}
	c.lastID = sub.ID

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	c.cancel = cancel
	c.wg.Add(1)
	go c.deliver(dctx, cancel, c.gen, sub)

	c.log.Infow("contact submission started", "submission", sub.ID, "timeout", c.timeout)
	return nil
}

// deliver runs the transport and reports the outcome.  The timeout holds
// even for a transport that ignores ctx: its result is then discarded.
func (c *Controller) deliver(ctx context.Context, cancel context.CancelFunc, gen uint64, sub Submission) {
	defer c.wg.Done()
	defer cancel()

	res := make(chan error, 1)
	go func() { res <- c.transport.Deliver(ctx, sub) }()

	var err error
	select {
	case err = <-res:
		if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = ctx.Err()
		}
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.settle(gen, sub, err)
}

// settle applies a delivery outcome.  Results for an older generation, or
// arriving after Close, change nothing.
func (c *Controller) settle(gen uint64, sub Submission, outcome error) {
	id := sub.ID
	c.mu.Lock()
	if closed := c.closed; closed || gen != c.gen || c.state != StateSubmitting {
		c.mu.Unlock()
		c.log.Debugw("contact settlement ignored", "submission", id, "closed", closed)
		return
	}

	ev := EventDelivered
	if outcome != nil {
		ev = EventFailed
	}
	next, err := transition(c.state, ev)
	if err != nil {
		c.mu.Unlock()
		c.log.Errorw("contact settlement rejected", "submission", id, "err", err)
		return
	}

	c.state = next
	c.cancel = nil
	c.errs = make(ErrorMap)
	if outcome == nil {
		c.fields = Fields{}
		c.notice = nil
		c.log.Infow("contact submission delivered", "submission", id)
	} else {
		c.notice = transportNotice()
		c.retryID, c.retryFields = id, sub.Fields
		c.log.Warnw("contact submission failed", "submission", id, "err", outcome)
	}
	snap := c.snapshotLocked()
	observe := c.observe
	c.mu.Unlock()

	if observe != nil {
		observe(snap)
	}
}

// Reset leaves the acknowledgment view and returns to an empty form.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	next, err := transition(c.state, EventReset)
	if err != nil {
		return err
	}
	c.state = next
	c.fields = Fields{}
	c.errs = make(ErrorMap)
	c.notice = nil
	c.retryID, c.retryFields = "", Fields{}
	return nil
}

// Close tears the form down.  An outstanding delivery is cancelled and its
// result discarded.  Close is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Wait blocks until every delivery goroutine started by this controller has
// returned.
func (c *Controller) Wait() { c.wg.Wait() }
