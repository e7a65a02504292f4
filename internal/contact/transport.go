// internal/contact/transport.go
//
// Serenity – Contact form: submission transport boundary.
//
// Context
//   The Controller hands a validated snapshot to a Transport and reacts to
//   the outcome.  It does not care how delivery happens; internal/delivery
//   provides the concrete backends (simulated delay, SQL store, SQS queue,
//   webhook).  A nil error is success and anything else is failure.
//
//------------------------------------------------------------------------------

package contact

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Transport delivers one submission.  Implementations must honour ctx
// cancellation; the Controller cancels ctx on timeout and on teardown.
type Transport interface {
	Deliver(ctx context.Context, s Submission) error
}

// TransportFunc adapts a plain function to Transport.
type TransportFunc func(ctx context.Context, s Submission) error

// Deliver implements Transport.
func (f TransportFunc) Deliver(ctx context.Context, s Submission) error { return f(ctx, s) }

// Meta describes where a submission came from.  Every field is best-effort
// and may be empty.
type Meta struct {
	ClientIP  string `json:"clientIp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Browser   string `json:"browser,omitempty"`
	Device    string `json:"device,omitempty"`
	Country   string `json:"country,omitempty"`
	Language  string `json:"language,omitempty"`
	IsBot     bool   `json:"isBot,omitempty"`
}

// Submission is the payload handed to a Transport.
type Submission struct {
	ID          string    `json:"id"`
	Fields      Fields    `json:"fields"`
	Meta        Meta      `json:"meta"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// NewSubmissionID returns a sortable, unique ID such as
// "sub_01J9Z3K6W7Y0B2C3D4E5F6G7H8".
func NewSubmissionID(t time.Time) string {
	return "sub_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}
