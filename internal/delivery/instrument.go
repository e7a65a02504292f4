package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/logger"
	"github.com/yanizio/serenity/internal/metrics"
)

// Instrumented records latency and outcome of the wrapped backend.
type Instrumented struct {
	Backend
}

// Instrument wraps b.  Wrapping twice is harmless but double-counts.
func Instrument(b Backend) Backend { return Instrumented{Backend: b} }

// Deliver implements contact.Transport.
func (i Instrumented) Deliver(ctx context.Context, sub contact.Submission) error {
	start := time.Now()
	err := i.Backend.Deliver(ctx, sub)
	took := time.Since(start)

	result := outcome(err)
	metrics.DeliveryDuration.WithLabelValues(i.Name(), result).Observe(took.Seconds())

	log := logger.FromContext(ctx)
	if err != nil {
		log.Warnw("delivery failed",
			"backend", i.Name(), "submission", sub.ID, "result", result, "took", took, "err", err)
		return err
	}
	log.Debugw("delivery ok", "backend", i.Name(), "submission", sub.ID, "took", took)
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
