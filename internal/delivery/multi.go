package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/yanizio/serenity/internal/contact"
)

// Multi hands a submission to each backend in order and stops at the first
// failure.  Backends that already succeeded are not rolled back.  The
// controller retries unchanged values under the same submission ID, which
// the store (duplicate key) and FIFO queue (dedup ID) absorb.
type Multi []Backend

func (m Multi) Name() string {
	names := make([]string, len(m))
	for i, b := range m {
		names[i] = b.Name()
	}
	return strings.Join(names, "+")
}

// Deliver implements contact.Transport.
func (m Multi) Deliver(ctx context.Context, sub contact.Submission) error {
	for _, b := range m {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Deliver(ctx, sub); err != nil {
			return fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	return nil
}
