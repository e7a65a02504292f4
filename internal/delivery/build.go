// internal/delivery/build.go
//
// Pipeline assembly from config.Delivery.
//
// Workflow
// --------
//  1. Walk cfg.Modes in order.
//  2. Open whatever each backend needs (MySQL pool plus migration, SQS
//     client, HTTP client with breaker).
//  3. Wrap each backend with Instrument and chain them with Multi.
//
// The returned Pipeline owns every resource it opened; Close releases them.

package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/serenity/internal/config"
	"github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/database"
)

// Deps lets callers supply pre-built clients.  Nil fields are opened from
// config.
type Deps struct {
	DB  *sqlx.DB
	SQS SQSSender
}

// Pipeline is the Transport handed to every form controller.
type Pipeline struct {
	chain   Multi
	closers []func() error
}

// Deliver implements contact.Transport.
func (p *Pipeline) Deliver(ctx context.Context, sub contact.Submission) error {
	return p.chain.Deliver(ctx, sub)
}

// Name lists the backends in order, e.g. "store+webhook".
func (p *Pipeline) Name() string { return p.chain.Name() }

// Close releases resources opened by Build.
func (p *Pipeline) Close() error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i]())
	}
	return errors.Join(errs...)
}

// Build assembles the pipeline for cfg.
func Build(ctx context.Context, cfg config.Delivery, deps Deps) (*Pipeline, error) {
	p := &Pipeline{}

	for _, mode := range cfg.Modes {
		var b Backend
		switch mode {
		case config.ModeSimulate:
			b = &Simulated{
				MinDelay:    cfg.Simulate.MinDelay,
				MaxDelay:    cfg.Simulate.MaxDelay,
				FailureRate: cfg.Simulate.FailureRate,
			}

		case config.ModeStore:
			db := deps.DB
			if db == nil {
				var err error
				if db, err = database.Open(ctx, cfg.Store.DSN); err != nil {
					_ = p.Close()
					return nil, fmt.Errorf("store: %w", err)
				}
				p.closers = append(p.closers, db.Close)
			}
			st := NewStore(db, cfg.Store.Table)
			if err := database.Migrate(ctx, db, st.Migration()); err != nil {
				_ = p.Close()
				return nil, fmt.Errorf("store: %w", err)
			}
			b = st

		case config.ModeQueue:
			sender := deps.SQS
			if sender == nil {
				cli, err := NewSQSClient(ctx, cfg.Queue.Region, cfg.Queue.Endpoint)
				if err != nil {
					_ = p.Close()
					return nil, fmt.Errorf("queue: %w", err)
				}
				sender = cli
			}
			b = &Queue{SQS: sender, QueueURL: cfg.Queue.QueueURL}

		case config.ModeWebhook:
			b = NewWebhook(cfg.Webhook.URL, cfg.Webhook.Token)

		default:
			_ = p.Close()
			return nil, fmt.Errorf("unknown delivery mode %q", mode)
		}

		p.chain = append(p.chain, Instrument(b))
	}

	if len(p.chain) == 0 {
		return nil, errors.New("no delivery modes configured")
	}
	zap.S().Infow("delivery pipeline ready", "backends", p.Name())
	return p, nil
}
