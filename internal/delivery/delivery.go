// Package delivery holds the concrete contact.Transport backends.
//
// Context
// -------
// A contact submission is handed to every backend listed in
// `delivery.modes`, in order.  The first failure aborts the chain and is
// reported to the form as a transport failure.  Backends must honour ctx
// cancellation because the form controller cancels on timeout and on
// session teardown.
//
//	simulate – randomized delay, optional failure rate.  Development default.
//	store    – one row per submission in MySQL.
//	queue    – one SQS message per submission (FIFO aware).
//	webhook  – JSON POST guarded by a circuit breaker.
//
// Every backend is wrapped by Instrument so latency and outcome land in
// Prometheus and the request-scoped log.
package delivery

import (
	"github.com/yanizio/serenity/internal/contact"
)

// Backend is a named Transport.  The name labels metrics and logs.
type Backend interface {
	contact.Transport
	Name() string
}
