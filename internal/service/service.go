// Package service implements the badge lifecycle, the access log and the
// user directory on top of a store.
package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// validID reports whether id can name a stored row. Both stores key rows by UUID.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
