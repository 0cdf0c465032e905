// Package notifier formats match alerts and delivers them by email and,
// optionally, Telegram.
package notifier

import (
	"context"
	"errors"

	"power_alert/internal/model"
)

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Multi delivers to every notifier in turn. A failing sink does not stop the
// others; all errors are returned joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
