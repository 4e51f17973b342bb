// Package supplier talks to the item backend: it fetches threat categories
// and batches of baggage items, loads their images, and submits session
// results.
package supplier

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"xray-cbt/internal/item"
	"xray-cbt/internal/scoring"
)

// Error classes surfaced to the session controller.
var (
	ErrSupplier   = errors.New("item supplier failed")
	ErrImageLoad  = errors.New("image load failed")
	ErrSubmission = errors.New("result submission failed")
)

// Supplier yields categories and item batches.
type Supplier interface {
	Categories(ctx context.Context) ([]item.Category, error)
	// Items returns the next batch for an area. category is an id or "all".
	Items(ctx context.Context, area int, category string) ([]item.Baggage, error)
}

// Submitter accepts a finished session.
type Submitter interface {
	Submit(ctx context.Context, s scoring.Summary) error
}

// ImageSource resolves an image reference to pixels.
type ImageSource interface {
	Image(ctx context.Context, ref string) (image.Image, error)
}

// Backend is everything the console needs from the remote side.
type Backend interface {
	Supplier
	Submitter
	ImageSource
}

// SubmitWithRetry posts a summary, retrying once on failure. The returned
// error wraps ErrSubmission and the last underlying failure.
func SubmitWithRetry(ctx context.Context, sub Submitter, s scoring.Summary) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if err = sub.Submit(ctx, s); err == nil {
			return nil
		}
		slog.Warn("Result submission failed", "session", s.SessionID, "attempt", attempt, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	if errors.Is(err, ErrSubmission) {
		return err
	}
	return errors.Join(ErrSubmission, err)
}
