// Package feed abstracts the stream of decoded telemetry samples a capture
// session consumes. The wire decoder for the console protocol lives outside
// this module; sources here accept its already-decoded output.
package feed

import (
	"context"
	"errors"

	"github.com/seddaluca/racing-analytics/internal/domain"
)

// ErrClosed indicates the source has been closed and will produce no more
// samples.
var ErrClosed = errors.New("telemetry feed closed")

// Source yields decoded telemetry samples in arrival order.
type Source interface {
	// Next blocks until a sample arrives, the context is canceled, or the
	// source is closed. It returns ErrClosed once the stream ends.
	Next(ctx context.Context) (*domain.Sample, error)
	Close() error
}
