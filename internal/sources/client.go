// Package sources contains the provider adapter contract and the three
// bibliographic source clients. Adapters own their retry policy and
// failure containment; the orchestrator never retries.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/paperscope/paperscope/pkg/models"
)

// Client is the uniform discovery operation every provider adapter
// implements. Implementations must be safe for concurrent use and must
// honor context cancellation promptly.
//
// A returned error always unwraps to a *SourceError carrying the
// classified kind; the orchestrator folds it into a failed
// SourceDiscoveryResult. Adapters that need an identifier the source
// paper lacks return success with an empty list, not an error.
type Client interface {
	Source() models.DiscoverySource
	Discover(ctx context.Context, paper models.SourcePaper) (models.SourceDiscoveryResult, error)
}

// SourceError is a classified provider failure.
type SourceError struct {
	Err    error
	Source models.DiscoverySource
	Kind   models.ErrorKind
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Classify extracts the error kind from a client error, defaulting to
// provider-unavailable for unclassified failures.
func Classify(err error) models.ErrorKind {
	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		return srcErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrKindTimeout
	}
	return models.ErrKindProviderUnavailable
}

func unavailable(src models.DiscoverySource, err error) error {
	return &SourceError{Source: src, Kind: models.ErrKindProviderUnavailable, Err: err}
}

func malformed(src models.DiscoverySource, err error) error {
	return &SourceError{Source: src, Kind: models.ErrKindMalformedResponse, Err: err}
}
