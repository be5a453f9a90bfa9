package define

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMalformedTag is returned for truncated or invalid binary tag trees.
	ErrMalformedTag = errors.New("malformed tag")
	// ErrUnsupportedFormat is returned when no palette/block-array shape is recognized.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrBoundsExceeded is returned when the target format's dimension cap is exceeded.
	ErrBoundsExceeded = errors.New("bounds exceeded")
	// ErrRegionUnavailable marks a missing or unreadable region segment. It is
	// logged and degrades to air, it never aborts an extraction.
	ErrRegionUnavailable = errors.New("region unavailable")
	// ErrEmptyResult is returned when compilation produced no commands.
	ErrEmptyResult = errors.New("empty result")
	// ErrLegacyArchiveUnsupported is returned for pre-sector archive layouts.
	ErrLegacyArchiveUnsupported = errors.New("legacy archive unsupported")
	// ErrCancelled wraps context cancellation inside long loops.
	ErrCancelled = errors.New("cancelled")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMalformedTag, "MalformedTag"},
	{ErrUnsupportedFormat, "UnsupportedFormat"},
	{ErrBoundsExceeded, "BoundsExceeded"},
	{ErrRegionUnavailable, "RegionUnavailable"},
	{ErrEmptyResult, "EmptyResult"},
	{ErrLegacyArchiveUnsupported, "LegacyArchiveUnsupported"},
	{ErrCancelled, "Cancelled"},
}

// Kind names the taxonomy entry err belongs to, "Internal" if none.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Internal"
}

// StageError ties a failure to the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// CheckContext converts a done context into ErrCancelled.
func CheckContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}
