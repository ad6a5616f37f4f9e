package hdrplus

import (
	"errors"
	"fmt"
)

// Kind classifies the failure modes a pipeline stage can surface.
// Each stage that fails reports exactly one Kind, unchanged by the
// orchestrator as the error propagates up.
type Kind int

const (
	// KindUnknown is the zero value; never returned by this package.
	KindUnknown Kind = iota

	// KindLoad marks a raw decoder failure or inconsistent decoded metadata.
	KindLoad

	// KindGPU marks a GPU resource-creation or command-execution failure.
	KindGPU

	// KindSave marks a DNG write-back failure.
	KindSave

	// KindConversionFailed marks a non-DNG-to-DNG converter failure, or a
	// converter run that produced no output file.
	KindConversionFailed

	// KindInconsistentResolutions marks a burst whose frames disagree on
	// width, height, or mosaic width.
	KindInconsistentResolutions

	// KindCache marks a disk-cache enumeration or eviction failure.
	KindCache
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "LoadError"
	case KindGPU:
		return "GpuError"
	case KindSave:
		return "SaveError"
	case KindConversionFailed:
		return "ConversionFailed"
	case KindInconsistentResolutions:
		return "InconsistentResolutions"
	case KindCache:
		return "CacheError"
	default:
		return "UnknownError"
	}
}

// Sentinel errors usable with errors.Is. Stage-specific *Error values wrap
// one of these via Unwrap so callers can check the kind without importing
// this package's Kind type, matching the sentinel-plus-struct pattern used
// throughout the pipeline's dependencies.
var (
	ErrLoad                    = errors.New("hdrplus: raw decode failed")
	ErrGPU                     = errors.New("hdrplus: GPU operation failed")
	ErrSave                    = errors.New("hdrplus: DNG write-back failed")
	ErrConversionFailed        = errors.New("hdrplus: external converter failed")
	ErrInconsistentResolutions = errors.New("hdrplus: frames disagree on dimensions")
	ErrCache                   = errors.New("hdrplus: cache operation failed")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindLoad:
		return ErrLoad
	case KindGPU:
		return ErrGPU
	case KindSave:
		return ErrSave
	case KindConversionFailed:
		return ErrConversionFailed
	case KindInconsistentResolutions:
		return ErrInconsistentResolutions
	case KindCache:
		return ErrCache
	default:
		return errors.New("hdrplus: unknown error")
	}
}

// Error is the error type every stage returns. It carries the Kind and,
// when applicable, the URL of the frame that triggered the failure.
type Error struct {
	Kind Kind
	// URL is the absolute input URL associated with the failure, empty if
	// the failure is not attributable to a single frame (e.g. a disk-cache
	// eviction error).
	URL string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.URL == "" {
		if e.Err != nil {
			return fmt.Sprintf("hdrplus: %s: %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("hdrplus: %s", e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("hdrplus: %s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("hdrplus: %s: %s", e.Kind, e.URL)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{sentinelFor(e.Kind), e.Err}
	}
	return []error{sentinelFor(e.Kind)}
}

// NewError constructs an *Error for the given kind, URL, and cause. url may
// be empty when the failure is not attributable to a single frame.
func NewError(kind Kind, url string, cause error) *Error {
	return &Error{Kind: kind, URL: url, Err: cause}
}
