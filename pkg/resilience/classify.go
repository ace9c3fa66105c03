package resilience

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/streaming/chunk"
)

// ErrorType is the fine-grained error taxonomy used for resilience
// decisions and telemetry labels.
type ErrorType string

const (
	ErrorTimeout           ErrorType = "timeout"
	ErrorConnectionRefused ErrorType = "connection_refused"
	ErrorDNS               ErrorType = "dns"
	ErrorServer            ErrorType = "server_error"
	ErrorClient            ErrorType = "client_error"
	ErrorRateLimit         ErrorType = "rate_limit"
	ErrorDecode            ErrorType = "decode_error"
	ErrorValidation        ErrorType = "validation"
	ErrorUnknown           ErrorType = "unknown"
)

// Category is the coarse grouping of an ErrorType.
type Category string

const (
	CategoryNetwork Category = "network"
	CategoryServer  Category = "server"
	CategoryClient  Category = "client"
	CategoryData    Category = "data"
	CategoryUnknown Category = "unknown"
)

// Classification is the result of mapping an error into the taxonomy.
type Classification struct {
	Type     ErrorType
	Category Category

	// Retryable marks errors worth a bounded retry. Client-side and
	// data errors are never retried.
	Retryable bool
}

// Classify maps an error into the resilience taxonomy. It inspects the
// typed provider errors first, then common transport failures, and
// falls back to unknown (retryable, so transient faults get a chance).
func Classify(err error) Classification {
	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return Classification{Type: ErrorClient, Category: CategoryClient}
	}

	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return Classification{Type: ErrorRateLimit, Category: CategoryServer, Retryable: true}
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{Type: ErrorTimeout, Category: CategoryNetwork, Retryable: true}
	}

	var decodeErr *providers.DecodeError
	if errors.As(err, &decodeErr) {
		return Classification{Type: ErrorDecode, Category: CategoryData}
	}

	var validationErr *providers.ValidationError
	if errors.As(err, &validationErr) {
		return Classification{Type: ErrorValidation, Category: CategoryClient}
	}

	var sizeErr *chunk.SizeError
	var totalErr *chunk.TotalSizeError
	var encErr *chunk.EncodingError
	if errors.As(err, &sizeErr) || errors.As(err, &totalErr) || errors.As(err, &encErr) {
		return Classification{Type: ErrorValidation, Category: CategoryClient}
	}

	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		switch {
		case provErr.StatusCode >= 500:
			return Classification{Type: ErrorServer, Category: CategoryServer, Retryable: true}
		case provErr.StatusCode >= 400:
			return Classification{Type: ErrorClient, Category: CategoryClient}
		}
		return Classification{Type: ErrorUnknown, Category: CategoryUnknown, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Classification{Type: ErrorDNS, Category: CategoryNetwork, Retryable: true}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return Classification{Type: ErrorConnectionRefused, Category: CategoryNetwork, Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Classification{Type: ErrorTimeout, Category: CategoryNetwork, Retryable: true}
		}
		return Classification{Type: ErrorUnknown, Category: CategoryNetwork, Retryable: true}
	}

	var streamErr *providers.StreamError
	if errors.As(err, &streamErr) {
		return Classification{Type: ErrorUnknown, Category: CategoryNetwork, Retryable: true}
	}

	return Classification{Type: ErrorUnknown, Category: CategoryUnknown, Retryable: true}
}

// retryAfter extracts the provider-supplied Retry-After hint, if any.
func retryAfter(err error) time.Duration {
	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return rateErr.RetryAfter
	}
	return 0
}
