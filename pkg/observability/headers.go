package observability

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidHeader is returned for a malformed OTLP header pair.
var ErrInvalidHeader = errors.New("invalid OTLP header")

// ParseHeaders parses OTLP exporter headers in the OTEL_EXPORTER_OTLP_HEADERS
// format: comma-separated key=value pairs with percent-encoded values.
func ParseHeaders(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	headers := make(map[string]string)

	for pair := range strings.SplitSeq(raw, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}

		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, strings.TrimSpace(pair))
		}

		decoded, err := url.PathUnescape(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidHeader, key, err)
		}

		headers[key] = decoded
	}

	return headers, nil
}
