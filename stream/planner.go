// Package stream serves a byte resource over HTTP with single-range support,
// the way seekable video players request it.
package stream

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	msgNotSatisfiable = "Requested range not satisfiable. Start is greater than size or end is less than start."
	msgMalformed      = "Malformed range header."
)

// ErrRangeNotSatisfiable is wrapped by every RangeError.
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// RangeError rejects a Range header. Message is safe to show to clients.
type RangeError struct {
	Header  string
	Message string
}

func (e *RangeError) Error() string {
	return e.Message
}

func (e *RangeError) Unwrap() error {
	return ErrRangeNotSatisfiable
}

// Plan describes which bytes of a resource a response carries.
// Start and End are inclusive zero-based offsets. Ranged is set whenever a
// Range header was honoured, including a clamped one answered with 200.
type Plan struct {
	Status        int
	Start         int64
	End           int64
	ContentLength int64
	Size          int64
	Ranged        bool
}

// Partial reports whether the plan answers with 206.
func (p Plan) Partial() bool {
	return p.Status == http.StatusPartialContent
}

// PlanRange computes the response plan for a resource of size bytes. An empty
// header selects the whole resource. An end at or past the last byte is
// clamped and the response is downgraded to 200; the plan stays Ranged so
// the body offset is still announced.
func PlanRange(header string, size int64) (Plan, error) {
	if header == "" {
		return Plan{Status: http.StatusOK, Start: 0, End: size - 1, ContentLength: size, Size: size}, nil
	}

	start, end, hasEnd, err := parseRange(header)
	if err != nil {
		return Plan{}, err
	}
	if !hasEnd {
		end = size - 1
	}

	if start >= size || start > end {
		return Plan{}, &RangeError{Header: header, Message: msgNotSatisfiable}
	}

	status := http.StatusPartialContent
	if end >= size {
		end = size - 1
		status = http.StatusOK
	}

	return Plan{
		Status:        status,
		Start:         start,
		End:           end,
		ContentLength: end - start + 1,
		Size:          size,
		Ranged:        true,
	}, nil
}

// parseRange accepts exactly "bytes=<start>-" or "bytes=<start>-<end>".
func parseRange(header string) (start, end int64, hasEnd bool, err error) {
	malformed := &RangeError{Header: header, Message: msgMalformed}

	rangeSpec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || strings.Contains(rangeSpec, ",") {
		return 0, 0, false, malformed
	}

	first, last, ok := strings.Cut(rangeSpec, "-")
	if !ok || first == "" {
		return 0, 0, false, malformed
	}

	start, err = strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false, malformed
	}

	last = strings.TrimSpace(last)
	if last == "" {
		return start, 0, false, nil
	}
	end, err = strconv.ParseInt(last, 10, 64)
	if err != nil || end < 0 {
		return 0, 0, false, malformed
	}
	return start, end, true, nil
}
