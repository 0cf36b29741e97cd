package retry

import (
	"net/http"
	"sort"
)

// StatusFilter selects which HTTP statuses may be retried.
//
// There are three forms:
//   - DefaultStatusFilter: 429 only
//   - StatusCodes(codes...): the listed codes; an empty list disables retries
//   - AnyStatus: no filtering, retry is decided by the error alone
type StatusFilter struct {
	codes map[int]struct{}
	any   bool
}

// DefaultStatusFilter admits only 429 Too Many Requests.
func DefaultStatusFilter() *StatusFilter {
	return StatusCodes(http.StatusTooManyRequests)
}

// StatusCodes admits exactly the given codes.
func StatusCodes(codes ...int) *StatusFilter {
	f := &StatusFilter{codes: make(map[int]struct{}, len(codes))}
	for _, c := range codes {
		f.codes[c] = struct{}{}
	}
	return f
}

// AnyStatus disables status filtering.
func AnyStatus() *StatusFilter {
	return &StatusFilter{any: true}
}

// Allows reports whether a failure with the given status may be retried.
// An error without a status passes only an AnyStatus filter.
func (f *StatusFilter) Allows(code int, known bool) bool {
	if f.any {
		return true
	}
	if !known {
		return false
	}
	_, ok := f.codes[code]
	return ok
}

// Codes returns the admitted codes in ascending order; nil for AnyStatus.
func (f *StatusFilter) Codes() []int {
	if f.any {
		return nil
	}
	out := make([]int, 0, len(f.codes))
	for c := range f.codes {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// IsAny reports whether f performs no filtering.
func (f *StatusFilter) IsAny() bool { return f.any }
