package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is applied when the caller does not supply a limit.
	DefaultLimit = 10
	// DefaultMaxLimit caps the number of rows a single request may materialize.
	DefaultMaxLimit = 100
)

// ErrInvalidParams indicates a limit or offset that is not a usable integer.
var ErrInvalidParams = errors.New("invalid pagination parameters")

// Params describes a [Offset, Offset+Limit) window over an ordered result set.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Default returns the window used when a request carries no pagination query.
func Default() Params {
	return Params{Limit: DefaultLimit, Offset: 0}
}

// Page is a materialized window together with the parameters that produced it.
type Page[T any] struct {
	Items      []T
	Pagination Params
}

// FromQuery reads limit and offset from query values. Missing values fall back to
// defaults, limits below 1 and negative offsets are rejected and the limit is
// capped at maxLimit.
func FromQuery(values url.Values, maxLimit int) (Params, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}

	params := Default()

	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: limit %q", ErrInvalidParams, raw)
		}
		if limit < 1 {
			return Params{}, fmt.Errorf("%w: limit must be at least 1", ErrInvalidParams)
		}
		params.Limit = limit
	}

	if raw := strings.TrimSpace(values.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, fmt.Errorf("%w: offset %q", ErrInvalidParams, raw)
		}
		if offset < 0 {
			return Params{}, fmt.Errorf("%w: offset must not be negative", ErrInvalidParams)
		}
		params.Offset = offset
	}

	return params.Clamp(maxLimit), nil
}

// Clamp bounds the limit to [1, maxLimit] and the offset to >= 0.
func (p Params) Clamp(maxLimit int) Params {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Window returns the slice of items covered by p. The result never aliases
// past the end of items and is empty when the offset is beyond the sequence.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) || p.Limit <= 0 {
		return []T{}
	}
	end := p.Offset + p.Limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-p.Offset)
	copy(out, items[p.Offset:end])
	return out
}

// Paginate windows an ordered sequence and wraps it with its metadata.
func Paginate[T any](items []T, p Params) Page[T] {
	return Page[T]{Items: Window(items, p), Pagination: p}
}

// NewPage wraps rows that were already windowed by the store.
func NewPage[T any](items []T, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Pagination: p}
}
