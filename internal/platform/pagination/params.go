package pagination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the client omits the limit parameter.
	DefaultPageSize = 50
	// DefaultMaxPageSize caps the limit parameter to keep list queries bounded.
	DefaultMaxPageSize = 100
)

// ErrInvalidPageSize is returned when the limit parameter is not a positive integer.
var ErrInvalidPageSize = errors.New("pagination: invalid limit")

// Params carries the pagination values extracted from a list request.
type Params struct {
	PageSize  int
	PageToken string
	Cursor    Cursor
}

// Options adjust the page-size bounds for a particular endpoint.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// FromRequest reads the limit and page_token query parameters from a request.
func FromRequest(r *http.Request, opts Options) (Params, error) {
	if r == nil {
		return Params{}, errors.New("pagination: nil request")
	}
	return Parse(r.URL.Query(), opts)
}

// Parse validates the limit parameter and decodes the page token.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	pageSize, err := parseLimit(values.Get("limit"), opts)
	if err != nil {
		return Params{}, err
	}
	params := Params{PageSize: pageSize}

	token := strings.TrimSpace(values.Get("page_token"))
	if token != "" {
		cursor, err := DecodeToken(token)
		if err != nil {
			return Params{}, err
		}
		params.PageToken = token
		params.Cursor = cursor
	}

	return params, nil
}

func parseLimit(raw string, opts Options) (int, error) {
	maxSize := opts.MaxPageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxPageSize
	}
	defaultSize := opts.DefaultPageSize
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSize, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", ErrInvalidPageSize)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPageSize)
	}
	if value > maxSize {
		value = maxSize
	}
	return value, nil
}

// Must ensures PageSize carries a usable default before the params reach a query.
func Must(params Params) Params {
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	return params
}
