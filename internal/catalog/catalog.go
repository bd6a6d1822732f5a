// Package catalog holds the static reference data the booking assistant
// consults: the priced test catalog, natural-language test aliases and the
// fixed two-hour collection slots.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// ErrUnavailable is returned by Err when the catalog file could not be read.
var ErrUnavailable = errors.New("catalog: test catalog unavailable")

// Status tells callers whether catalog data was actually loaded.
type Status int

const (
	StatusUnavailable Status = iota
	StatusLoaded
)

func (s Status) String() string {
	if s == StatusLoaded {
		return "loaded"
	}
	return "unavailable"
}

// Test is one priced entry in the catalog file.
type Test struct {
	Code      string `json:"test_code"`
	Name      string `json:"test_name"`
	BasePrice int    `json:"base_price"`
}

type rawTest struct {
	Code      string  `json:"test_code"`
	Name      string  `json:"test_name"`
	BasePrice float64 `json:"base_price"`
}

// Catalog is an immutable, read-only view of the test catalog. An
// unavailable catalog answers every lookup with "not found" but reports
// StatusUnavailable so callers can tell it apart from an empty file.
type Catalog struct {
	status Status
	err    error
	tests  []Test
	byCode map[string]Test
}

// New builds a loaded catalog from in-memory entries.
func New(tests []Test) *Catalog {
	c := &Catalog{
		status: StatusLoaded,
		tests:  make([]Test, 0, len(tests)),
		byCode: make(map[string]Test, len(tests)),
	}
	for _, t := range tests {
		code := strings.ToUpper(strings.TrimSpace(t.Code))
		if code == "" {
			continue
		}
		t.Code = code
		c.tests = append(c.tests, t)
		c.byCode[code] = t
	}
	return c
}

// Unavailable returns a catalog that records why loading failed.
func Unavailable(cause error) *Catalog {
	if cause == nil {
		cause = ErrUnavailable
	}
	return &Catalog{
		status: StatusUnavailable,
		err:    fmt.Errorf("%w: %v", ErrUnavailable, cause),
		byCode: map[string]Test{},
	}
}

// Load reads a JSON array of {test_code, test_name, base_price}. Any read
// or decode failure yields an unavailable catalog instead of an error.
func Load(path string) *Catalog {
	if strings.TrimSpace(path) == "" {
		return Unavailable(errors.New("no catalog path configured"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Unavailable(err)
	}
	return Parse(data)
}

// Parse decodes catalog JSON.
func Parse(data []byte) *Catalog {
	var raw []rawTest
	if err := json.Unmarshal(data, &raw); err != nil {
		return Unavailable(fmt.Errorf("decode: %w", err))
	}
	tests := make([]Test, 0, len(raw))
	for _, r := range raw {
		tests = append(tests, Test{
			Code:      r.Code,
			Name:      strings.TrimSpace(r.Name),
			BasePrice: int(math.Round(r.BasePrice)),
		})
	}
	return New(tests)
}

func (c *Catalog) Status() Status {
	if c == nil {
		return StatusUnavailable
	}
	return c.status
}

// Err returns the load failure for an unavailable catalog, nil otherwise.
func (c *Catalog) Err() error {
	if c == nil {
		return ErrUnavailable
	}
	return c.err
}

// Lookup finds a test by code, case-insensitively.
func (c *Catalog) Lookup(code string) (Test, bool) {
	if c == nil {
		return Test{}, false
	}
	t, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return t, ok
}

// Tests returns a copy of every catalog entry in file order.
func (c *Catalog) Tests() []Test {
	if c == nil {
		return nil
	}
	out := make([]Test, len(c.tests))
	copy(out, c.tests)
	return out
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tests)
}
