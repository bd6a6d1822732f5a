package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubPII(t *testing.T) {
	cases := map[string]string{
		"mail me at asha.rao@example.in":            "mail me at [EMAIL]",
		"call 9876543210 please":                    "call [PHONE] please",
		"my number is +91 98765 43210":              "my number is [PHONE]",
		"book CBC on 2026-10-16 at 10am":            "book CBC on 2026-10-16 at 10am",
		"flat 12, MG Road, Bengaluru 560001":        "flat 12, MG Road, Bengaluru 560001",
		"reach 98765-43210 or asha@lab.example.com": "reach [PHONE] or [EMAIL]",
	}
	for in, want := range cases {
		assert.Equal(t, want, ScrubPII(in), in)
	}
}
