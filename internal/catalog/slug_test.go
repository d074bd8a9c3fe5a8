// internal/catalog/slug_test.go
//
// Run: go test ./internal/catalog -run Slug -v

package catalog

import (
	"strings"
	"testing"
)

func TestMakeSlug(t *testing.T) {
	cases := map[string]string{
		"Time Tracking":      "time-tracking",
		"  CRM -- Pro!  ":    "crm-pro",
		"Calendar 2":         "calendar-2",
		"Café Manager":       "caf-manager",
		"!!!":                "tool",
		"":                   "tool",
		"already-kebab-case": "already-kebab-case",
	}
	for in, want := range cases {
		if got := MakeSlug(in); got != want {
			t.Errorf("MakeSlug(%q) = %q, want %q", in, got, want)
		}
	}

	long := MakeSlug(strings.Repeat("a", 99) + " b")
	if len(long) > maxSlugLen || strings.HasSuffix(long, "-") {
		t.Errorf("long slug not trimmed: %q", long)
	}
}
