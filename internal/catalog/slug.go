// internal/catalog/slug.go
//
// MakeSlug converts arbitrary text into a slug restricted to ASCII a-z,
// 0-9 and “-”.  Used by the seeder when an entry omits its slug.  The
// pattern check on create and update is the validator's "slug" rule
// (internal/validate).
//
// Rules (MakeSlug)
// ----------------
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one “-”.  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Trim leading / trailing “-”.
// 4. If the result is empty, return "tool".
//
// Notes
// -----
// • Validation is case-sensitive: "My-Tool" is rejected, never folded.
// • Slugs are max 100 bytes, matching the tool_type.slug column.

package catalog

import "strings"

const maxSlugLen = 100

// MakeSlug converts name → lower-kebab ASCII.
func MakeSlug(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastWasDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "tool"
	}
	if len(slug) > maxSlugLen {
		slug = strings.TrimRight(slug[:maxSlugLen], "-")
	}
	return slug
}
