// Package spec contains the pure business logic for SPEC identity and the
// stage pipeline. This is part of the Functional Core - no I/O, only pure
// functions.
package spec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ID is a SPEC identifier of the form SPEC-<KIND>-<NNN>.
type ID string

var idPattern = regexp.MustCompile(`^SPEC-([A-Z0-9]+)-(\d{3,})$`)

// ParseID validates a raw SPEC identifier.
func ParseID(raw string) (ID, error) {
	if !idPattern.MatchString(raw) {
		return "", fmt.Errorf("invalid SPEC ID %q: expected SPEC-<KIND>-<NNN>", raw)
	}
	return ID(raw), nil
}

// Kind returns the <KIND> segment of the identifier.
func (id ID) Kind() string {
	m := idPattern.FindStringSubmatch(string(id))
	if m == nil {
		return ""
	}
	return m[1]
}

// Number returns the numeric suffix of the identifier.
func (id ID) Number() int {
	m := idPattern.FindStringSubmatch(string(id))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[2])
	return n
}

func (id ID) String() string { return string(id) }

// NextID returns the next identifier in a kind given the IDs already taken.
// Numbering is monotonic within a kind: one past the highest existing number.
func NextID(kind string, existing []ID) ID {
	highest := 0
	for _, id := range existing {
		if id.Kind() == kind && id.Number() > highest {
			highest = id.Number()
		}
	}
	return ID(fmt.Sprintf("SPEC-%s-%03d", strings.ToUpper(kind), highest+1))
}

// Slug normalizes a free-form goal into a directory slug.
func Slug(goal string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(goal) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
