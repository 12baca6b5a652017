// Package playbook contains the pure selection and formatting logic for ACE
// heuristics. Storage and model calls live in the adapters and the app layer.
package playbook

import (
	"strings"
)

// Kind classifies a bullet.
type Kind string

const (
	Helpful Kind = "helpful"
	Harmful Kind = "harmful"
	Neutral Kind = "neutral"
)

// Bullet is one learned heuristic. IDs are the stable store keys derived
// from normalized text, such as "PIN-always-write-tests".
type Bullet struct {
	ID         string
	Text       string
	Kind       Kind
	Confidence float64
	Scope      string
	Tags       []string
}

// Caps on the low-value partitions of a slice.
const (
	harmfulCap = 2
	neutralCap = 2
)

// SectionHeader labels the injected prompt section.
const SectionHeader = "### Project heuristics learned (ACE)"

// Normalize reduces bullet text to its dedupe key: lowercased, non
// alphanumerics collapsed to single spaces.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Dedupe removes bullets whose normalized text repeats, keeping first
// occurrence order.
func Dedupe(bullets []Bullet) []Bullet {
	seen := make(map[string]bool, len(bullets))
	out := make([]Bullet, 0, len(bullets))
	for _, b := range bullets {
		key := Normalize(b.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

// Select returns up to sliceSize bullets: dedupe, partition, cap harmful and
// neutral at two each, fill the rest with helpful. Output order is helpful,
// harmful, neutral. Given the same input the result is identical across runs.
func Select(bullets []Bullet, sliceSize int, includeNeutral bool) []Bullet {
	if sliceSize <= 0 {
		return nil
	}
	bullets = Dedupe(bullets)

	var helpful, harmful, neutral []Bullet
	for _, b := range bullets {
		switch b.Kind {
		case Harmful:
			harmful = append(harmful, b)
		case Helpful:
			helpful = append(helpful, b)
		default:
			neutral = append(neutral, b)
		}
	}

	if len(harmful) > harmfulCap {
		harmful = harmful[:harmfulCap]
	}
	if !includeNeutral {
		neutral = nil
	} else if len(neutral) > neutralCap {
		neutral = neutral[:neutralCap]
	}

	helpfulBudget := sliceSize - len(harmful) - len(neutral)
	if helpfulBudget < 0 {
		helpfulBudget = 0
	}
	if len(helpful) > helpfulBudget {
		helpful = helpful[:helpfulBudget]
	}

	out := make([]Bullet, 0, sliceSize)
	out = append(out, helpful...)
	out = append(out, harmful...)
	remaining := sliceSize - len(out)
	if remaining < len(neutral) {
		neutral = neutral[:remaining]
	}
	out = append(out, neutral...)
	return out
}

// Marker returns the per-bullet prompt marker.
func (k Kind) Marker() string {
	switch k {
	case Harmful:
		return "[avoid]"
	case Helpful:
		return "[helpful]"
	}
	return "[note]"
}

// FormatSection renders the selected bullets into the prompt section and
// returns the bullet IDs used, for learning feedback.
func FormatSection(bullets []Bullet) (string, []string) {
	if len(bullets) == 0 {
		return "", nil
	}
	lines := []string{SectionHeader}
	ids := make([]string, 0, len(bullets))
	for _, b := range bullets {
		lines = append(lines, "- "+b.Kind.Marker()+" "+b.Text)
		if b.ID != "" {
			ids = append(ids, b.ID)
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n"), ids
}

// ScopeFor maps a command name to its playbook scope. Commands with no
// mapping do not use ACE.
func ScopeFor(command string) (string, bool) {
	name := strings.TrimPrefix(command, "speckit.")
	switch name {
	case "constitution":
		return "global", true
	case "plan":
		return "plan", true
	case "tasks":
		return "tasks", true
	case "implement":
		return "implement", true
	case "validate", "test":
		return "test", true
	}
	return "", false
}
