package playbook

import (
	"strings"
)

// Constitution extraction bounds.
const (
	minBulletLen = 10
	maxBulletLen = 140
	maxBullets   = 12
)

// PinRequest is one bullet to pin, already scoped and tagged.
type PinRequest struct {
	Scope string
	Text  string
	Kind  Kind
	Tags  []string
}

// imperative leads recognized when rewriting to imperative voice.
var imperativeLeads = []string{"always ", "never ", "must ", "should ", "do not ", "don't ", "avoid ", "prefer ", "use ", "keep ", "ensure "}

// scopeKeywords routes a bullet to a stage scope by content.
var scopeKeywords = map[string][]string{
	"implement": {"implement", "code", "refactor", "function", "module"},
	"test":      {"test", "coverage", "assert", "validate"},
	"plan":      {"plan", "design", "architecture", "estimate"},
	"tasks":     {"task", "breakdown", "ticket"},
}

// tagKeywords attaches tags by content.
var tagKeywords = map[string][]string{
	"security":    {"secret", "credential", "auth", "encrypt"},
	"performance": {"performance", "latency", "benchmark", "alloc"},
	"style":       {"format", "lint", "naming", "style"},
}

// ExtractConstitution parses a constitution markdown document into pin
// requests: imperative bullets between 10 and 140 characters, at most 12,
// each scoped and tagged by keyword and rewritten to imperative voice.
func ExtractConstitution(markdown string) []PinRequest {
	var out []PinRequest
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		marker := ""
		for _, m := range []string{"- ", "* ", "+ "} {
			if strings.HasPrefix(trimmed, m) {
				marker = m
				break
			}
		}
		if marker == "" {
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
		if len(text) < minBulletLen || len(text) > maxBulletLen {
			continue
		}
		if !isImperative(text) {
			continue
		}
		out = append(out, PinRequest{
			Scope: inferScope(text),
			Text:  rewriteImperative(text),
			Kind:  inferKind(text),
			Tags:  InferTags(text),
		})
		if len(out) == maxBullets {
			break
		}
	}
	return out
}

// GroupByScope partitions pin requests for the per-scope pin call.
func GroupByScope(reqs []PinRequest) map[string][]PinRequest {
	out := make(map[string][]PinRequest)
	for _, r := range reqs {
		out[r.Scope] = append(out[r.Scope], r)
	}
	return out
}

func isImperative(text string) bool {
	lower := strings.ToLower(text)
	for _, lead := range imperativeLeads {
		if strings.HasPrefix(lower, lead) {
			return true
		}
	}
	// "We always ..." / "You should ..." forms are rewritable.
	for _, subject := range []string{"we ", "you ", "the team "} {
		if strings.HasPrefix(lower, subject) {
			rest := lower[len(subject):]
			for _, lead := range imperativeLeads {
				if strings.HasPrefix(rest, lead) {
					return true
				}
			}
		}
	}
	return false
}

// rewriteImperative strips a leading subject so the bullet reads as a
// directive.
func rewriteImperative(text string) string {
	lower := strings.ToLower(text)
	for _, subject := range []string{"we ", "you ", "the team "} {
		if strings.HasPrefix(lower, subject) {
			rest := text[len(subject):]
			if len(rest) > 0 {
				return strings.ToUpper(rest[:1]) + rest[1:]
			}
		}
	}
	return text
}

func inferScope(text string) string {
	lower := strings.ToLower(text)
	for _, scope := range []string{"implement", "test", "plan", "tasks"} {
		for _, word := range scopeKeywords[scope] {
			if strings.Contains(lower, word) {
				return scope
			}
		}
	}
	return "global"
}

// InferTags returns content tags for a bullet.
func InferTags(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, tag := range []string{"security", "performance", "style"} {
		for _, word := range tagKeywords[tag] {
			if strings.Contains(lower, word) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

func inferKind(text string) Kind {
	lower := strings.ToLower(text)
	for _, bad := range []string{"never ", "do not ", "don't ", "avoid "} {
		if strings.HasPrefix(lower, bad) || strings.Contains(lower, " "+bad) {
			return Harmful
		}
	}
	return Helpful
}
