// Package templates holds the embedded prompt template library.
package templates

import (
	"embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Version identifies the embedded template set; recorded on every
// PromptBundle so prompts can be traced back to the templates that built them.
const Version = "1.2"

var tokenPattern = regexp.MustCompile(`\$\{TEMPLATE:([A-Za-z0-9_.-]+)\}`)

// Preamble returns the role preamble for a (stage, agent) pair with all
// ${TEMPLATE:*} tokens expanded. A per-agent file <stage>_<agent>.md wins
// over the stage file when present.
func Preamble(stage, agent string) (string, error) {
	for _, name := range []string{stage + "_" + agent, stage} {
		data, err := promptFS.ReadFile("prompts/" + name + ".md")
		if err != nil {
			continue
		}
		return Expand(string(data))
	}
	return "", fmt.Errorf("no template for stage %s", stage)
}

// Expand substitutes every ${TEMPLATE:<name>} token from the embedded
// library and fails loudly when a token cannot be resolved or survives
// expansion.
func Expand(text string) (string, error) {
	// Nested templates may themselves carry tokens; bound the passes.
	for range [4]int{} {
		if !tokenPattern.MatchString(text) {
			return text, nil
		}
		var missing []string
		text = tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
			name := tokenPattern.FindStringSubmatch(token)[1]
			data, err := promptFS.ReadFile("prompts/" + name + ".md")
			if err != nil {
				missing = append(missing, name)
				return token
			}
			return strings.TrimRight(string(data), "\n")
		})
		if len(missing) > 0 {
			return "", fmt.Errorf("unresolved template tokens: %s", strings.Join(missing, ", "))
		}
	}
	if tokenPattern.MatchString(text) {
		return "", fmt.Errorf("template expansion did not terminate")
	}
	return text, nil
}

// Names lists the embedded template names, for diagnostics.
func Names() []string {
	entries, err := promptFS.ReadDir("prompts")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".md"))
	}
	return names
}
