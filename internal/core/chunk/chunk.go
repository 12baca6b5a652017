// Package chunk splits large payloads along semantic boundaries so they fit
// an external sink's size cap. Concatenating the returned parts in order
// reproduces the input exactly.
package chunk

import (
	"fmt"
	"regexp"
	"strings"
)

// Part is one emitted chunk.
type Part struct {
	Name    string
	Content string
}

// Split divides content into parts no larger than cap bytes. Boundaries are
// tried in order: XML top-level elements, Mermaid subgraph boundaries, plain
// lines. When a structured split cannot keep every chunk under the cap it
// falls back to the line-based split. Parts are named "<name> (Part k/N)".
func Split(name, content string, capBytes int) []Part {
	if capBytes <= 0 || len(content) <= capBytes {
		return []Part{{Name: name, Content: content}}
	}

	segments := xmlSegments(content)
	if segments == nil {
		segments = mermaidSegments(content)
	}
	chunks := pack(segments, capBytes)
	if chunks == nil {
		chunks = pack(lineSegments(content), capBytes)
	}
	if chunks == nil {
		// A single line exceeds the cap: split on raw bytes.
		chunks = byteChunks(content, capBytes)
	}

	parts := make([]Part, len(chunks))
	for i, c := range chunks {
		parts[i] = Part{
			Name:    fmt.Sprintf("%s (Part %d/%d)", name, i+1, len(chunks)),
			Content: c,
		}
	}
	return parts
}

var xmlTopLevel = regexp.MustCompile(`(?s)<([A-Za-z][\w.-]*)(\s[^>]*)?>.*?</([A-Za-z][\w.-]*)>\s*`)

// xmlSegments splits content on top-level XML elements. Returns nil when the
// content is not element-shaped.
func xmlSegments(content string) []string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "<") {
		return nil
	}
	locations := xmlTopLevel.FindAllStringIndex(content, -1)
	if len(locations) < 2 {
		return nil
	}
	var segments []string
	prev := 0
	for _, loc := range locations {
		if loc[0] > prev {
			segments = append(segments, content[prev:loc[0]])
		}
		segments = append(segments, content[loc[0]:loc[1]])
		prev = loc[1]
	}
	if prev < len(content) {
		segments = append(segments, content[prev:])
	}
	return segments
}

// mermaidSegments splits a Mermaid document at subgraph boundaries. Returns
// nil when no subgraphs exist.
func mermaidSegments(content string) []string {
	if !strings.Contains(content, "subgraph") {
		return nil
	}
	var segments []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "subgraph") && current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		segments = append(segments, current.String())
	}
	if len(segments) < 2 {
		return nil
	}
	return segments
}

func lineSegments(content string) []string {
	return strings.SplitAfter(content, "\n")
}

// pack greedily joins segments into chunks under the cap. Returns nil when
// any single segment exceeds the cap, signalling the caller to fall back.
func pack(segments []string, capBytes int) []string {
	if segments == nil {
		return nil
	}
	var chunks []string
	var current strings.Builder
	for _, seg := range segments {
		if len(seg) > capBytes {
			return nil
		}
		if current.Len()+len(seg) > capBytes && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func byteChunks(content string, capBytes int) []string {
	var chunks []string
	for len(content) > capBytes {
		chunks = append(chunks, content[:capBytes])
		content = content[capBytes:]
	}
	if len(content) > 0 {
		chunks = append(chunks, content)
	}
	return chunks
}
