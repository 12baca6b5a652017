// Package artifact defines the typed capsule artifacts and their canonical
// byte encoding. Hashing and encoding are pure; storage lives in the capsule
// adapter.
package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Schema versions. Every artifact line begins with one of these.
const (
	SchemaIntakeAnswers        = "intake_answers@1.0"
	SchemaProjectIntakeAnswers = "project_intake_answers@1.0"
	SchemaDesignBrief          = "design_brief@1.0"
	SchemaProjectBrief         = "project_brief@1.0"
	SchemaPromptBundle         = "prompt_bundle@1.0"
	SchemaAgentOutput          = "agent_output@1.0"
	SchemaRoutingDecision      = "routing_decision@1.0"
	SchemaAceIntakeFrame       = "ace_intake_frame@1.0"
	SchemaAceMilestoneFrame    = "ace_milestone_frame@1.0"
	SchemaQualityGateDecision  = "quality_gate_decision@1.0"
	SchemaStageOutcome         = "stage_outcome@1.0"
	SchemaMaieuticSpec         = "maieutic_spec@1.0"
)

// URIScheme prefixes every capsule reference.
const URIScheme = "capsule://"

// Artifact is any typed capsule record.
type Artifact interface {
	Schema() string
}

// URI is a content-addressed capsule reference.
type URI string

// ParseURI validates a capsule reference.
func ParseURI(raw string) (URI, error) {
	hash, ok := strings.CutPrefix(raw, URIScheme)
	if !ok {
		return "", fmt.Errorf("invalid capsule URI %q: missing %s prefix", raw, URIScheme)
	}
	if len(hash) != 64 {
		return "", fmt.Errorf("invalid capsule URI %q: hash must be 64 hex chars", raw)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", fmt.Errorf("invalid capsule URI %q: %w", raw, err)
	}
	return URI(raw), nil
}

// Hash returns the hex hash segment of the URI.
func (u URI) Hash() string {
	return strings.TrimPrefix(string(u), URIScheme)
}

func (u URI) String() string { return string(u) }

// Canonicalize renders an artifact as its canonical bytes: compact JSON,
// UTF-8, stable key order (struct declaration order, schema_version first),
// single trailing LF, no other whitespace.
func Canonicalize(a Artifact) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %s: %w", a.Schema(), err)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("canonicalize %s: %w", a.Schema(), err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// HashBytes returns the SHA-256 hex digest of canonical bytes.
func HashBytes(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// URIFor computes the capsule URI an artifact will be stored under.
func URIFor(a Artifact) (URI, error) {
	canonical, err := Canonicalize(a)
	if err != nil {
		return "", err
	}
	return URI(URIScheme + HashBytes(canonical)), nil
}
