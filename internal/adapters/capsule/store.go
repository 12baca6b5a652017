// Package capsule contains the filesystem-backed content-addressed artifact
// store and append-only event log.
package capsule

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/example/speckit/internal/ports/secondary"
)

const uriPrefix = "capsule://"

// Store implements secondary.CapsuleStore on the local filesystem.
// Artifacts live under <root>/objects/<aa>/<hash>; event logs under
// <root>/events/<spec_id>/<run_id>.jsonl.
type Store struct {
	root string

	mu   sync.Mutex
	seqs map[string]int // runKey -> last assigned seq
}

// NewStore creates a capsule store rooted at root. If root is empty it
// defaults to ~/.code/capsules.
func NewStore(root string) (*Store, error) {
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		root = filepath.Join(home, ".code", "capsules")
	}
	if err := os.MkdirAll(filepath.Join(root, "objects"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create capsule root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "events"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create event root: %w", err)
	}
	return &Store{root: root, seqs: make(map[string]int)}, nil
}

// Put stores canonical bytes write-once under their hash.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	path := s.objectPath(hash)

	if _, err := os.Stat(path); err == nil {
		// Already stored; content addressing makes this the same artifact.
		return uriPrefix + hash, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	// Temp file + rename keeps a failed put invisible. Two racing writers
	// of the same hash both rename identical bytes, so the loser is harmless.
	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}
	syncDir(dir)

	return uriPrefix + hash, nil
}

// Get retrieves the bytes behind a capsule URI.
func (s *Store) Get(ctx context.Context, uri string) ([]byte, error) {
	hash, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.objectPath(hash))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("capsule %s not found", uri)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read capsule: %w", err)
	}
	return data, nil
}

// Exists reports whether a capsule URI resolves.
func (s *Store) Exists(ctx context.Context, uri string) (bool, error) {
	hash, err := parseURI(uri)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(s.objectPath(hash))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EmitEvent appends an event to the (spec_id, run_id) log with the next
// monotonic sequence number.
func (s *Store) EmitEvent(ctx context.Context, specID, runID, kind string, payload *secondary.CapsuleEventPayload) (*secondary.CapsuleEvent, error) {
	if kind == "" {
		return nil, fmt.Errorf("event kind is required")
	}
	event := &secondary.CapsuleEvent{
		SpecID:    specID,
		RunID:     runID,
		Kind:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if payload != nil {
		event.Payload = *payload
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := specID + "/" + runID
	seq, ok := s.seqs[key]
	if !ok {
		// First append this process: recover the sequence from the log.
		events, err := s.readEvents(specID, runID)
		if err != nil {
			return nil, err
		}
		for _, e := range events {
			if e.Seq > seq {
				seq = e.Seq
			}
		}
	}
	event.Seq = seq + 1

	if err := s.appendEvent(event); err != nil {
		return nil, err
	}
	s.seqs[key] = event.Seq
	return event, nil
}

// CommitManual writes a checkpoint event used as a fence.
func (s *Store) CommitManual(ctx context.Context, specID, runID, label string) error {
	_, err := s.EmitEvent(ctx, specID, runID, "commit_manual", &secondary.CapsuleEventPayload{Label: label})
	return err
}

// ListEvents returns events for a run in sequence order.
func (s *Store) ListEvents(ctx context.Context, specID, runID, kindFilter string) ([]*secondary.CapsuleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.readEvents(specID, runID)
	if err != nil {
		return nil, err
	}
	if kindFilter == "" {
		return events, nil
	}
	filtered := events[:0]
	for _, e := range events {
		if e.Kind == kindFilter {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *Store) objectPath(hash string) string {
	return filepath.Join(s.root, "objects", hash[:2], hash)
}

func (s *Store) eventLogPath(specID, runID string) string {
	return filepath.Join(s.root, "events", specID, runID+".jsonl")
}

func (s *Store) appendEvent(event *secondary.CapsuleEvent) error {
	path := s.eventLogPath(event.SpecID, event.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create event directory: %w", err)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync event log: %w", err)
	}
	return nil
}

func (s *Store) readEvents(specID, runID string) ([]*secondary.CapsuleEvent, error) {
	f, err := os.Open(s.eventLogPath(specID, runID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	var events []*secondary.CapsuleEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event := &secondary.CapsuleEvent{}
		if err := json.Unmarshal([]byte(line), event); err != nil {
			return nil, fmt.Errorf("corrupt event log entry: %w", err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event log: %w", err)
	}
	return events, nil
}

func parseURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, uriPrefix) {
		return "", fmt.Errorf("invalid capsule URI %q", uri)
	}
	hash := strings.TrimPrefix(uri, uriPrefix)
	if len(hash) != 64 {
		return "", fmt.Errorf("invalid capsule URI %q", uri)
	}
	return hash, nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}
