package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/speckit/internal/core/playbook"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

// AceService implements the PlaybookService port: slice retrieval for the
// assembler, constitution pinning, and the reflect+curate learning cycle.
// Everything except Slice is best-effort.
type AceService struct {
	store           secondary.PlaybookStore
	model           secondary.ReflectModel
	logger          secondary.RunLogger
	confidenceFloor float64
}

// NewAceService creates the playbook service. model may be nil; the
// reflect+curate cycle is then skipped.
func NewAceService(
	store secondary.PlaybookStore,
	model secondary.ReflectModel,
	logger secondary.RunLogger,
	confidenceFloor float64,
) *AceService {
	return &AceService{
		store:           store,
		model:           model,
		logger:          logger,
		confidenceFloor: confidenceFloor,
	}
}

// Slice returns the formatted playbook section for a scope.
func (s *AceService) Slice(ctx context.Context, req primary.SliceRequest) (*primary.SliceResponse, error) {
	records, err := s.store.ListByScope(ctx, req.Scope, req.SliceSize*3)
	if err != nil {
		return nil, fmt.Errorf("failed to list playbook bullets: %w", err)
	}
	bullets := make([]playbook.Bullet, 0, len(records))
	for _, r := range records {
		bullets = append(bullets, recordToBullet(r))
	}
	selected := playbook.Select(bullets, req.SliceSize, req.IncludeNeutral)
	section, ids := playbook.FormatSection(selected)
	return &primary.SliceResponse{Section: section, BulletIDs: ids}, nil
}

// PinConstitution extracts imperative bullets from the constitution document
// and pins them by scope. Individual pin failures are logged, never returned.
func (s *AceService) PinConstitution(ctx context.Context, markdown string) (*primary.PinResult, error) {
	reqs := playbook.ExtractConstitution(markdown)
	result := &primary.PinResult{}
	for scope, group := range playbook.GroupByScope(reqs) {
		for _, pin := range group {
			record := &secondary.PlaybookBulletRecord{
				ID:         "PIN-" + bulletKey(pin.Text),
				Text:       pin.Text,
				Kind:       string(pin.Kind),
				Confidence: 1.0,
				Scope:      scope,
				Tags:       strings.Join(pin.Tags, ","),
			}
			if err := s.store.Upsert(ctx, record); err != nil {
				s.logger.LogWarn(ctx, fmt.Sprintf("constitution pin failed for scope %s: %v", scope, err))
				result.Skipped++
				continue
			}
			result.Pinned++
		}
	}
	return result, nil
}

// ReflectCurate runs the learning cycle after a finished stage. Every failure
// path logs a warning and returns; the pipeline never observes an error.
func (s *AceService) ReflectCurate(ctx context.Context, req primary.ReflectRequest) {
	if s.model == nil {
		return
	}
	transcript := reflectInput(req)
	candidates, err := s.model.Reflect(ctx, transcript)
	if err != nil {
		s.logger.LogWarn(ctx, fmt.Sprintf("reflect for %s/%s failed: %v", req.SpecID, req.Stage, err))
		return
	}
	confident := false
	for _, c := range candidates {
		if c.Confidence >= s.confidenceFloor {
			confident = true
			break
		}
	}
	if !confident {
		return
	}

	existing, err := s.currentSlice(ctx, req.Stage)
	if err != nil {
		s.logger.LogWarn(ctx, fmt.Sprintf("playbook read for curation failed: %v", err))
		return
	}
	curated, err := s.model.Curate(ctx, existing, candidates)
	if err != nil {
		s.logger.LogWarn(ctx, fmt.Sprintf("curate for %s/%s failed: %v", req.SpecID, req.Stage, err))
		return
	}
	for _, b := range curated {
		record := &secondary.PlaybookBulletRecord{
			ID:         "ACE-" + bulletKey(b.Text),
			Text:       b.Text,
			Kind:       b.Kind,
			Confidence: b.Confidence,
			Scope:      b.Scope,
			Tags:       strings.Join(b.Tags, ","),
		}
		if err := s.store.Upsert(ctx, record); err != nil {
			s.logger.LogWarn(ctx, fmt.Sprintf("curated bullet upsert failed: %v", err))
		}
	}

	// Record usage feedback for the bullets that were in the prompt.
	helpful := req.CompileOK && req.TestsPassed
	for _, id := range req.UsedBulletIDs {
		if err := s.store.RecordFeedback(ctx, id, helpful); err != nil {
			s.logger.LogWarn(ctx, fmt.Sprintf("bullet feedback for %s failed: %v", id, err))
		}
	}
}

// Feedback records helpful/harmful feedback for a bullet.
func (s *AceService) Feedback(ctx context.Context, bulletID string, helpful bool) error {
	if err := s.store.RecordFeedback(ctx, bulletID, helpful); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	return nil
}

func (s *AceService) currentSlice(ctx context.Context, stage string) ([]secondary.ReflectedBullet, error) {
	scope, ok := playbook.ScopeFor("speckit." + stage)
	if !ok {
		scope = "global"
	}
	records, err := s.store.ListByScope(ctx, scope, 20)
	if err != nil {
		return nil, err
	}
	out := make([]secondary.ReflectedBullet, 0, len(records))
	for _, r := range records {
		out = append(out, secondary.ReflectedBullet{
			Text:       r.Text,
			Kind:       r.Kind,
			Scope:      r.Scope,
			Confidence: r.Confidence,
			Tags:       splitTags(r.Tags),
		})
	}
	return out, nil
}

// reflectInput folds the execution feedback into the transcript handed to
// the reflection model.
func reflectInput(req primary.ReflectRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage: %s\ncompile_ok: %t\ntests_passed: %t\n", req.Stage, req.CompileOK, req.TestsPassed)
	if len(req.FailingTests) > 0 {
		fmt.Fprintf(&b, "failing_tests: %s\n", strings.Join(req.FailingTests, ", "))
	}
	if req.LintCount > 0 {
		fmt.Fprintf(&b, "lint_issues: %d\n", req.LintCount)
	}
	b.WriteString("\n")
	b.WriteString(req.Transcript)
	return b.String()
}

// bulletKey derives a stable store ID from normalized bullet text.
func bulletKey(text string) string {
	key := strings.ReplaceAll(playbook.Normalize(text), " ", "-")
	if len(key) > 48 {
		key = key[:48]
	}
	return key
}

func recordToBullet(r *secondary.PlaybookBulletRecord) playbook.Bullet {
	return playbook.Bullet{
		ID:         r.ID,
		Text:       r.Text,
		Kind:       playbook.Kind(r.Kind),
		Confidence: r.Confidence,
		Scope:      r.Scope,
		Tags:       splitTags(r.Tags),
	}
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var _ primary.PlaybookService = (*AceService)(nil)
