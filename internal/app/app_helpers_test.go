package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/speckit/internal/core/artifact"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

// Ensure mocks implement their ports.
var (
	_ secondary.CapsuleStore           = (*mockCapsule)(nil)
	_ secondary.WorkspaceAdapter       = (*mockWorkspace)(nil)
	_ secondary.ConsensusRunRepository = (*mockRunRepo)(nil)
	_ secondary.AgentOutputRepository  = (*mockOutputRepo)(nil)
	_ secondary.PlaybookStore          = (*mockPlaybookStore)(nil)
	_ secondary.AgentRunner            = (*mockRunner)(nil)
	_ secondary.RunLogger              = (*mockLogger)(nil)
	_ secondary.ReflectModel           = (*mockReflectModel)(nil)
	_ secondary.HalAdapter             = (*mockHal)(nil)
	_ RunnerResolver                   = (*mockResolver)(nil)
	_ primary.PlaybookService          = (*mockAce)(nil)
)

type mockCapsule struct {
	mu      sync.Mutex
	objects map[string][]byte
	events  []*secondary.CapsuleEvent
	seq     map[string]int
	putErr  error
}

func newMockCapsule() *mockCapsule {
	return &mockCapsule{
		objects: make(map[string][]byte),
		seq:     make(map[string]int),
	}
}

func (m *mockCapsule) Put(ctx context.Context, data []byte) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	uri := "capsule://" + artifact.HashBytes(data)
	if _, ok := m.objects[uri]; !ok {
		m.objects[uri] = append([]byte(nil), data...)
	}
	return uri, nil
}

func (m *mockCapsule) Get(ctx context.Context, uri string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[uri]
	if !ok {
		return nil, fmt.Errorf("capsule object not found: %s", uri)
	}
	return data, nil
}

func (m *mockCapsule) Exists(ctx context.Context, uri string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[uri]
	return ok, nil
}

func (m *mockCapsule) EmitEvent(ctx context.Context, specID, runID, kind string, payload *secondary.CapsuleEventPayload) (*secondary.CapsuleEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := specID + "/" + runID
	m.seq[key]++
	event := &secondary.CapsuleEvent{
		SpecID:    specID,
		RunID:     runID,
		Seq:       m.seq[key],
		Kind:      kind,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload != nil {
		event.Payload = *payload
	}
	m.events = append(m.events, event)
	return event, nil
}

func (m *mockCapsule) CommitManual(ctx context.Context, specID, runID, label string) error {
	_, err := m.EmitEvent(ctx, specID, runID, "CommitManual", &secondary.CapsuleEventPayload{Label: label})
	return err
}

func (m *mockCapsule) ListEvents(ctx context.Context, specID, runID, kindFilter string) ([]*secondary.CapsuleEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.CapsuleEvent
	for _, ev := range m.events {
		if ev.SpecID != specID || ev.RunID != runID {
			continue
		}
		if kindFilter != "" && ev.Kind != kindFilter {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (m *mockCapsule) eventKinds(specID, runID string) []string {
	events, _ := m.ListEvents(context.Background(), specID, runID, "")
	kinds := make([]string, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

type mockWorkspace struct {
	mu       sync.Mutex
	root     string
	docs     map[string]map[string]string // specID -> name -> content
	evidence map[string]map[string][]byte // specID -> filename -> data
	vision   string
	clean    bool
	findErr  error
}

func newMockWorkspace() *mockWorkspace {
	return &mockWorkspace{
		root:     "/repo",
		docs:     make(map[string]map[string]string),
		evidence: make(map[string]map[string][]byte),
		clean:    true,
	}
}

func (m *mockWorkspace) seedDoc(specID, name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[specID] == nil {
		m.docs[specID] = make(map[string]string)
	}
	m.docs[specID][name] = content
}

func (m *mockWorkspace) seedEvidence(specID, filename string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.evidence[specID] == nil {
		m.evidence[specID] = make(map[string][]byte)
	}
	m.evidence[specID][filename] = data
}

func (m *mockWorkspace) CreateSpecDir(ctx context.Context, specID, slug string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[specID] == nil {
		m.docs[specID] = make(map[string]string)
	}
	return m.root + "/docs/" + specID + "-" + slug, nil
}

func (m *mockWorkspace) FindSpecDir(ctx context.Context, specID string) (string, error) {
	if m.findErr != nil {
		return "", m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[specID]; !ok {
		return "", fmt.Errorf("spec directory for %s not found", specID)
	}
	return m.root + "/docs/" + specID, nil
}

func (m *mockWorkspace) WriteStageDoc(ctx context.Context, specID, name, content string) (string, error) {
	m.seedDoc(specID, name, content)
	return m.root + "/docs/" + specID + "/" + name, nil
}

func (m *mockWorkspace) ReadStageDoc(ctx context.Context, specID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.docs[specID][name]
	if !ok {
		return "", fmt.Errorf("%s not found for %s", name, specID)
	}
	return content, nil
}

func (m *mockWorkspace) StageDocExists(ctx context.Context, specID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[specID][name]
	return ok, nil
}

func (m *mockWorkspace) EvidenceDir(ctx context.Context, specID string) (string, error) {
	return m.root + "/docs/" + specID + "/evidence", nil
}

func (m *mockWorkspace) WriteEvidence(ctx context.Context, specID, filename string, data []byte) (string, error) {
	m.seedEvidence(specID, filename, data)
	return m.root + "/docs/" + specID + "/evidence/" + filename, nil
}

func (m *mockWorkspace) ListEvidence(ctx context.Context, specID, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for name := range m.evidence[specID] {
		if prefix == "" || strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *mockWorkspace) WriteVision(ctx context.Context, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vision = content
	return m.root + "/memory/NL_VISION.md", nil
}

func (m *mockWorkspace) IsWorkTreeClean(ctx context.Context) (bool, error) {
	return m.clean, nil
}

func (m *mockWorkspace) Root() string { return m.root }

type mockRunRepo struct {
	mu   sync.Mutex
	rows map[string]*secondary.ConsensusRunRecord
}

func newMockRunRepo() *mockRunRepo {
	return &mockRunRepo{rows: make(map[string]*secondary.ConsensusRunRecord)}
}

func (m *mockRunRepo) Create(ctx context.Context, run *secondary.ConsensusRunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[run.ID]; ok {
		return fmt.Errorf("duplicate run id %s", run.ID)
	}
	clone := *run
	m.rows[run.ID] = &clone
	return nil
}

func (m *mockRunRepo) GetByID(ctx context.Context, id string) (*secondary.ConsensusRunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("consensus run %s not found", id)
	}
	return row, nil
}

func (m *mockRunRepo) List(ctx context.Context, filters secondary.ConsensusRunFilters) ([]*secondary.ConsensusRunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ConsensusRunRecord
	for _, row := range m.rows {
		if filters.SpecID != "" && row.SpecID != filters.SpecID {
			continue
		}
		if filters.Stage != "" && row.Stage != filters.Stage {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunTimestamp > out[j].RunTimestamp })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (m *mockRunRepo) MarkDegraded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("consensus run %s not found", id)
	}
	row.Degraded = true
	return nil
}

func (m *mockRunRepo) SetSynthesis(ctx context.Context, id, synthesisJSON string, consensusOK bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("consensus run %s not found", id)
	}
	row.SynthesisJSON = synthesisJSON
	row.ConsensusOK = consensusOK
	return nil
}

func (m *mockRunRepo) LatestForStage(ctx context.Context, specID, stage string) (*secondary.ConsensusRunRecord, error) {
	rows, err := m.List(ctx, secondary.ConsensusRunFilters{SpecID: specID, Stage: stage, Limit: 1})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

type mockOutputRepo struct {
	mu   sync.Mutex
	rows []*secondary.AgentOutputRecord
}

func newMockOutputRepo() *mockOutputRepo { return &mockOutputRepo{} }

func (m *mockOutputRepo) Create(ctx context.Context, output *secondary.AgentOutputRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *output
	m.rows = append(m.rows, &clone)
	return nil
}

func (m *mockOutputRepo) ListByRun(ctx context.Context, runID string) ([]*secondary.AgentOutputRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.AgentOutputRecord
	for _, row := range m.rows {
		if row.RunID == runID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockOutputRepo) ListByAgent(ctx context.Context, agentName string, limit int) ([]*secondary.AgentOutputRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.AgentOutputRecord
	for _, row := range m.rows {
		if row.AgentName == agentName {
			out = append(out, row)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockPlaybookStore struct {
	mu        sync.Mutex
	bullets   map[string]*secondary.PlaybookBulletRecord
	upsertErr error
}

func newMockPlaybookStore() *mockPlaybookStore {
	return &mockPlaybookStore{bullets: make(map[string]*secondary.PlaybookBulletRecord)}
}

func (m *mockPlaybookStore) Upsert(ctx context.Context, bullet *secondary.PlaybookBulletRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *bullet
	m.bullets[bullet.ID] = &clone
	return nil
}

func (m *mockPlaybookStore) GetByID(ctx context.Context, id string) (*secondary.PlaybookBulletRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bullets[id]
	if !ok {
		return nil, fmt.Errorf("bullet %s not found", id)
	}
	return b, nil
}

func (m *mockPlaybookStore) ListByScope(ctx context.Context, scope string, limit int) ([]*secondary.PlaybookBulletRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.PlaybookBulletRecord
	for _, b := range m.bullets {
		if b.Scope == scope || b.Scope == "global" {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockPlaybookStore) RecordFeedback(ctx context.Context, id string, helpful bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bullets[id]
	if !ok {
		return fmt.Errorf("bullet %s not found", id)
	}
	if helpful {
		b.HelpfulCount++
	} else {
		b.HarmfulCount++
	}
	return nil
}

func (m *mockPlaybookStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bullets, id)
	return nil
}

// mockRunner returns scripted results per call, failing with errs until they
// run out.
type mockRunner struct {
	mu     sync.Mutex
	name   string
	result *secondary.AgentResult
	errs   []error
	calls  int
}

func newMockRunner(content string) *mockRunner {
	return &mockRunner{
		name: "mock",
		result: &secondary.AgentResult{
			Content:      content,
			ModelVersion: "mock-1",
			TokensIn:     100,
			TokensOut:    50,
			Duration:     25 * time.Millisecond,
		},
	}
}

func (m *mockRunner) Run(ctx context.Context, req secondary.AgentRequest) (*secondary.AgentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return m.result, nil
}

func (m *mockRunner) Name() string { return m.name }

type mockResolver struct {
	runner secondary.AgentRunner
	err    error
}

func (m *mockResolver) Resolve(agent spec.Agent) (secondary.AgentRunner, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.runner, nil
}

type logRecord struct {
	agent      string
	attempt    int
	errorClass string
	backoffMs  int64
}

type mockLogger struct {
	mu       sync.Mutex
	attempts []logRecord
	warns    []string
	stages   []string
}

func (m *mockLogger) LogAttempt(ctx context.Context, agent string, attempt int, errorClass string, backoffMs int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, logRecord{agent, attempt, errorClass, backoffMs})
}

func (m *mockLogger) LogStage(ctx context.Context, specID, stage, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage+": "+message)
}

func (m *mockLogger) LogWarn(ctx context.Context, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, message)
}

type mockReflectModel struct {
	reflected   []secondary.ReflectedBullet
	curated     []secondary.ReflectedBullet
	reflectErr  error
	curateErr   error
	curateCalls int
}

func (m *mockReflectModel) Reflect(ctx context.Context, transcript string) ([]secondary.ReflectedBullet, error) {
	if m.reflectErr != nil {
		return nil, m.reflectErr
	}
	return m.reflected, nil
}

func (m *mockReflectModel) Curate(ctx context.Context, existing, candidates []secondary.ReflectedBullet) ([]secondary.ReflectedBullet, error) {
	m.curateCalls++
	if m.curateErr != nil {
		return nil, m.curateErr
	}
	return m.curated, nil
}

type mockHal struct {
	mu       sync.Mutex
	monitors map[string]string
	killed   []string
}

func newMockHal() *mockHal {
	return &mockHal{monitors: make(map[string]string)}
}

func (m *mockHal) CreateRunSession(ctx context.Context, specID, workdir, monitorCmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.monitors[specID] = monitorCmd
	return nil
}

func (m *mockHal) KillRunSession(ctx context.Context, specID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.killed = append(m.killed, specID)
	return nil
}

func (m *mockHal) HasRunSession(ctx context.Context, specID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.monitors[specID]
	return ok
}

func (m *mockHal) AttachInstructions(specID string) string {
	return "tmux attach -t " + specID
}

type mockAce struct {
	section string
	ids     []string

	mu       sync.Mutex
	reflects []primary.ReflectRequest
}

func (m *mockAce) Slice(ctx context.Context, req primary.SliceRequest) (*primary.SliceResponse, error) {
	return &primary.SliceResponse{Section: m.section, BulletIDs: m.ids}, nil
}

func (m *mockAce) PinConstitution(ctx context.Context, markdown string) (*primary.PinResult, error) {
	return &primary.PinResult{}, nil
}

func (m *mockAce) ReflectCurate(ctx context.Context, req primary.ReflectRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reflects = append(m.reflects, req)
}

func (m *mockAce) reflectRequests() []primary.ReflectRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]primary.ReflectRequest(nil), m.reflects...)
}

func (m *mockAce) Feedback(ctx context.Context, bulletID string, helpful bool) error { return nil }
