package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type fakeSession struct {
	mu          sync.Mutex
	url         string
	errored     bool
	logOutCalls int
	reviveCalls int
	boundToken  string
	boundURL    string
	bindCalls   int
	onRevive    func()
}

func newFakeSession(url string) *fakeSession {
	return &fakeSession{url: url}
}

func (s *fakeSession) ConfiguredURL() string {
	return s.url
}

func (s *fakeSession) InErrorState() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errored
}

func (s *fakeSession) LogOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logOutCalls++
}

func (s *fakeSession) BindWithAdminToken(token string, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindCalls++
	s.boundToken = token
	s.boundURL = url
}

func (s *fakeSession) ReviveIfNeeded() {
	s.mu.Lock()
	s.reviveCalls++
	callback := s.onRevive
	s.mu.Unlock()
	if callback != nil {
		callback()
	}
}

func (s *fakeSession) setErrored(errored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errored = errored
}

func (s *fakeSession) logOuts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logOutCalls
}

func (s *fakeSession) revives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reviveCalls
}

func (s *fakeSession) adminBind() (string, string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundToken, s.boundURL, s.bindCalls
}

type capturingMetadataUpdater struct {
	mu      sync.Mutex
	updates []MetadataUpdate
}

func (c *capturingMetadataUpdater) PerformMetadataUpdate(update MetadataUpdate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, update)
}

func (c *capturingMetadataUpdater) Updates() []MetadataUpdate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]MetadataUpdate(nil), c.updates...)
}

type memoryMetadataStore struct {
	mu      sync.Mutex
	records map[string]UserMetadata
	setErr  error
	markErr error
}

func newMemoryMetadataStore() *memoryMetadataStore {
	return &memoryMetadataStore{records: map[string]UserMetadata{}}
}

func (s *memoryMetadataStore) SetState(_ context.Context, identity string, serverURL string, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return fmt.Errorf("identity is required")
	}
	record := s.records[identity]
	record.Identity = identity
	record.ServerURL = serverURL
	record.RefreshToken = token
	record.MarkedForRemoval = false
	s.records[identity] = record
	return nil
}

func (s *memoryMetadataStore) MarkForRemoval(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	record, ok := s.records[strings.TrimSpace(identity)]
	if !ok {
		return nil
	}
	record.MarkedForRemoval = true
	s.records[record.Identity] = record
	return nil
}

func (s *memoryMetadataStore) Get(_ context.Context, identity string) (UserMetadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[strings.TrimSpace(identity)]
	return record, ok, nil
}

func (s *memoryMetadataStore) ListActive(context.Context) ([]UserMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []UserMetadata{}
	for _, record := range s.records {
		if record.MarkedForRemoval {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *memoryMetadataStore) ReapMarked(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for identity, record := range s.records {
		if record.MarkedForRemoval {
			delete(s.records, identity)
			removed++
		}
	}
	return removed, nil
}

func (s *memoryMetadataStore) snapshot(identity string) (UserMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identity]
	return record, ok
}

type fakeJobDelivery struct {
	mu       sync.Mutex
	msg      *JobExecutionMessage
	acked    bool
	nacked   bool
	nackOpts JobNackOptions
}

func (d *fakeJobDelivery) Message() *JobExecutionMessage {
	return d.msg
}

func (d *fakeJobDelivery) Ack(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.acked = true
	return nil
}

func (d *fakeJobDelivery) Nack(_ context.Context, opts JobNackOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nacked = true
	d.nackOpts = opts
	return nil
}

func (d *fakeJobDelivery) state() (bool, bool, JobNackOptions) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked, d.nacked, d.nackOpts
}

type fakeJobQueue struct {
	mu         sync.Mutex
	deliveries []*fakeJobDelivery
	enqueueErr error
}

func (q *fakeJobQueue) Enqueue(_ context.Context, msg *JobExecutionMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.deliveries = append(q.deliveries, &fakeJobDelivery{msg: msg})
	return nil
}

func (q *fakeJobQueue) Dequeue(context.Context) (JobDelivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.deliveries) == 0 {
		return nil, fmt.Errorf("queue is empty")
	}
	next := q.deliveries[0]
	q.deliveries = q.deliveries[1:]
	return next, nil
}

func (q *fakeJobQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deliveries)
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   map[string]int64{},
		histograms: map[string]int{},
	}
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *recordingMetrics) ObserveHistogram(_ context.Context, name string, _ float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name]++
}

func (m *recordingMetrics) counter(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func newTestUser(t *testing.T, cfg Config, options ...Option) *User {
	t.Helper()
	user, err := NewUser(cfg, options...)
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	return user
}

func testUserConfig() Config {
	return Config{
		Identity:     "user_1",
		ServerURL:    "https://sync.example.com",
		RefreshToken: "token_1",
	}
}
