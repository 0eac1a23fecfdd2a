package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/attempt-service/internal/models"
	"github.com/SAP-F-2025/attempt-service/internal/repositories"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStore backs MockRepository. Transactions are serialized and roll back from a snapshot.
type memoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	assessments   map[string]*models.Assessment
	questions     map[uint][]*models.Question
	sessions      map[string]*models.AttemptSession
	records       []*models.AttemptRecord
	grants        map[string]*models.RewardGrant
	points        map[string]int64
	subscriptions map[string]*models.Subscription
	nextRecordID  uint

	// beforeConsume runs inside Consume before the compare-and-set
	beforeConsume    func(sessionID string)
	listErr          error
	failRecordCreate error
}

type memorySnapshot struct {
	sessions     map[string]models.AttemptSession
	records      []*models.AttemptRecord
	grants       map[string]*models.RewardGrant
	points       map[string]int64
	nextRecordID uint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		assessments:   make(map[string]*models.Assessment),
		questions:     make(map[uint][]*models.Question),
		sessions:      make(map[string]*models.AttemptSession),
		grants:        make(map[string]*models.RewardGrant),
		points:        make(map[string]int64),
		subscriptions: make(map[string]*models.Subscription),
	}
}

func (s *memoryStore) addAssessment(a *models.Assessment, questions ...*models.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments[a.Slug] = a
	for _, q := range questions {
		q.AssessmentID = a.ID
	}
	s.questions[a.ID] = append(s.questions[a.ID], questions...)
}

func (s *memoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memorySnapshot{
		sessions:     make(map[string]models.AttemptSession, len(s.sessions)),
		records:      append([]*models.AttemptRecord(nil), s.records...),
		grants:       make(map[string]*models.RewardGrant, len(s.grants)),
		points:       make(map[string]int64, len(s.points)),
		nextRecordID: s.nextRecordID,
	}
	for id, session := range s.sessions {
		snap.sessions[id] = *session
	}
	for k, v := range s.grants {
		snap.grants[k] = v
	}
	for k, v := range s.points {
		snap.points[k] = v
	}
	return snap
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*models.AttemptSession, len(snap.sessions))
	for id, session := range snap.sessions {
		cp := session
		s.sessions[id] = &cp
	}
	s.records = snap.records
	s.grants = snap.grants
	s.points = snap.points
	s.nextRecordID = snap.nextRecordID
}

func (s *memoryStore) session(id string) *models.AttemptSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		cp := *session
		return &cp
	}
	return nil
}

func (s *memoryStore) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memoryStore) balance(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[userID]
}

// MockRepository is an in-memory repositories.Repository
type MockRepository struct {
	store *memoryStore
}

func newMockRepository(store *memoryStore) *MockRepository {
	return &MockRepository{store: store}
}

func (m *MockRepository) Assessment() repositories.AssessmentRepository {
	return &mockAssessmentRepository{store: m.store}
}
func (m *MockRepository) Question() repositories.QuestionRepository {
	return &mockQuestionRepository{store: m.store}
}
func (m *MockRepository) Session() repositories.AttemptSessionRepository {
	return &mockSessionRepository{store: m.store}
}
func (m *MockRepository) Record() repositories.AttemptRecordRepository {
	return &mockRecordRepository{store: m.store}
}
func (m *MockRepository) Reward() repositories.RewardRepository {
	return &mockRewardRepository{store: m.store}
}
func (m *MockRepository) Subscription() repositories.SubscriptionRepository {
	return &mockSubscriptionRepository{store: m.store}
}
func (m *MockRepository) User() repositories.UserRepository { return nil }

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	snap := m.store.snapshot()
	if err := fn(m); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

func (m *MockRepository) Ping(ctx context.Context) error { return nil }
func (m *MockRepository) Close() error                   { return nil }

type mockAssessmentRepository struct{ store *memoryStore }

func (r *mockAssessmentRepository) GetBySlug(ctx context.Context, slug string) (*models.Assessment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if a, ok := r.store.assessments[slug]; ok {
		return a, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *mockAssessmentRepository) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range r.store.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *mockAssessmentRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Assessment, error) {
	var out []*models.Assessment
	for _, id := range ids {
		if a, err := r.GetByID(ctx, id); err == nil {
			out = append(out, a)
		}
	}
	return out, nil
}

type mockQuestionRepository struct{ store *memoryStore }

func (r *mockQuestionRepository) GetPool(ctx context.Context, assessmentID uint) ([]*models.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]*models.Question(nil), r.store.questions[assessmentID]...), nil
}

func (r *mockQuestionRepository) GetByIDs(ctx context.Context, assessmentID uint, ids []uint) ([]*models.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	want := make(map[uint]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*models.Question
	for _, q := range r.store.questions[assessmentID] {
		if want[q.ID] {
			out = append(out, q)
		}
	}
	return out, nil
}

type mockSessionRepository struct{ store *memoryStore }

func (r *mockSessionRepository) Create(ctx context.Context, session *models.AttemptSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.sessions[session.ID]; exists {
		return repositories.ErrDuplicate
	}
	cp := *session
	r.store.sessions[session.ID] = &cp
	return nil
}

func (r *mockSessionRepository) GetByID(ctx context.Context, id string) (*models.AttemptSession, error) {
	if session := r.store.session(id); session != nil {
		return session, nil
	}
	return nil, repositories.ErrNotFound
}

func (r *mockSessionRepository) Consume(ctx context.Context, id, userID string, usedAt time.Time) (int64, error) {
	if r.store.beforeConsume != nil {
		r.store.beforeConsume(id)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	session, ok := r.store.sessions[id]
	if !ok || session.UserID != userID || session.Used {
		return 0, nil
	}
	session.Used = true
	session.UsedAt = &usedAt
	return 1, nil
}

func (r *mockSessionRepository) ListExpiredUnreported(ctx context.Context, now time.Time, limit int) ([]*models.AttemptSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*models.AttemptSession
	for _, session := range r.store.sessions {
		if !session.Used && session.ExpiryReportedAt == nil && session.ExpiresAt.Before(now) {
			cp := *session
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *mockSessionRepository) MarkExpiryReported(ctx context.Context, id string, reportedAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	session, ok := r.store.sessions[id]
	if !ok || session.Used || session.ExpiryReportedAt != nil {
		return false, nil
	}
	session.ExpiryReportedAt = &reportedAt
	return true, nil
}

type mockRecordRepository struct{ store *memoryStore }

func (r *mockRecordRepository) Create(ctx context.Context, record *models.AttemptRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failRecordCreate != nil {
		return r.store.failRecordCreate
	}
	r.store.nextRecordID++
	record.ID = r.store.nextRecordID
	cp := *record
	r.store.records = append(r.store.records, &cp)
	return nil
}

func (r *mockRecordRepository) CountByUserAndAssessment(ctx context.Context, userID string, assessmentID uint) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, record := range r.store.records {
		if record.UserID == userID && record.AssessmentID == assessmentID {
			n++
		}
	}
	return n, nil
}

func (r *mockRecordRepository) ListByUser(ctx context.Context, userID string, filters repositories.RecordFilters) ([]*models.AttemptRecord, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.listErr != nil {
		return nil, 0, r.store.listErr
	}

	var matched []*models.AttemptRecord
	for _, record := range r.store.records {
		if record.UserID != userID {
			continue
		}
		if filters.AssessmentID != nil && record.AssessmentID != *filters.AssessmentID {
			continue
		}
		if filters.Passed != nil && record.Passed != *filters.Passed {
			continue
		}
		cp := *record
		for _, a := range r.store.assessments {
			if a.ID == record.AssessmentID {
				cp.Assessment = a
			}
		}
		matched = append(matched, &cp)
	}

	total := int64(len(matched))
	start := min(filters.Offset, len(matched))
	end := len(matched)
	if filters.Limit > 0 {
		end = min(start+filters.Limit, len(matched))
	}
	return matched[start:end], total, nil
}

type mockRewardRepository struct{ store *memoryStore }

func (r *mockRewardRepository) ClaimFirstCompletion(ctx context.Context, grant *models.RewardGrant) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := fmt.Sprintf("%s|%d", grant.UserID, grant.AssessmentID)
	if _, exists := r.store.grants[key]; exists {
		return false, nil
	}
	cp := *grant
	r.store.grants[key] = &cp
	return true, nil
}

func (r *mockRewardRepository) IncrementPoints(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("reward amount must be positive, got %d", amount)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.points[userID] += int64(amount)
	return nil
}

func (r *mockRewardRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	return r.store.balance(userID), nil
}

type mockSubscriptionRepository struct{ store *memoryStore }

func (r *mockSubscriptionRepository) GetActiveByUser(ctx context.Context, userID string, now time.Time) (*models.Subscription, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if sub, ok := r.store.subscriptions[userID]; ok && sub.IsActiveAt(now) {
		return sub, nil
	}
	return nil, repositories.ErrNotFound
}
