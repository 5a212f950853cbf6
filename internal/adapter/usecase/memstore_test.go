package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"adpilot/internal/core/domain"
	"adpilot/internal/core/port"
)

// memStore is an in-memory port.Store with the same contract as the
// postgres adapter: versioned commits, decide-once approvals and the
// at-most-one-pending invariant. The concurrency tests lean on it.
type memStore struct {
	mu            sync.Mutex
	campaigns     map[string]*domain.Campaign
	creatives     map[string]*domain.Creative
	samples       []domain.PerformanceSample
	approvals     map[string]*domain.Approval
	optimizations []domain.Optimization
	transitions   []domain.TransitionRecord
}

func newMemStore() *memStore {
	return &memStore{
		campaigns: make(map[string]*domain.Campaign),
		creatives: make(map[string]*domain.Creative),
		approvals: make(map[string]*domain.Approval),
	}
}

func copyCampaign(c *domain.Campaign) *domain.Campaign {
	cp := *c
	return &cp
}

func (m *memStore) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	if c.Version == 0 {
		c.Version = 1
	}
	m.campaigns[c.ID] = copyCampaign(c)
	return nil
}

func (m *memStore) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, domain.ErrCampaignNotFound
	}
	return copyCampaign(c), nil
}

func (m *memStore) ListCampaigns(_ context.Context) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Campaign, 0, len(m.campaigns))
	for _, c := range m.campaigns {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListRunning(_ context.Context) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status.Running() && !c.Archived {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CommitTransition(_ context.Context, c *domain.Campaign, effect port.TransitionEffect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.campaigns[c.ID]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	if stored.Version != c.Version {
		return domain.ErrConcurrentModification
	}
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	m.campaigns[c.ID] = copyCampaign(c)

	if cr := effect.NewCreative; cr != nil {
		if cr.ID == "" {
			cr.ID = uuid.NewString()
		}
		cr.CreatedAt = time.Now().UTC()
		cp := *cr
		m.creatives[cr.ID] = &cp
	}
	if cr := effect.UpdateCreative; cr != nil {
		cp := *cr
		cp.UpdatedAt = time.Now().UTC()
		m.creatives[cr.ID] = &cp
	}
	if rec := effect.Record; rec != nil {
		rec.ID = uuid.NewString()
		rec.CreatedAt = time.Now().UTC()
		m.transitions = append(m.transitions, *rec)
	}
	return nil
}

func (m *memStore) ArchiveCampaign(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return domain.ErrCampaignNotFound
	}
	c.Archived = true
	return nil
}

func (m *memStore) AppendAttempt(_ context.Context, rec *domain.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.NewString()
	rec.CreatedAt = time.Now().UTC()
	m.transitions = append(m.transitions, *rec)
	return nil
}

func (m *memStore) ListTransitions(_ context.Context, campaignID string) ([]domain.TransitionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.TransitionRecord
	for _, r := range m.transitions {
		if r.CampaignID == campaignID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) GetCreative(_ context.Context, id string) (*domain.Creative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cr, ok := m.creatives[id]
	if !ok {
		return nil, nil
	}
	cp := *cr
	return &cp, nil
}

func (m *memStore) LatestCreative(_ context.Context, campaignID string) (*domain.Creative, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Creative
	for _, cr := range m.creatives {
		if cr.CampaignID != campaignID {
			continue
		}
		if latest == nil || cr.CreatedAt.After(latest.CreatedAt) {
			latest = cr
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) AppendSample(_ context.Context, s *domain.PerformanceSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	m.samples = append(m.samples, *s)
	return nil
}

func (m *memStore) RecentSamples(_ context.Context, campaignID string, limit int, since time.Time) ([]domain.PerformanceSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PerformanceSample
	for _, s := range m.samples {
		if s.CampaignID == campaignID && !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) SpendSince(_ context.Context, campaignID string, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, s := range m.samples {
		if s.CampaignID == campaignID && !s.Timestamp.Before(since) {
			total += s.Spend
		}
	}
	return total, nil
}

func (m *memStore) CreateApproval(_ context.Context, a *domain.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.approvals {
		if other.CampaignID == a.CampaignID && other.Subject == a.Subject &&
			other.Status == domain.ApprovalPending {
			return domain.ErrApprovalPending // mirrors the unique index violation
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RequestedAt.IsZero() {
		a.RequestedAt = time.Now().UTC()
	}
	if a.Status == "" {
		a.Status = domain.ApprovalPending
	}
	cp := *a
	m.approvals[a.ID] = &cp
	return nil
}

func (m *memStore) GetApproval(_ context.Context, id string) (*domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvals[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) PendingApproval(_ context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.approvals {
		if a.CampaignID == campaignID && a.Subject == subject && a.Status == domain.ApprovalPending {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) LatestApproval(_ context.Context, campaignID string, subject domain.ApprovalSubject) (*domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.Approval
	for _, a := range m.approvals {
		if a.CampaignID != campaignID || a.Subject != subject {
			continue
		}
		if latest == nil || a.RequestedAt.After(latest.RequestedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memStore) ResolveApproval(_ context.Context, id string, status domain.ApprovalStatus, actor, notes string) (*domain.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.approvals[id]
	if !ok {
		return nil, domain.ErrNoPendingApproval
	}
	if a.Status != domain.ApprovalPending {
		return nil, domain.ErrAlreadyDecided
	}
	now := time.Now().UTC()
	a.Status = status
	a.DecidedAt = &now
	a.DecidedBy = actor
	a.Notes = notes
	cp := *a
	return &cp, nil
}

func (m *memStore) AppendOptimization(_ context.Context, o *domain.Optimization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	m.optimizations = append(m.optimizations, *o)
	return nil
}

func (m *memStore) ListOptimizations(_ context.Context, campaignID string) ([]domain.Optimization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Optimization
	for _, o := range m.optimizations {
		if o.CampaignID == campaignID {
			out = append(out, o)
		}
	}
	return out, nil
}

var _ port.Store = (*memStore)(nil)
