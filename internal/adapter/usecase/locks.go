package usecase

import "sync"

// CampaignLocks serializes workflow operations per campaign. The store's
// version check already rejects concurrent commits; the lock avoids
// burning executor calls on advances that would lose that race anyway.
type CampaignLocks struct {
	mu    sync.Mutex
	locks map[string]*campaignLock
}

type campaignLock struct {
	mu   sync.Mutex
	refs int
}

func NewCampaignLocks() *CampaignLocks {
	return &CampaignLocks{locks: make(map[string]*campaignLock)}
}

// Lock acquires the lock for the campaign id and returns its unlock
// function. Entries are reference counted and removed when unused.
func (l *CampaignLocks) Lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &campaignLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
