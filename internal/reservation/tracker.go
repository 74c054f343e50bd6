package reservation

import (
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

var ErrInvalidReservationInput = errors.New("invalid reservation input")

type entry struct {
	qty       int32
	createdAt time.Time
	updatedAt time.Time
}

// shard: itemID -> sessionID -> hold
type shard struct {
	mu    sync.RWMutex
	items map[string]map[string]*entry
}

type Reservation struct {
	SessionID string
	ItemID    string
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ItemSnapshot struct {
	ItemID          string
	ActiveCartCount int
	TotalReserved   int64
}

type Stats struct {
	TotalReservations int `json:"total_reservations"`
	UniqueSessions    int `json:"unique_sessions"`
	UniqueItems       int `json:"unique_items"`
}

// Tracker: процессный учёт мягких резервов корзин. Шардирован по itemID,
// поэтому подсчёты по одной позиции читают только один шард.
type Tracker struct {
	shards [shardCount]*shard
	ttl    time.Duration
	now    func() time.Time
}

// NewTracker: ttl == 0 отключает истечение резервов.
func NewTracker(ttl time.Duration) *Tracker {
	t := &Tracker{ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
	for i := range t.shards {
		t.shards[i] = &shard{items: make(map[string]map[string]*entry)}
	}
	return t
}

func (t *Tracker) TTL() time.Duration { return t.ttl }

func (t *Tracker) shardFor(itemID string) *shard {
	return t.shards[xxhash.Sum64String(itemID)%shardCount]
}

// Track выставляет итоговое количество для пары (session, item).
func (t *Tracker) Track(sessionID, itemID string, qty int32) error {
	if sessionID == "" || itemID == "" || qty <= 0 {
		return ErrInvalidReservationInput
	}

	now := t.now()
	s := t.shardFor(itemID)
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions, ok := s.items[itemID]
	if !ok {
		sessions = make(map[string]*entry)
		s.items[itemID] = sessions
	}
	if e, ok := sessions[sessionID]; ok {
		e.qty = qty
		e.updatedAt = now
		return nil
	}
	sessions[sessionID] = &entry{qty: qty, createdAt: now, updatedAt: now}
	return nil
}

func (t *Tracker) Release(sessionID, itemID string) {
	s := t.shardFor(itemID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(itemID, sessionID)
}

// ReleaseAll снимает все резервы сессии, возвращает число снятых.
func (t *Tracker) ReleaseAll(sessionID string) int {
	removed := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for itemID, sessions := range s.items {
			if _, ok := sessions[sessionID]; ok {
				s.removeLocked(itemID, sessionID)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// ReleaseItems снимает резервы сессии только по указанным позициям.
func (t *Tracker) ReleaseItems(sessionID string, itemIDs []string) int {
	removed := 0
	for _, itemID := range itemIDs {
		s := t.shardFor(itemID)
		s.mu.Lock()
		if s.removeLocked(itemID, sessionID) {
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

func (s *shard) removeLocked(itemID, sessionID string) bool {
	sessions, ok := s.items[itemID]
	if !ok {
		return false
	}
	if _, ok := sessions[sessionID]; !ok {
		return false
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(s.items, itemID)
	}
	return true
}

func (t *Tracker) Snapshot(itemID string) ItemSnapshot {
	s := t.shardFor(itemID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := ItemSnapshot{ItemID: itemID}
	for _, e := range s.items[itemID] {
		if e.qty > 0 {
			snap.ActiveCartCount++
			snap.TotalReserved += int64(e.qty)
		}
	}
	return snap
}

func (t *Tracker) ActiveCartCount(itemID string) int {
	return t.Snapshot(itemID).ActiveCartCount
}

func (t *Tracker) TotalReservedQuantity(itemID string) int64 {
	return t.Snapshot(itemID).TotalReserved
}

// StockWithReservations: nil (безлимит) возвращается как есть, иначе max(actual-reserved, 0).
func (t *Tracker) StockWithReservations(itemID string, actual *int32) *int32 {
	return Remaining(actual, t.TotalReservedQuantity(itemID))
}

// Remaining: остаток за вычетом резервов, не меньше нуля. nil означает безлимит.
func Remaining(actual *int32, reserved int64) *int32 {
	if actual == nil {
		return nil
	}
	left := int64(*actual) - reserved
	if left < 0 {
		left = 0
	}
	v := int32(left)
	return &v
}

// SessionItems: текущие резервы одной сессии.
func (t *Tracker) SessionItems(sessionID string) []Reservation {
	var out []Reservation
	for _, s := range t.shards {
		s.mu.RLock()
		for itemID, sessions := range s.items {
			if e, ok := sessions[sessionID]; ok {
				out = append(out, Reservation{
					SessionID: sessionID,
					ItemID:    itemID,
					Quantity:  e.qty,
					CreatedAt: e.createdAt,
					UpdatedAt: e.updatedAt,
				})
			}
		}
		s.mu.RUnlock()
	}
	return out
}

func (t *Tracker) Stats() Stats {
	var st Stats
	sessions := make(map[string]struct{})
	for _, s := range t.shards {
		s.mu.RLock()
		for _, holders := range s.items {
			st.UniqueItems++
			for sessionID := range holders {
				st.TotalReservations++
				sessions[sessionID] = struct{}{}
			}
		}
		s.mu.RUnlock()
	}
	st.UniqueSessions = len(sessions)
	return st
}

// Sweep удаляет резервы, не обновлявшиеся дольше TTL. Возвращает число удалённых.
func (t *Tracker) Sweep(now time.Time) int {
	if t.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-t.ttl)

	removed := 0
	for _, s := range t.shards {
		s.mu.Lock()
		for itemID, sessions := range s.items {
			for sessionID, e := range sessions {
				if e.updatedAt.Before(cutoff) {
					delete(sessions, sessionID)
					removed++
				}
			}
			if len(sessions) == 0 {
				delete(s.items, itemID)
			}
		}
		s.mu.Unlock()
	}
	return removed
}
