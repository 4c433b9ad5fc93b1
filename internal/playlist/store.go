package playlist

import (
	"errors"
	"sync"
)

// ErrEmptyQueue is returned when Advance is called for a chat that has no
// queued tracks. The coordinator guards every advance with a length check,
// so seeing this error means a caller skipped the guard.
var ErrEmptyQueue = errors.New("playlist: advance on empty queue")

// Store owns the per-chat track queues for the lifetime of the process.
// The outer mutex guards only the queue table; each queue carries its own
// lock, so operations for different chats never contend on each other's
// mutations.
type Store struct {
	mu     sync.RWMutex
	queues map[int64]*queue
}

type queue struct {
	mu     sync.Mutex
	tracks []Track
}

// NewStore returns an empty queue store.
func NewStore() *Store {
	return &Store{queues: make(map[int64]*queue)}
}

// chatQueue returns the chat's queue, creating it on first use. Entries
// are never removed from the table, which is bounded by the chats the
// process serves; a nil track list is what "not queued" looks like
// internally.
func (s *Store) chatQueue(chatID int64) *queue {
	s.mu.RLock()
	q, ok := s.queues[chatID]
	s.mu.RUnlock()
	if ok {
		return q
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[chatID]; ok {
		return q
	}
	q = &queue{}
	s.queues[chatID] = q
	return q
}

// Insert appends a track to the chat's queue, creating the queue when the
// chat has none. Insertion order is preserved. The return is the track's
// one-based queue position, so 1 means the track went straight to the front.
func (s *Store) Insert(chatID int64, track Track) int {
	q := s.chatQueue(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, track)
	return len(q.tracks)
}

// Current returns the currently streaming track (position zero) without
// mutating the queue. The second return is false when the chat has no queue.
func (s *Store) Current(chatID int64) (Track, bool) {
	q := s.chatQueue(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	return q.tracks[0], true
}

// Len reports the number of queued tracks for a chat, zero when absent.
func (s *Store) Len(chatID int64) int {
	q := s.chatQueue(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// Advance removes the front element, the track that just finished. The
// track list is dropped once the last element is removed so absence
// stays the canonical "not queued" state.
func (s *Store) Advance(chatID int64) error {
	q := s.chatQueue(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return ErrEmptyQueue
	}
	if len(q.tracks) == 1 {
		q.tracks = nil
		return nil
	}
	q.tracks = q.tracks[1:]
	return nil
}

// Clear drops the chat's entire queue. Clearing a chat that has no queue
// is a no-op.
func (s *Store) Clear(chatID int64) {
	q := s.chatQueue(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = nil
}

// Snapshot returns the current track and a copy of the pending tracks in
// order. The third return is false when the chat has no queue.
func (s *Store) Snapshot(chatID int64) (Track, []Track, bool) {
	q := s.chatQueue(chatID)
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return Track{}, nil, false
	}
	upcoming := make([]Track, len(q.tracks)-1)
	copy(upcoming, q.tracks[1:])
	return q.tracks[0], upcoming, true
}
