// Package transcript assembles live transcription fragments into finalized
// conversation messages and keeps a bounded history of them.
package transcript

import (
	"strings"
	"sync"
	"time"
)

// DefaultMaxMessages bounds the history of one manager.
const DefaultMaxMessages = 100

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a finalized transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store interface for transcript history.
type Store interface {
	Add(msg Message)
	Messages() []Message
}

// MemoryStore keeps the last maxSize messages.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
}

// NewStore creates a new transcript store.
func NewStore(maxMessages int) *MemoryStore {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &MemoryStore{
		messages: make([]Message, 0, maxMessages),
		maxSize:  maxMessages,
	}
}

// Add stores a message, evicting the oldest beyond maxSize.
func (s *MemoryStore) Add(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if len(s.messages) > s.maxSize {
		s.messages = s.messages[len(s.messages)-s.maxSize:]
	}
}

// Messages returns a copy of the history, oldest first.
func (s *MemoryStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Recent renders messages newer than the window as "ROLE: text" lines.
func (s *MemoryStore) Recent(window time.Duration) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-window)
	var parts []string
	for _, m := range s.messages {
		if !m.Timestamp.Before(cutoff) {
			parts = append(parts, strings.ToUpper(string(m.Role))+": "+m.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Clear drops the history.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
}
