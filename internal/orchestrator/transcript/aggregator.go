package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Source tells which side of the conversation a fragment transcribes.
type Source int

const (
	Input  Source = iota // the customer's speech
	Output               // the assistant's speech
)

// Aggregator accumulates fragments per role until the turn completes.
type Aggregator struct {
	mu               sync.Mutex
	pendingUser      strings.Builder
	pendingAssistant strings.Builder
	store            Store
	now              func() time.Time
}

// NewAggregator creates an aggregator writing finalized messages to store.
func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// Append adds fragment text in arrival order.
func (a *Aggregator) Append(src Source, text string) {
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if src == Input {
		a.pendingUser.WriteString(text)
	} else {
		a.pendingAssistant.WriteString(text)
	}
}

// Finalize emits the non-blank pending buffers as messages, user first, and
// clears both.
func (a *Aggregator) Finalize() []Message {
	a.mu.Lock()
	user, assistant := a.pendingUser.String(), a.pendingAssistant.String()
	a.pendingUser.Reset()
	a.pendingAssistant.Reset()
	a.mu.Unlock()

	var out []Message
	if t := strings.TrimSpace(user); t != "" {
		out = append(out, a.message(RoleUser, t))
	}
	if t := strings.TrimSpace(assistant); t != "" {
		out = append(out, a.message(RoleAssistant, t))
	}
	for _, m := range out {
		a.store.Add(m)
	}
	return out
}

// Interrupt voids the assistant's pending output; the user's is kept.
func (a *Aggregator) Interrupt() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingAssistant.Reset()
}

// Reset clears both buffers without emitting.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingUser.Reset()
	a.pendingAssistant.Reset()
}

// Pending returns the current buffers.
func (a *Aggregator) Pending() (user, assistant string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pendingUser.String(), a.pendingAssistant.String()
}

func (a *Aggregator) message(role Role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, Timestamp: a.now()}
}
