package transcript

import (
	"testing"
	"time"
)

func newTestAggregator() (*Aggregator, *MemoryStore) {
	s := NewStore(100)
	a := NewAggregator(s)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a.now = func() time.Time { return fixed }
	return a, s
}

func TestFinalizeEmitsUserThenAssistant(t *testing.T) {
	a, s := newTestAggregator()
	a.Append(Output, "Salom! ")
	a.Append(Input, "Ikkita ")
	a.Append(Output, "Nima buyurtma qilasiz?")
	a.Append(Input, "pepsi")

	msgs := a.Finalize()
	if len(msgs) != 2 {
		t.Fatalf("Finalize returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Text != "Ikkita pepsi" {
		t.Errorf("first = %+v, want user 'Ikkita pepsi'", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Text != "Salom! Nima buyurtma qilasiz?" {
		t.Errorf("second = %+v", msgs[1])
	}
	if msgs[0].ID == "" || msgs[0].ID == msgs[1].ID {
		t.Error("messages need distinct ids")
	}
	if !msgs[0].Timestamp.Equal(a.now()) {
		t.Errorf("timestamp = %v", msgs[0].Timestamp)
	}
	if len(s.Messages()) != 2 {
		t.Errorf("store holds %d messages, want 2", len(s.Messages()))
	}

	user, assistant := a.Pending()
	if user != "" || assistant != "" {
		t.Error("Finalize should clear both buffers")
	}
}

func TestFinalizeSkipsBlank(t *testing.T) {
	a, s := newTestAggregator()
	a.Append(Input, "   ")
	a.Append(Output, "\n")

	if msgs := a.Finalize(); len(msgs) != 0 {
		t.Errorf("Finalize = %+v, want none", msgs)
	}
	if len(s.Messages()) != 0 {
		t.Error("blank buffers must not reach the store")
	}
	user, assistant := a.Pending()
	if user != "" || assistant != "" {
		t.Error("blank buffers should still be cleared")
	}
}

func TestInterruptClearsAssistantOnly(t *testing.T) {
	a, _ := newTestAggregator()
	a.Append(Input, "yo'q, to'xta")
	a.Append(Output, "Sizga yana")

	a.Interrupt()

	user, assistant := a.Pending()
	if assistant != "" {
		t.Errorf("pending assistant = %q, want empty", assistant)
	}
	if user != "yo'q, to'xta" {
		t.Errorf("pending user = %q, want preserved", user)
	}
}

func TestReset(t *testing.T) {
	a, _ := newTestAggregator()
	a.Append(Input, "a")
	a.Append(Output, "b")
	a.Reset()
	if user, assistant := a.Pending(); user != "" || assistant != "" {
		t.Error("Reset should clear both buffers")
	}
}
