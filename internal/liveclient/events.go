package liveclient

import (
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
)

// Who tells which side a transcript fragment belongs to.
type Who int

const (
	Input  Who = iota // customer speech
	Output            // assistant speech
)

func (w Who) String() string {
	if w == Input {
		return "input"
	}
	return "output"
}

// Event is one inbound message category. Consumers type-switch on it.
type Event interface{ event() }

// TranscriptFragment is partial transcript text.
type TranscriptFragment struct {
	Who  Who
	Text string
}

// TurnComplete ends the current turn.
type TurnComplete struct{}

// ToolCallBatch holds the function calls of one server message.
type ToolCallBatch struct {
	Calls []tools.Request
}

// AudioChunk is encoded assistant speech.
type AudioChunk struct {
	Data     []byte
	MIMEType string
}

// Interrupted signals barge-in: the customer spoke over the assistant.
type Interrupted struct{}

// Closed is the last event of a session. An empty Reason is a clean close.
type Closed struct {
	Reason string
	Kind   apperrors.Kind
}

func (TranscriptFragment) event() {}
func (TurnComplete) event()       {}
func (ToolCallBatch) event()      {}
func (AudioChunk) event()         {}
func (Interrupted) event()        {}
func (Closed) event()             {}
