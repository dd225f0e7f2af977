package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/voiceorder/internal/broker"
	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	"github.com/GriffinCanCode/voiceorder/internal/config"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/liveclient"
	"github.com/GriffinCanCode/voiceorder/internal/metrics"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator/transcript"
	"github.com/GriffinCanCode/voiceorder/internal/syncx"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// Deps are the collaborators shared by all sessions of a manager.
type Deps struct {
	Catalog catalog.Source
	Broker  broker.Broker
	Cart    tools.Cart
	Dialer  liveclient.Dialer
	Devices Devices
	Metrics *metrics.Metrics // optional
}

// Manager is the session lifecycle controller. At most one session is
// open at a time; state changes happen under mu only.
type Manager struct {
	cfg  *config.Config
	deps Deps

	mu          sync.Mutex
	state       State
	lastErr     string
	gen         uint64 // bumped whenever the current session is abandoned
	sess        *session
	cancel      context.CancelFunc // aborts an in-flight connect
	connectedAt time.Time

	volume      syncx.Float64
	transcripts *transcript.MemoryStore
	events      chan Event
}

// New creates a manager in the Disconnected state.
func New(cfg *config.Config, deps Deps) *Manager {
	if deps.Dialer == nil {
		deps.Dialer = liveclient.GenAIDialer{}
	}
	if deps.Devices == nil {
		deps.Devices = PortAudioDevices{Config: cfg}
	}
	return &Manager{
		cfg:         cfg,
		deps:        deps,
		transcripts: transcript.NewStore(transcript.DefaultMaxMessages),
		events:      make(chan Event, EventBuffer),
	}
}

// Connect opens a session. It is a no-op while connecting or connected.
// A failure leaves no resource acquired and puts the manager in Error.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == Connecting || m.state == Connected {
		m.mu.Unlock()
		return nil
	}
	m.gen++
	gen := m.gen
	// The session outlives the request that started it.
	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.lastErr = ""
	m.setStateLocked(Connecting)
	m.mu.Unlock()

	sessCtx, span := trace.StartSpan(sessCtx, "session.connect")
	log := trace.Logger(sessCtx)
	sess, err := m.open(sessCtx, cancel, gen)
	span.End()

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if sess != nil {
			sess.close()
		}
		log.Info("connect abandoned by disconnect", "span", span)
		return nil
	}
	if err != nil {
		m.cancel = nil
		m.failLocked(err)
		m.mu.Unlock()
		cancel()
		log.Error("connect failed", "span", span, "error", err)
		return err
	}
	m.cancel = nil
	m.sess = sess
	m.connectedAt = time.Now()
	m.setStateLocked(Connected)
	m.mu.Unlock()

	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionStarted()
	}
	log.Info("voice session connected", "span", span)
	sess.start()
	if err := sess.client.SendText(m.cfg.Greeting); err != nil {
		log.Warn("greeting not sent", "error", err)
	}
	return nil
}

// Disconnect tears the session down. Safe to call in any state, any
// number of times; it also aborts a connect in progress.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	sess, cancel := m.sess, m.cancel
	m.sess, m.cancel = nil, nil
	wasConnected := m.state == Connected
	started := m.connectedAt
	m.lastErr = ""
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess != nil {
		sess.close()
	}
	m.volume.Store(0)
	if wasConnected && m.deps.Metrics != nil {
		m.deps.Metrics.SessionEnded(time.Since(started))
	}
}

// remoteClosed ends session s after the service closed it. An empty reason
// is a clean close.
func (m *Manager) remoteClosed(s *session, ev liveclient.Closed) {
	m.mu.Lock()
	if m.sess != s {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.sess = nil
	started := m.connectedAt
	if ev.Reason == "" {
		m.setStateLocked(Disconnected)
	} else {
		kind, msg := apperrors.Classify(ev.Reason)
		if ev.Kind != apperrors.Unclassified {
			kind = ev.Kind
		}
		m.setErrorLocked(kind, msg)
	}
	m.mu.Unlock()

	s.close()
	m.volume.Store(0)
	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionEnded(time.Since(started))
	}
	trace.Logger(s.ctx).Info("voice session closed by service", "reason", ev.Reason)
}

// GoToCheckout asks UI clients to open the cart page.
func (m *Manager) GoToCheckout(ctx context.Context) {
	trace.Logger(ctx).Info("navigating to checkout")
	m.emit(Event{Type: EventNavigate, Path: NavigateCheckout})
}

func (m *Manager) failLocked(err error) {
	kind, msg := apperrors.Describe(err)
	m.setErrorLocked(kind, msg)
}

func (m *Manager) setErrorLocked(kind apperrors.Kind, msg string) {
	m.lastErr = msg
	m.setStateLocked(Error)
	m.emit(Event{Type: EventError, State: Error, Error: msg, Kind: kind.String()})
	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionFailed(kind.String())
	}
}

func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	m.emit(Event{Type: EventState, State: s})
}

// emit never blocks; a slow UI loses events rather than stalling audio.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		trace.Logger(context.Background()).Debug("ui event dropped", "type", ev.Type)
	}
}

func (m *Manager) emitTranscript(s *session, msg transcript.Message) {
	m.mu.Lock()
	current := m.sess == s
	m.mu.Unlock()
	if current {
		m.emit(Event{Type: EventTranscript, Message: &msg})
	}
}

// Events delivers UI events.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError is the user-facing message of the last failure, if any.
func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Volume is the current microphone level in [0, 1].
func (m *Manager) Volume() float64 { return m.volume.Load() }

// Messages returns the finalized transcript, oldest first.
func (m *Manager) Messages() []transcript.Message { return m.transcripts.Messages() }

// Transcript renders messages newer than window as text.
func (m *Manager) Transcript(window time.Duration) string { return m.transcripts.Recent(window) }

// Status is a point-in-time view for the UI.
type Status struct {
	State    State                `json:"state"`
	Error    string               `json:"error,omitempty"`
	Volume   float64              `json:"volume"`
	Messages []transcript.Message `json:"messages"`
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	st := Status{State: m.state, Error: m.lastErr}
	m.mu.Unlock()
	st.Volume = m.Volume()
	st.Messages = m.Messages()
	return st
}
