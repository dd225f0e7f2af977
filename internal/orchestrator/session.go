package orchestrator

import (
	"context"
	"errors"
	"sync"

	audiocap "github.com/GriffinCanCode/voiceorder/internal/audio"
	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	apperrors "github.com/GriffinCanCode/voiceorder/internal/errors"
	"github.com/GriffinCanCode/voiceorder/internal/knowledge"
	"github.com/GriffinCanCode/voiceorder/internal/liveclient"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator/audio"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator/playback"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator/transcript"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
	"github.com/GriffinCanCode/voiceorder/internal/trace"
)

// releaser unwinds acquired resources in reverse order.
type releaser struct {
	fns []func()
}

func (r *releaser) push(fn func()) { r.fns = append(r.fns, fn) }

func (r *releaser) unwind() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}

// session is everything one connection owns.
type session struct {
	m   *Manager
	ctx context.Context
	gen uint64

	client     *liveclient.Client
	mic        Microphone
	scheduler  *playback.Scheduler
	processor  *audio.Processor
	aggregator *transcript.Aggregator
	dispatcher *tools.Dispatcher

	release   releaser
	closeOnce sync.Once
}

// open acquires, in order: catalog snapshot, credential, speaker, microphone
// and live client. Any failure releases what was acquired so far.
func (m *Manager) open(ctx context.Context, cancel context.CancelFunc, gen uint64) (_ *session, err error) {
	s := &session{m: m, ctx: ctx, gen: gen}
	s.release.push(cancel)
	defer func() {
		if err != nil {
			s.release.unwind()
		}
	}()

	setupCtx, stop := context.WithTimeout(ctx, ConnectTimeout)
	defer stop()
	log := trace.Logger(ctx)

	snap, err := m.deps.Catalog.Snapshot(setupCtx)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", "products", len(snap.Products), "knowledge_chars", len(snap.Knowledge))

	cred, err := m.deps.Broker.Credential(setupCtx)
	if err != nil {
		return nil, err
	}
	model := cred.Model
	if model == "" {
		model = m.cfg.Model
	}
	cred.Model = model
	liveCfg := LiveConfig(snap, PromptConfig{Voice: m.cfg.Voice, KnowledgeLimit: m.cfg.KnowledgeLimit})

	speaker, err := m.deps.Devices.OpenSpeaker(m.cfg.OutputSampleRate)
	if err != nil {
		return nil, err
	}
	s.release.push(func() {
		if err := speaker.Close(); err != nil {
			log.Warn("speaker close failed", "error", err)
		}
	})
	s.scheduler = playback.NewScheduler(speaker, m.cfg.OutputSampleRate)
	s.release.push(s.scheduler.Close)

	s.mic = m.deps.Devices.Microphone()
	if err := s.mic.Start(ctx); err != nil {
		return nil, err
	}
	s.release.push(s.mic.Stop)

	client, err := liveclient.Open(setupCtx, m.deps.Dialer, cred, liveCfg, liveclient.Options{
		WireRate: audio.DefaultWireRate,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	s.client = client
	s.release.push(func() {
		if err := client.Close(); err != nil {
			log.Debug("live client close", "error", err)
		}
	})

	s.processor, err = audio.NewProcessor(client, audio.Config{
		DeviceRate: s.mic.SampleRate(),
		WireRate:   audio.DefaultWireRate,
	}, &m.volume)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.Unclassified, "capture pipeline")
	}

	s.aggregator = transcript.NewAggregator(m.transcripts)
	s.release.push(s.aggregator.Reset)

	s.dispatcher = tools.NewDispatcher(tools.Deps{
		Cart:      m.deps.Cart,
		Resolver:  catalog.NewResolver(snap.Products),
		Knowledge: knowledge.New(snap.Knowledge),
		Navigator: m,
		Currency:  m.cfg.Currency,
	})
	if met := m.deps.Metrics; met != nil {
		s.processor.OnSent(met.AudioSent)
		s.dispatcher.OnResult(met.ToolCall)
	}
	return s, nil
}

// start launches the capture and receive loops. Blocks captured while the
// session was opening are dropped so only live speech reaches the service.
func (s *session) start() {
	if n := discardPending(s.mic.Output()); n > 0 {
		trace.Logger(s.ctx).Debug("dropped pre-connect audio", "blocks", n)
	}
	go s.processor.Run(s.ctx, s.mic.Output())
	go s.receive()
}

func discardPending(in <-chan audiocap.Chunk) int {
	n := 0
	for {
		select {
		case _, ok := <-in:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

// close releases everything exactly once. It never blocks on the loops.
func (s *session) close() {
	s.closeOnce.Do(s.release.unwind)
}

func (s *session) receive() {
	log := trace.Logger(s.ctx)
	met := s.m.deps.Metrics
	for ev := range s.client.Events() {
		switch ev := ev.(type) {
		case liveclient.TranscriptFragment:
			src := transcript.Output
			if ev.Who == liveclient.Input {
				src = transcript.Input
			}
			s.aggregator.Append(src, ev.Text)
		case liveclient.TurnComplete:
			for _, msg := range s.aggregator.Finalize() {
				s.m.emitTranscript(s, msg)
			}
		case liveclient.ToolCallBatch:
			go s.dispatch(ev.Calls)
		case liveclient.AudioChunk:
			s.play(ev.Data)
		case liveclient.Interrupted:
			n := s.scheduler.Interrupt()
			s.aggregator.Interrupt()
			log.Debug("barge-in", "stopped_units", n)
			if met != nil {
				met.Interruptions.Inc()
			}
		case liveclient.Closed:
			s.m.remoteClosed(s, ev)
			return
		}
	}
}

// play schedules one audio chunk. Chunks arriving after teardown are
// ignored; only undecodable chunks count as decode errors.
func (s *session) play(data []byte) {
	met := s.m.deps.Metrics
	if _, err := s.scheduler.Enqueue(data); err != nil {
		if errors.Is(err, playback.ErrClosed) {
			return
		}
		trace.Logger(s.ctx).Warn("audio chunk skipped", "error", err, "bytes", len(data))
		if met != nil {
			met.DecodeErrors.Inc()
		}
		return
	}
	if met != nil {
		met.AudioReceived(len(data))
		met.PlaybackUnits.Inc()
	}
}

// dispatch runs one tool batch and replies to each call as it completes.
func (s *session) dispatch(calls []tools.Request) {
	ctx, cancel := context.WithTimeout(s.ctx, ToolCallTimeout)
	defer cancel()
	ctx, span := trace.StartSpan(ctx, "session.tools")
	defer span.End()
	log := trace.Logger(ctx)

	s.dispatcher.DispatchBatch(ctx, calls, func(resp tools.Response) {
		if err := s.client.SendToolResponses(resp); err != nil {
			log.Warn("tool response not sent", "tool", resp.Name, "id", resp.ID, "error", err)
		}
	})
}
