// Package runtime owns the per-session control loop: it feeds frames through
// the cue engine one at a time, keeps the virtual selection between frames
// and fans the resulting overlay document out to its sinks.
package runtime

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"cuecast.ai/internal/cues"
	"cuecast.ai/internal/cues/model"
	"cuecast.ai/internal/logging"
	"cuecast.ai/internal/persistence/indexdb"
	"cuecast.ai/internal/protocol"
	"cuecast.ai/internal/virtualsel"
)

// Sink receives every overlay document.
type Sink interface {
	Publish(doc protocol.OverlayDoc) error
}

type Recorder interface {
	WriteFrame(f protocol.FrameMsg) error
}

type Indexer interface {
	RecordFrame(r indexdb.FrameRow)
}

// FrameEnvelope is one queued frame. Ack, when set, must have room for one
// message; the loop never blocks on it.
type FrameEnvelope struct {
	Session string
	Frame   protocol.FrameMsg
	Ack     chan<- protocol.CuesMsg

	end bool
}

type Options struct {
	InboxSize int
	Sinks     []Sink
	Recorder  Recorder
	Index     Indexer
	Log       *zap.Logger
}

type Loop struct {
	engine   *cues.Engine
	inbox    chan FrameEnvelope
	sinks    []Sink
	recorder Recorder
	index    Indexer
	log      *zap.Logger

	// Believed selection per session; agents never share one.
	mu      sync.Mutex
	virtual map[string]virtualsel.Set

	processed atomic.Uint64
	dropped   atomic.Uint64
}

func New(engine *cues.Engine, opts Options) *Loop {
	n := opts.InboxSize
	if n <= 0 {
		n = 16
	}
	return &Loop{
		engine:   engine,
		inbox:    make(chan FrameEnvelope, n),
		sinks:    opts.Sinks,
		recorder: opts.Recorder,
		index:    opts.Index,
		log:      logging.OrNop(opts.Log),
		virtual:  map[string]virtualsel.Set{},
	}
}

// Submit queues a frame without blocking. It reports false when the inbox is
// full and the frame was dropped.
func (l *Loop) Submit(env FrameEnvelope) bool {
	select {
	case l.inbox <- env:
		return true
	default:
		l.dropped.Add(1)
		return false
	}
}

// End drops the session's state once the frames it already queued are done.
func (l *Loop) End(session string) {
	select {
	case l.inbox <- FrameEnvelope{Session: session, end: true}:
	default:
		l.forget(session)
	}
}

func (l *Loop) forget(session string) {
	l.mu.Lock()
	delete(l.virtual, session)
	l.mu.Unlock()
}

// Run processes frames until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-l.inbox:
			if env.end {
				l.forget(env.Session)
				continue
			}
			_, ack := l.Step(env.Session, env.Frame)
			if env.Ack != nil {
				select {
				case env.Ack <- ack:
				default:
				}
			}
		}
	}
}

// Step runs one frame synchronously. Run calls it; replay tooling calls it
// directly.
func (l *Loop) Step(session string, f protocol.FrameMsg) (protocol.OverlayDoc, protocol.CuesMsg) {
	if l.recorder != nil {
		if err := l.recorder.WriteFrame(f); err != nil {
			l.log.Warn("record frame failed", zap.Uint64("frame", f.Frame), zap.Error(err))
		}
	}

	l.mu.Lock()
	out := l.engine.ComputeFrame(f, l.virtual[session])
	if next := l.virtual[session].Apply(out.Proposal); next.Len() > 0 {
		l.virtual[session] = next
	} else {
		delete(l.virtual, session)
	}
	l.mu.Unlock()

	cueList := out.Cues
	if p, ok := l.placeholder(f.Action.Function, out); ok {
		cueList = append(cueList, p)
	}

	decision := f.Decision
	if decision == "" {
		decision = f.Action.Function
	}
	doc := protocol.OverlayDoc{
		Cues:        protocol.CuesFromModel(cueList),
		Debug:       protocol.NormalizeDebug(out.Debug),
		Observation: f.Observation,
		Decision:    decision,
		LLMConfig:   l.engine.Tuning().DecisionLLM,
	}
	for _, s := range l.sinks {
		if err := s.Publish(doc); err != nil {
			l.log.Warn("publish overlay failed", zap.Uint64("frame", f.Frame), zap.Error(err))
		}
	}
	l.processed.Add(1)

	errText, _ := out.Debug["error"].(string)
	if l.index != nil {
		source, _ := out.Debug["selectionSource"].(string)
		cameraFound, _ := out.Debug["cameraFound"].(bool)
		l.index.RecordFrame(indexdb.FrameRow{
			Frame:           f.Frame,
			Session:         session,
			Action:          f.Action.Function,
			Kind:            string(out.Kind),
			CueCount:        len(cueList),
			SelectionSource: source,
			CameraFound:     cameraFound,
			Error:           errText,
		})
	}

	ack := protocol.CuesMsg{
		Type:            protocol.TypeCues,
		ProtocolVersion: protocol.Version,
		Frame:           f.Frame,
		Accepted:        out.Code == "",
		CueCount:        len(cueList),
		Code:            out.Code,
		Message:         errText,
	}
	l.log.Debug("frame processed",
		zap.String("session", session),
		zap.Uint64("frame", f.Frame),
		zap.String("action", f.Action.Function),
		zap.Int("cues", len(cueList)))
	return doc, ack
}

// placeholder names the action in text when nothing drawable came out of a
// well-formed, non no-op frame.
func (l *Loop) placeholder(function string, out cues.Output) (model.Cue, bool) {
	t := l.engine.Tuning()
	if !t.Cues.PlaceholderText || len(out.Cues) > 0 || out.Code != "" {
		return model.Cue{}, false
	}
	fn := strings.TrimSpace(function)
	if fn == "" || strings.EqualFold(fn, "no_op") {
		return model.Cue{}, false
	}
	return model.Cue{
		Kind:   model.CueText,
		Coord:  model.CoordViewport,
		Center: model.Pixel{t.ViewportPixels / 2, min(10, t.ViewportPixels-1)},
		Color:  t.Cues.Colors.Text,
		Label:  "Action: " + out.Label,
	}, true
}

// Virtual returns the believed selection of one session.
func (l *Loop) Virtual(session string) virtualsel.Set {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.virtual[session]
}

type Stats struct {
	Processed uint64
	Dropped   uint64
	Queued    int
}

func (l *Loop) Stats() Stats {
	return Stats{Processed: l.processed.Load(), Dropped: l.dropped.Load(), Queued: len(l.inbox)}
}
