package brain

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/expression"
	"github.com/moorebrett0/mochi/internal/persona"
	"github.com/moorebrett0/mochi/internal/render"
)

// Speech is one speech bubble.
type Speech struct {
	Text   string          `json:"text"`
	Face   expression.Face `json:"face"`
	Source string          `json:"source"` // "ai" or "canned"
	At     time.Time       `json:"at"`
}

// SpeakerConfig tunes when the pet talks.
type SpeakerConfig struct {
	Cooldown time.Duration // minimum gap between bubbles
	Timeout  time.Duration // per AI request
}

type request struct {
	face expression.Face
	snap engine.Snapshot
	at   time.Time
}

// Speaker turns face changes into speech bubbles. Show is called on the
// engine goroutine and never blocks; Run does the talking.
type Speaker struct {
	brain   *Brain // nil means canned lines only
	persona *persona.Persona
	state   func() engine.Snapshot
	emit    func(Speech)
	cfg     SpeakerConfig
	rng     *rand.Rand

	requests chan request
	lastAt   time.Time // engine goroutine only
}

// NewSpeaker creates a Speaker. state is called from Show to capture the
// situation; emit receives every bubble.
func NewSpeaker(b *Brain, p *persona.Persona, cfg SpeakerConfig, state func() engine.Snapshot, emit func(Speech)) *Speaker {
	return &Speaker{
		brain:    b,
		persona:  p,
		state:    state,
		emit:     emit,
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		requests: make(chan request, 1),
	}
}

// Show implements render.Sink. Only faces the persona has lines for are
// spoken, at most once per cooldown, and only one request is ever queued.
func (s *Speaker) Show(fr render.Frame) {
	if fr.Kind != render.KindExpression {
		return
	}
	if len(s.persona.Lines[fr.Face.Expression]) == 0 {
		return
	}
	if !s.lastAt.IsZero() && fr.At.Sub(s.lastAt) < s.cfg.Cooldown {
		return
	}

	req := request{face: fr.Face, at: fr.At}
	if s.state != nil {
		req.snap = s.state()
	}
	select {
	case s.requests <- req:
		s.lastAt = fr.At
	default:
		slog.Debug("speaker: busy, dropping", "face", fr.Face.String())
	}
}

// Run answers queued requests until ctx is cancelled.
func (s *Speaker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.requests:
			if sp, ok := s.speak(ctx, req); ok {
				s.emit(sp)
			}
		}
	}
}

func (s *Speaker) speak(ctx context.Context, req request) (Speech, bool) {
	if s.brain != nil {
		actx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		line, err := s.brain.Say(actx, req.face, req.snap)
		cancel()
		if err == nil {
			return Speech{Text: line, Face: req.face, Source: "ai", At: req.at}, true
		}
		slog.Debug("speaker: falling back to canned line", "err", err)
	}

	line := s.persona.Line(req.face.Expression, s.rng)
	if line == "" {
		return Speech{}, false
	}
	return Speech{Text: line, Face: req.face, Source: "canned", At: req.at}, true
}
