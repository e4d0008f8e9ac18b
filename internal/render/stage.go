// Package render turns engine output into frames for displays. A Stage
// owns the running animations of the current face and stops them
// whenever the face changes.
package render

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/moorebrett0/mochi/internal/clock"
	"github.com/moorebrett0/mochi/internal/expression"
)

// Kind is the type of a Frame.
type Kind uint8

const (
	KindExpression Kind = iota
	KindEffect
	KindStop
)

var kindNames = [...]string{"expression", "effect", "stop"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText encodes the kind name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Frame is one display instruction.
type Frame struct {
	Kind      Kind
	Face      expression.Face
	Effect    expression.Effect // KindEffect only
	Animation string            // animation started or stopped
	Duration  time.Duration     // zero runs until the next face
	At        time.Time
}

// Sink displays frames. Show is called on the engine goroutine and must
// not block.
type Sink interface {
	Show(Frame)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Frame)

func (f SinkFunc) Show(fr Frame) { f(fr) }

// decorations are animations that belong to an expression and run until
// the face changes.
var decorations = map[expression.Expression]string{
	expression.Sleep:       "zzz",
	expression.CameraAlert: "pulse",
	expression.Dizzy:       "spin",
	expression.Speedy:      "wind",
}

var effectDurations = map[expression.Effect]time.Duration{
	expression.PetHearts:  time.Second,
	expression.Sparkle:    1500 * time.Millisecond,
	expression.SpeedLines: 2 * time.Second,
}

// Animation is a running animation. It ends on its own after its
// duration, or when the Stage stops it.
type Animation struct {
	name  string
	timer clock.Timer
}

// Name returns the animation name.
func (a *Animation) Name() string { return a.name }

// Stage implements the engine's Renderer. It must be used from a single
// goroutine.
type Stage struct {
	sched  clock.Scheduler
	sinks  []Sink
	logger *slog.Logger

	face    expression.Face
	hasFace bool
	anims   []*Animation
}

// NewStage creates a Stage publishing to sinks.
func NewStage(sched clock.Scheduler, logger *slog.Logger, sinks ...Sink) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{sched: sched, sinks: sinks, logger: logger}
}

// AddSink registers another sink.
func (s *Stage) AddSink(sink Sink) { s.sinks = append(s.sinks, sink) }

// Face returns the face on screen and whether anything was rendered yet.
func (s *Stage) Face() (expression.Face, bool) { return s.face, s.hasFace }

// Active returns the names of running animations.
func (s *Stage) Active() []string {
	names := make([]string, len(s.anims))
	for i, a := range s.anims {
		names[i] = a.name
	}
	return names
}

// Render switches to a new face. Every running animation is stopped
// first. Rendering the face already on screen does nothing.
func (s *Stage) Render(e expression.Expression, p expression.Params) {
	f := expression.Face{Expression: e, Params: p}
	if s.hasFace && f == s.face {
		return
	}
	s.stopAll()
	s.face, s.hasFace = f, true
	s.publish(Frame{Kind: KindExpression, Face: f})

	if name, ok := decorations[e]; ok {
		s.start(name, 0)
	}
}

// RenderEffect plays an overlay on top of the current face. Playing an
// effect that is still running restarts it.
func (s *Stage) RenderEffect(fx expression.Effect, _ expression.Params) {
	if !fx.Valid() {
		s.logger.Warn("render: unknown effect", "effect", fx)
		return
	}
	name := fx.String()
	if i := slices.IndexFunc(s.anims, func(a *Animation) bool { return a.name == name }); i >= 0 {
		s.stop(s.anims[i])
	}
	d := effectDurations[fx]
	s.publish(Frame{Kind: KindEffect, Face: s.face, Effect: fx, Animation: name, Duration: d})
	s.start(name, d)
}

func (s *Stage) start(name string, d time.Duration) *Animation {
	a := &Animation{name: name}
	if d > 0 {
		a.timer = s.sched.AfterFunc(d, func() { s.finish(a) })
	}
	s.anims = append(s.anims, a)
	return a
}

// finish removes an animation that ran to completion.
func (s *Stage) finish(a *Animation) {
	i := slices.Index(s.anims, a)
	if i < 0 {
		return
	}
	s.anims = slices.Delete(s.anims, i, i+1)
	s.publish(Frame{Kind: KindStop, Face: s.face, Animation: a.name})
}

func (s *Stage) stop(a *Animation) {
	if a.timer != nil {
		a.timer.Stop()
	}
	s.finish(a)
}

func (s *Stage) stopAll() {
	for len(s.anims) > 0 {
		s.stop(s.anims[len(s.anims)-1])
	}
}

func (s *Stage) publish(fr Frame) {
	fr.At = s.sched.Now()
	for _, sink := range s.sinks {
		sink.Show(fr)
	}
}
