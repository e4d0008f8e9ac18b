package render

import (
	"slices"
	"testing"
	"time"

	"github.com/moorebrett0/mochi/internal/clock"
	"github.com/moorebrett0/mochi/internal/expression"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type frames []Frame

func (f *frames) Show(fr Frame) { *f = append(*f, fr) }

func (f frames) kinds() []Kind {
	out := make([]Kind, len(f))
	for i, fr := range f {
		out[i] = fr.Kind
	}
	return out
}

func newStage() (*Stage, *clock.Manual, *frames) {
	clk := clock.NewManual(epoch)
	var got frames
	return NewStage(clk, nil, &got), clk, &got
}

func TestRenderSkipsSameFace(t *testing.T) {
	s, _, got := newStage()
	s.Render(expression.Heart, expression.Params{})
	s.Render(expression.Heart, expression.Params{})
	s.Render(expression.Wink, expression.Params{Direction: expression.Left})
	s.Render(expression.Wink, expression.Params{Direction: expression.Right})

	if len(*got) != 3 {
		t.Fatalf("frames = %+v, want 3 expression frames", *got)
	}
	face, ok := s.Face()
	if !ok || face != expression.Looking(expression.Wink, expression.Right) {
		t.Fatalf("Face() = %v, %v", face, ok)
	}
}

func TestExpressionChangeStopsAnimations(t *testing.T) {
	s, _, got := newStage()
	s.Render(expression.Sleep, expression.Params{})
	s.RenderEffect(expression.Sparkle, expression.Params{})
	if active := s.Active(); !slices.Equal(active, []string{"zzz", "sparkle"}) {
		t.Fatalf("active = %v", active)
	}

	s.Render(expression.Resting, expression.Params{})
	if len(s.Active()) != 0 {
		t.Fatalf("animations survived the face change: %v", s.Active())
	}
	want := []Kind{KindExpression, KindEffect, KindStop, KindStop, KindExpression}
	if !slices.Equal(got.kinds(), want) {
		t.Fatalf("kinds = %v, want %v", got.kinds(), want)
	}
	// Stops come before the new face.
	if (*got)[2].Animation != "sparkle" || (*got)[3].Animation != "zzz" {
		t.Fatalf("stop order %q, %q", (*got)[2].Animation, (*got)[3].Animation)
	}
}

func TestEffectEndsOnItsOwn(t *testing.T) {
	s, clk, got := newStage()
	s.Render(expression.Resting, expression.Params{})
	s.RenderEffect(expression.PetHearts, expression.Params{})

	clk.Advance(999 * time.Millisecond)
	if len(s.Active()) != 1 {
		t.Fatal("hearts ended early")
	}
	clk.Advance(time.Millisecond)
	if len(s.Active()) != 0 {
		t.Fatal("hearts still running after a second")
	}
	last := (*got)[len(*got)-1]
	if last.Kind != KindStop || last.Animation != "petHearts" || !last.At.Equal(epoch.Add(time.Second)) {
		t.Fatalf("last frame %+v", last)
	}
	if clk.Pending() != 0 {
		t.Fatalf("pending timers = %d", clk.Pending())
	}
}

func TestEffectRestarts(t *testing.T) {
	s, clk, _ := newStage()
	s.RenderEffect(expression.SpeedLines, expression.Params{})
	clk.Advance(time.Second)
	s.RenderEffect(expression.SpeedLines, expression.Params{})

	if n := len(s.Active()); n != 1 {
		t.Fatalf("active = %v, want a single speed-lines animation", s.Active())
	}
	if clk.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clk.Pending())
	}
	clk.Advance(1500 * time.Millisecond)
	if len(s.Active()) != 1 {
		t.Fatal("restarted effect ended on the old schedule")
	}
}

func TestSinkFunc(t *testing.T) {
	clk := clock.NewManual(epoch)
	var n int
	s := NewStage(clk, nil)
	s.AddSink(SinkFunc(func(Frame) { n++ }))
	s.Render(expression.CameraAlert, expression.Params{})
	if n != 1 || !slices.Equal(s.Active(), []string{"pulse"}) {
		t.Fatalf("n=%d active=%v", n, s.Active())
	}
}
