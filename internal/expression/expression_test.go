package expression

import (
	"encoding/json"
	"testing"
)

func TestParseRoundTripsEveryExpression(t *testing.T) {
	for _, e := range All() {
		got, err := Parse(e.String())
		if err != nil {
			t.Fatalf("Parse(%q): %v", e.String(), err)
		}
		if got != e {
			t.Fatalf("Parse(%q) = %v, want %v", e.String(), got, e)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("frowny"); err == nil {
		t.Fatal("expected error for unknown expression")
	}
	if Expression(200).Valid() {
		t.Fatal("out-of-range expression reported valid")
	}
}

func TestFaceJSON(t *testing.T) {
	b, err := json.Marshal(Looking(SideEye, Left))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"expression":"sideEye","params":{"direction":"left"}}`
	if string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}

	var f Face
	if err := json.Unmarshal([]byte(`{"expression":"wink","params":{"direction":"right"}}`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f != Looking(Wink, Right) {
		t.Fatalf("got %v", f)
	}
}

func TestDirectionOf(t *testing.T) {
	tests := []struct {
		x    float64
		want Direction
	}{
		{25, Right},
		{-0.1, Left},
		{0, None},
	}
	for _, tt := range tests {
		if got := DirectionOf(tt.x); got != tt.want {
			t.Errorf("DirectionOf(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestEffectNames(t *testing.T) {
	for _, fx := range Effects() {
		b, err := fx.MarshalText()
		if err != nil {
			t.Fatalf("marshal %d: %v", fx, err)
		}
		var back Effect
		if err := back.UnmarshalText(b); err != nil || back != fx {
			t.Fatalf("round trip %s: got %v, %v", b, back, err)
		}
	}
}
