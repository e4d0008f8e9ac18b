// Package expression defines the closed set of faces and overlay effects
// the pet can show.
package expression

import "fmt"

// Expression identifies a base face. The zero value is Resting.
type Expression uint8

const (
	Resting Expression = iota
	Wink
	Heart
	SideEye
	CarrotEyes
	Sleep
	Dizzy
	Surprised
	Excited
	Scared
	Determined
	Relaxed
	Worried
	Bored
	Cool
	Speedy
	Thinking
	Laughing
	CameraAlert

	numExpressions
)

var expressionNames = [numExpressions]string{
	Resting:     "regEyes",
	Wink:        "wink",
	Heart:       "heart",
	SideEye:     "sideEye",
	CarrotEyes:  "carrotEyes",
	Sleep:       "sleep",
	Dizzy:       "dizzy",
	Surprised:   "surprised",
	Excited:     "excited",
	Scared:      "scared",
	Determined:  "determined",
	Relaxed:     "relaxed",
	Worried:     "worried",
	Bored:       "bored",
	Cool:        "cool",
	Speedy:      "speedy",
	Thinking:    "thinking",
	Laughing:    "laughing",
	CameraAlert: "cameraAlert",
}

// All returns every expression in declaration order.
func All() []Expression {
	out := make([]Expression, 0, numExpressions)
	for e := Expression(0); e < numExpressions; e++ {
		out = append(out, e)
	}
	return out
}

// Valid reports whether e is a known expression.
func (e Expression) Valid() bool { return e < numExpressions }

func (e Expression) String() string {
	if !e.Valid() {
		return fmt.Sprintf("expression(%d)", uint8(e))
	}
	return expressionNames[e]
}

// MarshalText encodes the wire name.
func (e Expression) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("unknown expression %d", uint8(e))
	}
	return []byte(expressionNames[e]), nil
}

// UnmarshalText decodes a wire name.
func (e *Expression) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Parse looks up an expression by its wire name.
func Parse(name string) (Expression, error) {
	for i, n := range expressionNames {
		if n == name {
			return Expression(i), nil
		}
	}
	return 0, fmt.Errorf("unknown expression %q", name)
}

// Effect identifies an overlay animation drawn on top of the current face.
type Effect uint8

const (
	PetHearts Effect = iota
	Sparkle
	SpeedLines

	numEffects
)

var effectNames = [numEffects]string{
	PetHearts:  "petHearts",
	Sparkle:    "sparkle",
	SpeedLines: "speedLines",
}

// Effects returns every effect in declaration order.
func Effects() []Effect {
	out := make([]Effect, 0, numEffects)
	for fx := Effect(0); fx < numEffects; fx++ {
		out = append(out, fx)
	}
	return out
}

// Valid reports whether fx is a known effect.
func (fx Effect) Valid() bool { return fx < numEffects }

func (fx Effect) String() string {
	if !fx.Valid() {
		return fmt.Sprintf("effect(%d)", uint8(fx))
	}
	return effectNames[fx]
}

// MarshalText encodes the wire name.
func (fx Effect) MarshalText() ([]byte, error) {
	if !fx.Valid() {
		return nil, fmt.Errorf("unknown effect %d", uint8(fx))
	}
	return []byte(effectNames[fx]), nil
}

// UnmarshalText decodes a wire name.
func (fx *Effect) UnmarshalText(b []byte) error {
	for i, n := range effectNames {
		if n == string(b) {
			*fx = Effect(i)
			return nil
		}
	}
	return fmt.Errorf("unknown effect %q", string(b))
}

// Direction is the side a directional face looks or winks toward.
type Direction int8

const (
	None  Direction = 0
	Left  Direction = -1
	Right Direction = 1
)

// DirectionOf returns the direction matching the sign of x.
func DirectionOf(x float64) Direction {
	switch {
	case x > 0:
		return Right
	case x < 0:
		return Left
	default:
		return None
	}
}

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return ""
	}
}

// MarshalText encodes the direction as "left", "right" or "".
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts "left", "right" or "".
func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "left":
		*d = Left
	case "right":
		*d = Right
	case "":
		*d = None
	default:
		return fmt.Errorf("unknown direction %q", string(b))
	}
	return nil
}

// Params are the optional arguments of a face or effect.
type Params struct {
	Direction Direction `json:"direction,omitempty"`
}

// Face is a fully specified base expression.
type Face struct {
	Expression Expression `json:"expression"`
	Params     Params     `json:"params"`
}

// Of builds a Face without parameters.
func Of(e Expression) Face { return Face{Expression: e} }

// Looking builds a directional Face.
func Looking(e Expression, d Direction) Face {
	return Face{Expression: e, Params: Params{Direction: d}}
}

func (f Face) String() string {
	if f.Params.Direction == None {
		return f.Expression.String()
	}
	return f.Expression.String() + "(" + f.Params.Direction.String() + ")"
}
