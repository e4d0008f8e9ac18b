package server

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/moorebrett0/mochi/internal/engine"
)

// inbound is the envelope a display sends.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Numeric fields are pointers so a missing value can become NaN, which
// the engine ignores.
type orientationData struct {
	TiltX *float64 `json:"tilt_x"`
	TiltY *float64 `json:"tilt_y"`
}

type motionData struct {
	AX *float64 `json:"ax"`
	AY *float64 `json:"ay"`
	AZ *float64 `json:"az"`
}

type positionData struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
	TS  *int64   `json:"ts"` // unix milliseconds
}

type speedData struct {
	KMH *float64 `json:"kmh"`
}

type batteryData struct {
	Level    *float64 `json:"level"`
	Charging bool     `json:"charging"`
}

type gestureData struct {
	Kind string   `json:"kind"`
	DX   *float64 `json:"dx"`
	DY   *float64 `json:"dy"`
}

func num(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// decode turns one inbound frame into a call on the engine. now stamps
// positions that arrive without a timestamp.
func decode(msg []byte, now func() time.Time) (string, func(*engine.Engine), error) {
	var in inbound
	if err := json.Unmarshal(msg, &in); err != nil {
		return "", nil, fmt.Errorf("bad envelope: %w", err)
	}

	data := in.Data
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	switch in.Type {
	case "orientation":
		var d orientationData
		if err := json.Unmarshal(data, &d); err != nil {
			return in.Type, nil, err
		}
		x, y := num(d.TiltX), num(d.TiltY)
		return in.Type, func(e *engine.Engine) { e.OnOrientation(x, y) }, nil

	case "motion":
		var d motionData
		if err := json.Unmarshal(data, &d); err != nil {
			return in.Type, nil, err
		}
		ax, ay, az := num(d.AX), num(d.AY), num(d.AZ)
		return in.Type, func(e *engine.Engine) { e.OnMotion(ax, ay, az) }, nil

	case "position":
		var d positionData
		if err := json.Unmarshal(data, &d); err != nil {
			return in.Type, nil, err
		}
		fix := engine.Fix{Lat: num(d.Lat), Lon: num(d.Lon), At: now()}
		if d.TS != nil {
			fix.At = time.UnixMilli(*d.TS)
		}
		return in.Type, func(e *engine.Engine) { e.OnPosition(fix) }, nil

	case "speed":
		var d speedData
		if err := json.Unmarshal(data, &d); err != nil {
			return in.Type, nil, err
		}
		kmh := num(d.KMH)
		return in.Type, func(e *engine.Engine) { e.OnSpeedUpdate(kmh) }, nil

	case "battery":
		var d batteryData
		if err := json.Unmarshal(data, &d); err != nil {
			return in.Type, nil, err
		}
		level := num(d.Level)
		return in.Type, func(e *engine.Engine) { e.OnBattery(level, d.Charging) }, nil

	case "alert":
		return in.Type, func(e *engine.Engine) { e.OnAlert() }, nil

	case "gesture":
		var d gestureData
		if err := json.Unmarshal(data, &d); err != nil {
			return in.Type, nil, err
		}
		kind, err := engine.ParseGesture(d.Kind)
		if err != nil {
			return in.Type, nil, err
		}
		g := engine.Gesture{Kind: kind, DeltaX: num(d.DX), DeltaY: num(d.DY)}
		return in.Type, func(e *engine.Engine) { e.OnGesture(g) }, nil

	default:
		return in.Type, nil, fmt.Errorf("unknown message type %q", in.Type)
	}
}
