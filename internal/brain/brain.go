package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/expression"
	"github.com/moorebrett0/mochi/internal/persona"
)

// ErrRateLimited is returned by Say when the sliding window is full.
var ErrRateLimited = errors.New("brain: rate limited")

// Brain wraps an AI provider with persona prompts and a rate limiter.
type Brain struct {
	provider Provider
	persona  *persona.Persona
	memory   int

	mu     sync.Mutex
	recent []string // last lines said, oldest first, fed back into the prompt

	// Sliding-window rate limiter
	window  []time.Time
	rateMax int
	rateDur time.Duration
	now     func() time.Time
}

// Config for creating a Brain.
type Config struct {
	// Claude
	ClaudeAPIKey string
	ClaudeModel  string

	// Gemini
	GeminiAPIKey string
	GeminiModel  string

	// OpenAI or any compatible endpoint
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Which provider to force ("claude", "gemini", "openai", or "" for auto-detect)
	Provider string

	MaxTokens  int64
	RateLimit  int
	RateWindow time.Duration
	Memory     int // lines of recent speech sent back as context
}

// New creates a Brain. Returns nil if no API key is configured.
func New(ctx context.Context, cfg Config, p *persona.Persona) *Brain {
	provider := newProvider(ctx, cfg)
	if provider == nil {
		slog.Info("brain: no API key configured, AI speech disabled")
		return nil
	}
	return newBrain(provider, cfg, p)
}

func newBrain(provider Provider, cfg Config, p *persona.Persona) *Brain {
	return &Brain{
		provider: provider,
		persona:  p,
		memory:   cfg.Memory,
		rateMax:  cfg.RateLimit,
		rateDur:  cfg.RateWindow,
		now:      time.Now,
	}
}

// newProvider auto-detects or forces the AI provider.
func newProvider(ctx context.Context, cfg Config) Provider {
	pick := cfg.Provider

	// Auto-detect if not forced
	if pick == "" {
		switch {
		case cfg.ClaudeAPIKey != "":
			pick = "claude"
		case cfg.GeminiAPIKey != "":
			pick = "gemini"
		case cfg.OpenAIAPIKey != "":
			pick = "openai"
		}
	}

	switch pick {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=claude but ANTHROPIC_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using claude", "model", cfg.ClaudeModel)
		return newClaudeProvider(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.MaxTokens)
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=gemini but GOOGLE_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using gemini", "model", cfg.GeminiModel)
		p, err := newGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxTokens)
		if err != nil {
			slog.Error("brain: failed to create gemini provider", "err", err)
			return nil
		}
		return p
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			slog.Error("brain: AI_PROVIDER=openai but OPENAI_API_KEY is not set")
			return nil
		}
		slog.Info("brain: using openai", "model", cfg.OpenAIModel, "base_url", cfg.OpenAIBaseURL)
		return newOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.MaxTokens)
	default:
		return nil
	}
}

// Say asks the model for one short line reacting to the face and state.
func (b *Brain) Say(ctx context.Context, face expression.Face, snap engine.Snapshot) (string, error) {
	if !b.rateAllow() {
		return "", ErrRateLimited
	}

	history := []Message{{Role: RoleUser, Text: describe(face, snap)}}

	resp, err := b.provider.Send(ctx, b.buildSystemPrompt(), history)
	if err != nil {
		slog.Error("brain: AI API error", "err", err)
		return "", fmt.Errorf("AI API error: %w", err)
	}

	line := cleanLine(resp.Text)
	if line == "" {
		return "", errors.New("brain: empty response")
	}
	b.remember(line)
	return line, nil
}

func (b *Brain) remember(line string) {
	if b.memory <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recent = append(b.recent, line)
	if len(b.recent) > b.memory {
		b.recent = b.recent[len(b.recent)-b.memory:]
	}
}

func (b *Brain) buildSystemPrompt() string {
	p := b.persona

	b.mu.Lock()
	recent := strings.Join(b.recent, "\n- ")
	b.mu.Unlock()
	if recent == "" {
		recent = "(nothing yet)"
	} else {
		recent = "- " + recent
	}

	return fmt.Sprintf(`You are %s %s, a tiny animated face on a phone mounted in a car.

## Your Personality
%s

## Guidelines
- Reply with exactly one short speech-bubble line, no quotes, no emoji.
- React to what your face is showing and what the car is doing.
- Do not repeat a line you said earlier.
- Never give driving instructions.

## Lines You Said Recently
%s`,
		p.Name, p.Emoji, p.Personality, recent)
}

// describe turns the situation into the user turn.
func describe(face expression.Face, snap engine.Snapshot) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your face just changed to %q.\n", face.String())
	fmt.Fprintf(&sb, "- Speed: %.0f km/h\n", snap.Speed)
	fmt.Fprintf(&sb, "- Tilt: %.0f° sideways, %.0f° forward\n", snap.TiltX, snap.TiltY)
	fmt.Fprintf(&sb, "- Battery: %.0f%%", snap.BatteryLevel*100)
	if snap.Charging {
		sb.WriteString(" (charging)")
	}
	sb.WriteString("\n")

	var happening []string
	for _, f := range []struct {
		on   bool
		what string
	}{
		{snap.Braking, "hard braking"},
		{snap.Accelerating, "hard acceleration"},
		{snap.Shaking, "bumpy road"},
		{snap.Turning, "sharp turn"},
		{snap.Petting, "being petted"},
	} {
		if f.on {
			happening = append(happening, f.what)
		}
	}
	if len(happening) > 0 {
		fmt.Fprintf(&sb, "- Happening now: %s\n", strings.Join(happening, ", "))
	}
	return sb.String()
}

// cleanLine trims a model reply down to a single bubble.
func cleanLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"' ")
	const maxRunes = 80
	if r := []rune(s); len(r) > maxRunes {
		s = string(r[:maxRunes-1]) + "…"
	}
	return s
}

// --- Sliding-window rate limiter ---

func (b *Brain) rateAllow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	cutoff := now.Add(-b.rateDur)

	// Remove expired entries
	valid := b.window[:0]
	for _, t := range b.window {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	b.window = valid

	if len(b.window) >= b.rateMax {
		return false
	}

	b.window = append(b.window, now)
	return true
}
