package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/persona"
)

// Runner runs fn on the engine goroutine and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Reply is the answer to a slash command.
type Reply struct {
	Text      string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Router turns Discord commands and messages into gestures on the pet.
type Router struct {
	loop    Runner
	eng     *engine.Engine
	persona *persona.Persona
	isOwner func(userID string) bool
}

// NewRouter creates a router and wires it to the bot.
func NewRouter(bot *Bot, loop Runner, eng *engine.Engine) *Router {
	r := newRouter(loop, eng, bot.persona, bot.IsOwner)
	bot.SetRouter(r)
	return r
}

func newRouter(loop Runner, eng *engine.Engine, p *persona.Persona, isOwner func(string) bool) *Router {
	return &Router{loop: loop, eng: eng, persona: p, isOwner: isOwner}
}

// snapshot reads the engine state on the loop.
func (r *Router) snapshot(ctx context.Context) (engine.Snapshot, error) {
	var snap engine.Snapshot
	err := r.loop.Do(ctx, func() { snap = r.eng.Snapshot() })
	return snap, err
}

// HandleCommand runs a slash command for userID.
func (r *Router) HandleCommand(ctx context.Context, name, userID string) Reply {
	p := r.persona

	switch name {
	case "mood":
		snap, err := r.snapshot(ctx)
		if err != nil {
			return r.unavailable(err)
		}
		return Reply{Embed: MoodEmbed(snap, p)}

	case "poke":
		var snap engine.Snapshot
		err := r.loop.Do(ctx, func() {
			snap = r.eng.Snapshot()
			r.eng.OnGesture(engine.Gesture{Kind: engine.Tap})
		})
		if err != nil {
			return r.unavailable(err)
		}
		if snap.Sleeping && !snap.Waking {
			return Reply{Text: TemplateWake(p)}
		}
		return Reply{Text: fmt.Sprintf("%s You poke %s.", p.Emoji, p.Name)}

	case "pet":
		var snap engine.Snapshot
		err := r.loop.Do(ctx, func() {
			snap = r.eng.Snapshot()
			r.stroke()
		})
		if err != nil {
			return r.unavailable(err)
		}
		if snap.Sleeping || snap.Waking {
			return Reply{Text: fmt.Sprintf("%s %s is asleep. Try /poke.", p.Emoji, p.Name)}
		}
		return Reply{Text: TemplateAffection(p)}

	case "wake":
		if !r.isOwner(userID) {
			return r.notOwner()
		}
		var wasAsleep bool
		err := r.loop.Do(ctx, func() {
			s := r.eng.Snapshot()
			wasAsleep = s.Sleeping && !s.Waking
			r.eng.Wake()
		})
		if err != nil {
			return r.unavailable(err)
		}
		if !wasAsleep {
			return Reply{Text: fmt.Sprintf("%s %s is already awake.", p.Emoji, p.Name)}
		}
		return Reply{Text: TemplateWake(p)}

	case "nap":
		if !r.isOwner(userID) {
			return r.notOwner()
		}
		var snap engine.Snapshot
		err := r.loop.Do(ctx, func() {
			snap = r.eng.Snapshot()
			r.eng.OnGesture(engine.Gesture{Kind: engine.LongPressStart})
		})
		if err != nil {
			return r.unavailable(err)
		}
		if snap.Sleeping || snap.Waking {
			return Reply{Text: fmt.Sprintf("%s %s is already asleep.", p.Emoji, p.Name)}
		}
		return Reply{Text: TemplateNap(p)}

	case "help":
		return Reply{Text: TemplateHelp(p)}

	default:
		return Reply{Text: "Unknown command.", Ephemeral: true}
	}
}

// stroke plays one full petting stroke: enough qualifying drag steps to
// escalate once, then the finger lifts. It runs on the loop.
func (r *Router) stroke() {
	cfg := r.eng.Config()
	dy := cfg.PetMinStroke * 2
	for range cfg.PetEscalateEvery {
		r.eng.OnGesture(engine.Gesture{Kind: engine.DragStep, DeltaY: dy})
	}
	r.eng.OnGesture(engine.Gesture{Kind: engine.LongPressEnd})
}

// HandleMessage reacts to a free-form channel message. It returns the
// reply to post, or "" to stay quiet.
func (r *Router) HandleMessage(ctx context.Context, text string, mentioned bool) string {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return ""
	}
	p := r.persona

	switch {
	case matchesAffection(text):
		if err := r.loop.Do(ctx, r.stroke); err != nil {
			slog.Debug("router: loop unavailable", "err", err)
			return ""
		}
		return TemplateAffection(p)

	case matchesGreeting(text):
		if err := r.loop.Do(ctx, func() { r.eng.OnGesture(engine.Gesture{Kind: engine.Tap}) }); err != nil {
			slog.Debug("router: loop unavailable", "err", err)
			return ""
		}
		return fmt.Sprintf("%s %s %s!", p.Emoji, p.Name, p.Verbs.Greet)

	case mentioned:
		return TemplateIdleBehavior(p)
	}

	// Not mentioned and no pattern match: stay quiet.
	return ""
}

func (r *Router) notOwner() Reply {
	return Reply{
		Text:      fmt.Sprintf("%s nice try. only my owner gets to do that.", r.persona.Emoji),
		Ephemeral: true,
	}
}

func (r *Router) unavailable(err error) Reply {
	slog.Error("router: engine unavailable", "err", err)
	return Reply{Text: fmt.Sprintf("%s ...", r.persona.Emoji), Ephemeral: true}
}

// --- Pattern matchers ---

func matchesAffection(text string) bool {
	patterns := []string{
		"good boy", "good girl", "good pet",
		"pet you", "scratch", "belly rub", "head pat", "pat pat",
		"love you", "cuddle", "snuggle", "hug", "boop",
	}
	return containsAny(text, patterns)
}

func matchesGreeting(text string) bool {
	patterns := []string{
		"hello", "hey", "howdy", "hiya", "heya",
		"good morning", "good evening",
		"what's up", "whats up",
	}
	return containsAny(text, patterns)
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
