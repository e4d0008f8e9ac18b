package discord

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/expression"
	"github.com/moorebrett0/mochi/internal/persona"
)

// progressBar renders a visual bar like ████████░░ 78%
func progressBar(value float64, width int) string {
	filled := int(value / 100 * float64(width))
	filled = max(0, min(filled, width))
	empty := width - filled
	return fmt.Sprintf("%s%s %.0f%%", strings.Repeat("█", filled), strings.Repeat("░", empty), value)
}

// phaseColor returns a Discord embed color for the phase.
func phaseColor(p engine.Phase) int {
	switch p {
	case engine.PhaseAwake:
		return 0x57F287 // green
	case engine.PhaseTransient:
		return 0xFEE75C // yellow
	case engine.PhaseResting:
		return 0x5865F2 // blurple
	case engine.PhaseSleeping:
		return 0x99AAB5 // grey
	case engine.PhaseWaking:
		return 0xEB459E // fuchsia
	default:
		return 0x5865F2
	}
}

// MoodEmbed builds a rich embed for /mood.
func MoodEmbed(snap engine.Snapshot, p *persona.Persona) *discordgo.MessageEmbed {
	battery := progressBar(snap.BatteryLevel*100, 10)
	if snap.Charging {
		battery += " ⚡"
	}
	ride := fmt.Sprintf("\U0001F697 %.0f km/h | ↗ tilt %.0f°/%.0f°",
		snap.Speed, snap.TiltX, snap.TiltY)

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", p.Emoji, p.Name),
		Description: fmt.Sprintf("%s %s | %s", faceEmoji(snap.Face.Expression), snap.Face.String(), snap.Phase),
		Color:       phaseColor(snap.Phase),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Battery", Value: "```\n" + battery + "\n```", Inline: false},
			{Name: "Ride", Value: ride, Inline: false},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func TemplateAffection(p *persona.Persona) string {
	return fmt.Sprintf("%s You stroke %s. %s %s!", p.Emoji, p.Name, p.Name, p.Verbs.Happy)
}

func TemplateIdleBehavior(p *persona.Persona) string {
	if len(p.IdleBehaviors) == 0 {
		return fmt.Sprintf("%s ...", p.Emoji)
	}
	behavior := p.IdleBehaviors[rand.IntN(len(p.IdleBehaviors))]
	return fmt.Sprintf("%s %s %s.", p.Emoji, p.Name, behavior)
}

func TemplateWake(p *persona.Persona) string {
	return fmt.Sprintf("%s %s %s.", p.Emoji, p.Name, p.Verbs.Wake)
}

func TemplateNap(p *persona.Persona) string {
	return fmt.Sprintf("%s You hold %s gently...", p.Emoji, p.Name)
}

func TemplateSleep(p *persona.Persona) string {
	return fmt.Sprintf("\U0001F4A4 %s %s.", p.Name, p.Verbs.Sleep)
}

func TemplateDistressAlert(p *persona.Persona, reason string) string {
	return fmt.Sprintf("⚠️ %s %s %s!\n%s", p.Emoji, p.Name, p.Verbs.Distress, reason)
}

func TemplateBoredomMessage(p *persona.Persona) string {
	behavior := ""
	if len(p.IdleBehaviors) > 0 {
		behavior = p.IdleBehaviors[rand.IntN(len(p.IdleBehaviors))]
	}
	return fmt.Sprintf("%s %s is getting bored... %s\nCome say hi!", p.Emoji, p.Name, behavior)
}

func TemplateHelp(p *persona.Persona) string {
	return fmt.Sprintf("**%s Commands**\n\n"+
		"`/mood` - See what %s's face is doing\n"+
		"`/poke` - Tap %s\n"+
		"`/pet` - Give %s a few strokes\n"+
		"`/wake` - Wake %s up (owner)\n"+
		"`/nap` - Hold %s until they doze off (owner)\n"+
		"`/help` - This message\n\n"+
		"Or say hi to %s in this channel!", p.Name, p.Name, p.Name, p.Name, p.Name, p.Name, p.Name)
}

func faceEmoji(e expression.Expression) string {
	switch e {
	case expression.Heart:
		return "\U0001F60D"
	case expression.Wink:
		return "\U0001F609"
	case expression.Sleep:
		return "\U0001F634"
	case expression.Dizzy:
		return "\U0001F635"
	case expression.Scared, expression.Worried:
		return "\U0001F630"
	case expression.Excited, expression.Laughing:
		return "\U0001F606"
	case expression.Bored:
		return "\U0001F612"
	case expression.Cool:
		return "\U0001F60E"
	case expression.Speedy:
		return "\U0001F4A8"
	case expression.Thinking:
		return "\U0001F914"
	case expression.CameraAlert:
		return "\U0001F4F8"
	default:
		return "\U0001F610"
	}
}

func TemplateMorningCheckIn(p *persona.Persona, snap engine.Snapshot) string {
	return fmt.Sprintf("%s Good morning! %s %s\nFace: %s %s | Battery: %.0f%%",
		p.Emoji, p.Name, p.Verbs.Greet,
		faceEmoji(snap.Face.Expression), snap.Face.String(), snap.BatteryLevel*100)
}
