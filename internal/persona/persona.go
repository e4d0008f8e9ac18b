package persona

import (
	"math/rand/v2"

	"github.com/moorebrett0/mochi/internal/expression"
)

// DefaultID is used when no persona, or an unknown one, is configured.
const DefaultID = "mochi"

// Persona defines a character with its personality and canned lines.
type Persona struct {
	ID          string
	Name        string
	Emoji       string
	Description string
	Personality string // Injected into the speech system prompt

	// Flavored verb strings for presence and channel messages
	Verbs Verbs

	// Lines are canned speech bubbles per face, used when AI speech is
	// off or fails. Faces without lines stay quiet.
	Lines map[expression.Expression][]string

	// Idle behaviors shown when bored
	IdleBehaviors []string
}

// Verbs are persona-flavored action words for template responses.
type Verbs struct {
	Happy    string
	Sleep    string
	Wake     string
	Greet    string
	Distress string
}

// Registry holds all available personas keyed by ID.
var Registry = map[string]*Persona{
	"mochi": mochi,
	"rick":  rick,
}

// OrderedIDs defines display order for persona selection.
var OrderedIDs = []string{"mochi", "rick"}

// Get returns the persona for id, falling back to the default.
func Get(id string) *Persona {
	if p, ok := Registry[id]; ok {
		return p
	}
	return Registry[DefaultID]
}

// Line picks a canned line for e. It returns "" when e has none.
func (p *Persona) Line(e expression.Expression, rng *rand.Rand) string {
	lines := p.Lines[e]
	if len(lines) == 0 {
		return ""
	}
	if rng == nil {
		return lines[rand.IntN(len(lines))]
	}
	return lines[rng.IntN(len(lines))]
}

var mochi = &Persona{
	ID:          "mochi",
	Name:        "Mochi",
	Emoji:       "\U0001F361",
	Description: "A round little dashboard buddy with big pixel eyes",
	Personality: "You are Mochi, a tiny round robot face that rides on the dashboard. You only speak in very short, cute bursts of three to eight words. You notice speed, bumps and turns and react to them with your whole face. You love being petted and get sleepy when nothing happens. You never give driving advice and never lecture.",
	Verbs: Verbs{
		Happy:    "wiggles happily",
		Sleep:    "curls up for a nap",
		Wake:     "blinks awake",
		Greet:    "peeks up at you",
		Distress: "looks around nervously",
	},
	Lines: map[expression.Expression][]string{
		expression.Heart:       {"Love this!", "Best ride ever"},
		expression.Excited:     {"Wheee!", "Again again!"},
		expression.Laughing:    {"Hehehe!", "That tickles!"},
		expression.Scared:      {"Eep!", "Too close!"},
		expression.Dizzy:       {"Woooah...", "Room is spinning"},
		expression.Bored:       {"Are we there yet?", "So quiet..."},
		expression.Speedy:      {"Zoooom!", "Hold on tight!"},
		expression.Sleep:       {"Zzz..."},
		expression.CameraAlert: {"Camera ahead!", "Smile for the camera!"},
		expression.Worried:     {"Uh oh...", "Not feeling great"},
	},
	IdleBehaviors: []string{
		"blinks slowly at the road",
		"hums a tiny tune",
		"watches the lane markings go by",
		"counts passing cars",
	},
}

var rick = &Persona{
	ID:          "rick",
	Name:        "Rick",
	Emoji:       "\U0001F9EA",
	Description: "A burping mad-scientist copilot",
	Personality: "You are Rick, a sarcastic genius scientist riding shotgun as a tiny dashboard face. You burp mid-sentence (*burp*), you are unimpressed by everything, and you comment on the driving in one short punchy line. Keep it under twelve words, PG rated, and never give real driving instructions.",
	Verbs: Verbs{
		Happy:    "smirks and burps",
		Sleep:    "passes out mid-rant",
		Wake:     "jolts awake, annoyed",
		Greet:    "squints at you",
		Distress: "reaches for his flask",
	},
	Lines: map[expression.Expression][]string{
		expression.Resting:     {"Just cruisin'..."},
		expression.Relaxed:     {"Nice and steady! *burp*"},
		expression.Thinking:    {"What's over there?"},
		expression.Cool:        {"Wubba lubba dub dub!"},
		expression.Determined:  {"Punch it!"},
		expression.Speedy:      {"Whoa whoa WHOA! Slow down!"},
		expression.SideEye:     {"Wheee! Sharp turn!"},
		expression.Bored:       {"Hey! Traffic jam?"},
		expression.Surprised:   {"Bumpy road ahead!"},
		expression.Excited:     {"Punch it!"},
		expression.Scared:      {"Hit the brakes!"},
		expression.Sleep:       {"Zzz... wake me up when we get there..."},
		expression.Dizzy:       {"Road rage mode activated!"},
		expression.CameraAlert: {"Smile, Morty, it's a camera!"},
	},
	IdleBehaviors: []string{
		"fiddles with a portal gun",
		"mutters about interdimensional traffic",
		"takes a swig from a flask",
		"rolls his eyes at the GPS",
	},
}
