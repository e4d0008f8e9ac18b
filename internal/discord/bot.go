package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/expression"
	"github.com/moorebrett0/mochi/internal/persona"
)

// Bot is the pet's Discord account. It routes slash commands and channel
// chatter to a Router and shows the current face as its presence.
type Bot struct {
	session   *discordgo.Session
	channelID string
	ownerIDs  map[string]bool
	persona   *persona.Persona

	router *Router

	mu       sync.Mutex
	presence string // last status|activity pushed
}

// NewBot prepares a session for token. Nothing connects until Run.
func NewBot(token, channelID string, ownerIDs []string, p *persona.Persona) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: new session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuilds

	owners := map[string]bool{}
	for _, id := range ownerIDs {
		owners[id] = true
	}

	return &Bot{
		session:   session,
		channelID: channelID,
		ownerIDs:  owners,
		persona:   p,
	}, nil
}

// SetRouter installs the session handlers that feed r.
func (b *Bot) SetRouter(r *Router) {
	b.router = r
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onReady)
}

// Run opens the Discord connection, registers slash commands and blocks
// until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	slog.Info("discord: connected", "user", b.session.State.User.Username)

	b.registerCommands()

	<-ctx.Done()
	slog.Info("discord: shutting down")
	return b.session.Close()
}

// Announce posts text in the pet's home channel.
func (b *Bot) Announce(text string) {
	b.send(b.channelID, text)
}

func (b *Bot) send(channelID, text string) {
	if text == "" || channelID == "" {
		return
	}
	if _, err := b.session.ChannelMessageSend(channelID, text); err != nil {
		slog.Error("discord: send failed", "channel", channelID, "err", err)
	}
}

// UpdatePresence mirrors the pet's face in the bot's Discord status.
// Pushing the presence already shown does nothing.
func (b *Bot) UpdatePresence(snap engine.Snapshot) {
	status, activity := faceToPresence(snap, b.persona)

	b.mu.Lock()
	key := status + "|" + activity
	if key == b.presence {
		b.mu.Unlock()
		return
	}
	b.presence = key
	b.mu.Unlock()

	err := b.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: status,
		Activities: []*discordgo.Activity{
			{
				Name:  "Custom Status",
				State: activity,
				Type:  discordgo.ActivityTypeCustom,
			},
		},
	})
	if err != nil {
		slog.Debug("discord: update presence failed", "err", err)
	}
}

// IsOwner reports whether userID may use the owner-only commands.
func (b *Bot) IsOwner(userID string) bool {
	return b.ownerIDs[userID]
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord: ready", "user", r.User.Username, "guilds", len(r.Guilds))
}

func mentions(m *discordgo.MessageCreate, userID string) bool {
	return slices.ContainsFunc(m.Mentions, func(u *discordgo.User) bool {
		return u != nil && u.ID == userID
	})
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if b.router == nil || m.Author == nil || m.Author.Bot || m.ChannelID != b.channelID {
		return
	}
	self := s.State.User.ID
	if m.Author.ID == self {
		return
	}
	if reply := b.router.HandleMessage(context.Background(), m.Content, mentions(m, self)); reply != "" {
		b.send(m.ChannelID, reply)
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || b.router == nil {
		return
	}
	name := i.ApplicationCommandData().Name
	reply := b.router.HandleCommand(context.Background(), name, interactionUserID(i))

	data := &discordgo.InteractionResponseData{Content: reply.Text}
	if reply.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{reply.Embed}
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Error("discord: respond failed", "cmd", name, "err", err)
	}
}

var commands = []*discordgo.ApplicationCommand{
	{Name: "mood", Description: "See what your pet's face is doing"},
	{Name: "poke", Description: "Tap your pet"},
	{Name: "pet", Description: "Give your pet a few strokes"},
	{Name: "wake", Description: "Wake your pet up (owner only)"},
	{Name: "nap", Description: "Hold your pet until it falls asleep (owner only)"},
	{Name: "help", Description: "Show available commands"},
}

// registerCommands installs the global slash commands. A failed command
// is logged and the rest still register.
func (b *Bot) registerCommands() {
	appID := b.session.State.User.ID
	registered := 0
	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			slog.Error("discord: register command", "cmd", cmd.Name, "err", err)
			continue
		}
		registered++
	}
	slog.Info("discord: commands registered", "count", registered)
}

// faceToPresence picks the Discord status and custom activity for the
// pet's current face.
func faceToPresence(snap engine.Snapshot, p *persona.Persona) (status, activity string) {
	switch snap.Phase {
	case engine.PhaseSleeping:
		return "idle", "zzz"
	case engine.PhaseWaking:
		return "online", p.Verbs.Wake
	case engine.PhaseResting:
		return "idle", "getting sleepy..."
	}

	switch snap.Face.Expression {
	case expression.CameraAlert:
		return "dnd", "camera ahead!"
	case expression.Scared, expression.Worried, expression.Dizzy:
		return "dnd", p.Verbs.Distress
	case expression.Bored:
		return "idle", "anyone there?"
	case expression.Heart, expression.Excited, expression.Laughing:
		return "online", p.Verbs.Happy
	case expression.Speedy, expression.Cool, expression.Determined:
		return "online", fmt.Sprintf("cruising at %.0f km/h", snap.Speed)
	case expression.SideEye:
		return "online", "leaning into the turn"
	default:
		return "online", "just vibing"
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
