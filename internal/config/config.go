package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/persona"
)

type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Persona   string          `yaml:"persona"`
	Server    ServerConfig    `yaml:"server"`
	Engine    engine.Config   `yaml:"engine"`
	AI        AIConfig        `yaml:"ai"`
	Discord   DiscordConfig   `yaml:"discord"`
	Battery   BatteryConfig   `yaml:"battery"`
	Proactive ProactiveConfig `yaml:"proactive"`
}

type ServerConfig struct {
	Listen       string `yaml:"listen"`
	SendBuffer   int    `yaml:"send_buffer"`
	BroadcastBuf int    `yaml:"broadcast_buffer"`
	LoopBuffer   int    `yaml:"loop_buffer"`
}

type AIConfig struct {
	Provider string       `yaml:"provider"` // "claude", "gemini", "openai", or "" (auto-detect)
	Claude   ClaudeConfig `yaml:"claude"`
	Gemini   GeminiConfig `yaml:"gemini"`
	OpenAI   OpenAIConfig `yaml:"openai"`
	Speech   SpeechConfig `yaml:"speech"`
}

type ClaudeConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type SpeechConfig struct {
	Enabled   bool          `yaml:"enabled"`
	MaxTokens int64         `yaml:"max_tokens"`
	Cooldown  time.Duration `yaml:"cooldown"`
	Timeout   time.Duration `yaml:"timeout"`
	Memory    int           `yaml:"memory"`
	// At most RateLimit provider calls per RateWindow.
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

type DiscordConfig struct {
	BotToken  string   `yaml:"bot_token"`
	ChannelID string   `yaml:"channel_id"`
	OwnerIDs  []string `yaml:"owner_ids"`
}

// Enabled reports whether a bot token is configured.
func (d DiscordConfig) Enabled() bool { return d.BotToken != "" }

type BatteryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Root     string        `yaml:"root"`
	Interval time.Duration `yaml:"interval"`
}

type ProactiveConfig struct {
	Enabled          bool          `yaml:"enabled"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	MorningHour      int           `yaml:"morning_hour"`
	BoredomMinutes   int           `yaml:"boredom_minutes"`
	DistressCooldown time.Duration `yaml:"distress_cooldown"`
	NapCooldown      time.Duration `yaml:"nap_cooldown"`
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	loadDotEnv(".env")

	// The file is optional; defaults plus environment are a valid setup.
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv lets environment variables override the file (secrets live
// in .env or the environment).
func applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if env := os.Getenv(key); env != "" {
			*dst = env
		}
	}
	set("DISCORD_BOT_TOKEN", &cfg.Discord.BotToken)
	set("DISCORD_CHANNEL_ID", &cfg.Discord.ChannelID)
	set("ANTHROPIC_API_KEY", &cfg.AI.Claude.APIKey)
	set("GOOGLE_API_KEY", &cfg.AI.Gemini.APIKey)
	set("OPENAI_API_KEY", &cfg.AI.OpenAI.APIKey)
	set("OPENAI_BASE_URL", &cfg.AI.OpenAI.BaseURL)
	set("AI_PROVIDER", &cfg.AI.Provider)
	set("MOCHI_LISTEN", &cfg.Server.Listen)
	set("MOCHI_LOG_LEVEL", &cfg.LogLevel)
	set("MOCHI_PERSONA", &cfg.Persona)

	if env := os.Getenv("DISCORD_OWNER_IDS"); env != "" {
		var owners []string
		for id := range strings.SplitSeq(env, ",") {
			if id = strings.TrimSpace(id); id != "" {
				owners = append(owners, id)
			}
		}
		if len(owners) > 0 {
			cfg.Discord.OwnerIDs = owners
		}
	}
}

// loadDotEnv exports the KEY=value pairs in path without overriding
// variables the environment already has. A missing file is not an error.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	for key, val := range parseDotEnv(f) {
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// parseDotEnv skips blanks, # comments, lines without '=' and empty
// values, and unquotes values wrapped in matching ' or ".
func parseDotEnv(r io.Reader) map[string]string {
	vars := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, val = strings.TrimSpace(key), unquote(strings.TrimSpace(val))
		if key != "" && val != "" {
			vars[key] = val
		}
	}
	return vars
}

func unquote(v string) string {
	if len(v) < 2 {
		return v
	}
	if q := v[0]; (q == '"' || q == '\'') && v[len(v)-1] == q {
		return v[1 : len(v)-1]
	}
	return v
}

func defaults() *Config {
	return &Config{
		LogLevel: "info",
		Persona:  persona.DefaultID,
		Server: ServerConfig{
			Listen:       ":8080",
			SendBuffer:   32,
			BroadcastBuf: 128,
			LoopBuffer:   256,
		},
		Engine: engine.DefaultConfig(),
		AI: AIConfig{
			Claude: ClaudeConfig{Model: "claude-sonnet-4-5-20250929"},
			Gemini: GeminiConfig{Model: "gemini-2.5-flash"},
			OpenAI: OpenAIConfig{Model: "gpt-4o-mini"},
			Speech: SpeechConfig{
				Enabled:    true,
				MaxTokens:  60,
				Cooldown:   8 * time.Second,
				Timeout:    4 * time.Second,
				Memory:     5,
				RateLimit:  10,
				RateWindow: time.Minute,
			},
		},
		Battery: BatteryConfig{
			Enabled:  true,
			Root:     "/sys/class/power_supply",
			Interval: 30 * time.Second,
		},
		Proactive: ProactiveConfig{
			Enabled:          true,
			CheckInterval:    5 * time.Second,
			MorningHour:      8,
			BoredomMinutes:   120,
			DistressCooldown: 30 * time.Minute,
			NapCooldown:      10 * time.Minute,
		},
	}
}

func validate(cfg *Config) error {
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	if _, ok := persona.Registry[cfg.Persona]; !ok {
		return fmt.Errorf("unknown persona %q (want one of %s)", cfg.Persona, strings.Join(persona.OrderedIDs, ", "))
	}
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if cfg.Server.LoopBuffer < 1 {
		return fmt.Errorf("server.loop_buffer must be at least 1")
	}
	switch cfg.AI.Provider {
	case "", "claude", "gemini", "openai":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q (want claude, gemini or openai)", cfg.AI.Provider)
	}
	if cfg.AI.Speech.Enabled && cfg.AI.Speech.Timeout <= 0 {
		return fmt.Errorf("ai.speech.timeout must be positive")
	}
	if cfg.Battery.Enabled && cfg.Battery.Interval <= 0 {
		return fmt.Errorf("battery.interval must be positive")
	}
	if cfg.Discord.Enabled() {
		if cfg.Discord.ChannelID == "" {
			return fmt.Errorf("missing DISCORD_CHANNEL_ID (required with DISCORD_BOT_TOKEN)")
		}
		if cfg.Proactive.Enabled && cfg.Proactive.CheckInterval <= 0 {
			return fmt.Errorf("proactive.check_interval must be positive")
		}
	}
	if err := cfg.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (must be error|warn|info|debug)", s)
	}
}

// Sample renders a starter config file for personaID. Secrets are left to
// .env and the environment.
func Sample(personaID, listen string) ([]byte, error) {
	if _, ok := persona.Registry[personaID]; !ok {
		return nil, fmt.Errorf("unknown persona %q (want one of %s)", personaID, strings.Join(persona.OrderedIDs, ", "))
	}
	d := defaults()
	if listen == "" {
		listen = d.Server.Listen
	}
	var b strings.Builder
	fmt.Fprintf(&b, `# mochi config. API keys and the Discord bot token go in .env.
log_level: %s
persona: %s

server:
  listen: %q

ai:
  provider: ""  # claude, gemini or openai; empty picks the first key found
  speech:
    enabled: %t
    cooldown: %s
    timeout: %s

discord:
  channel_id: ""
  owner_ids: []

battery:
  enabled: %t
  interval: %s

proactive:
  enabled: %t
  morning_hour: %d
  boredom_minutes: %d

# Engine thresholds use built-in values. Override any of them here:
# engine:
#   idle_window: %s
#   turn_threshold: %g
`,
		d.LogLevel, personaID, listen,
		d.AI.Speech.Enabled, d.AI.Speech.Cooldown, d.AI.Speech.Timeout,
		d.Battery.Enabled, d.Battery.Interval,
		d.Proactive.Enabled, d.Proactive.MorningHour, d.Proactive.BoredomMinutes,
		d.Engine.IdleWindow, d.Engine.TurnThreshold,
	)
	return []byte(b.String()), nil
}
