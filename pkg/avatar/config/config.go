// Package config loads vai-avatar settings: a YAML file, then VAI_AVATAR_*
// environment overrides, then defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFile = "vai-avatar.yaml"

	defaultAgentURL       = "ws://127.0.0.1:8000/ws"
	defaultConnectTimeout = 15 * time.Second
	defaultWriteTimeout   = 5 * time.Second
	defaultPingInterval   = 20 * time.Second
	defaultSendQueue      = 64
	defaultIdleImage      = "/static/loading-avatar.png"
	defaultGreeting       = "Welcome!"
	defaultErrorStatus    = "Error"
	defaultApology        = "Sorry, something went wrong."
	defaultPlayerBackend  = PlayerFFplay
	defaultFFplayPath     = "ffplay"
	defaultLogLevel       = "info"
	defaultDemoAddr       = "127.0.0.1:8000"
	defaultDemoStaticDir  = "static"
	defaultWelcomeVideo   = "/static/welcome.mp4"
	defaultThinkingText   = "Thinking..."
	defaultSpeakingText   = "Speaking..."
)

const (
	PlayerFFplay = "ffplay"
	PlayerNone   = "none"
)

type Config struct {
	Agent        AgentConfig        `yaml:"agent"`
	Presentation PresentationConfig `yaml:"presentation"`
	Player       PlayerConfig       `yaml:"player"`
	Transcript   TranscriptConfig   `yaml:"transcript"`
	Logging      LoggingConfig      `yaml:"logging"`
	Demo         DemoConfig         `yaml:"demo"`
}

type AgentConfig struct {
	URL            string            `yaml:"url"`
	Headers        map[string]string `yaml:"headers,omitempty"`
	ConnectTimeout time.Duration     `yaml:"connectTimeout,omitempty"`
	WriteTimeout   time.Duration     `yaml:"writeTimeout,omitempty"`
	PingInterval   time.Duration     `yaml:"pingInterval,omitempty"`
	SendQueue      int               `yaml:"sendQueue,omitempty"`
}

// PresentationConfig holds the fixed texts and the idle image. Media references
// relative to the agent are resolved against its HTTP origin.
type PresentationConfig struct {
	IdleImage   string `yaml:"idleImage,omitempty"`
	Greeting    string `yaml:"greeting,omitempty"`
	ErrorStatus string `yaml:"errorStatus,omitempty"`
	Apology     string `yaml:"apology,omitempty"`
}

type PlayerConfig struct {
	Backend string `yaml:"backend,omitempty"` // ffplay or none
	Path    string `yaml:"path,omitempty"`
}

type TranscriptConfig struct {
	// Store is a SQLite file receiving every transcript entry. Empty disables.
	Store string `yaml:"store,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error
	File  string `yaml:"file,omitempty"`
}

// DemoConfig drives the scripted demo agent.
type DemoConfig struct {
	Addr         string        `yaml:"addr,omitempty"`
	StaticDir    string        `yaml:"staticDir,omitempty"`
	WelcomeVideo string        `yaml:"welcomeVideo,omitempty"`
	ReplyVideo   string        `yaml:"replyVideo,omitempty"` // empty replies with an error event
	StatusImage  string        `yaml:"statusImage,omitempty"`
	ThinkingText string        `yaml:"thinkingText,omitempty"`
	SpeakingText string        `yaml:"speakingText,omitempty"`
	ReplyDelay   time.Duration `yaml:"replyDelay,omitempty"`
}

func Default() Config {
	return Config{
		Agent: AgentConfig{
			URL:            defaultAgentURL,
			ConnectTimeout: defaultConnectTimeout,
			WriteTimeout:   defaultWriteTimeout,
			PingInterval:   defaultPingInterval,
			SendQueue:      defaultSendQueue,
		},
		Presentation: PresentationConfig{
			IdleImage:   defaultIdleImage,
			Greeting:    defaultGreeting,
			ErrorStatus: defaultErrorStatus,
			Apology:     defaultApology,
		},
		Player: PlayerConfig{
			Backend: defaultPlayerBackend,
			Path:    defaultFFplayPath,
		},
		Logging: LoggingConfig{Level: defaultLogLevel},
		Demo: DemoConfig{
			Addr:         defaultDemoAddr,
			StaticDir:    defaultDemoStaticDir,
			WelcomeVideo: defaultWelcomeVideo,
			StatusImage:  defaultIdleImage,
			ThinkingText: defaultThinkingText,
			SpeakingText: defaultSpeakingText,
		},
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// fills defaults. It does not validate.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	c.Agent.URL = envOr(getenv, "VAI_AVATAR_URL", c.Agent.URL)
	c.Agent.ConnectTimeout = envDurationOr(getenv, "VAI_AVATAR_CONNECT_TIMEOUT", c.Agent.ConnectTimeout)
	c.Agent.SendQueue = envIntOr(getenv, "VAI_AVATAR_SEND_QUEUE", c.Agent.SendQueue)
	if token := strings.TrimSpace(getenv("VAI_AVATAR_TOKEN")); token != "" {
		if c.Agent.Headers == nil {
			c.Agent.Headers = make(map[string]string)
		}
		c.Agent.Headers["Authorization"] = "Bearer " + token
	}
	c.Presentation.IdleImage = envOr(getenv, "VAI_AVATAR_IDLE_IMAGE", c.Presentation.IdleImage)
	c.Player.Backend = envOr(getenv, "VAI_AVATAR_PLAYER", c.Player.Backend)
	c.Player.Path = envOr(getenv, "VAI_AVATAR_FFPLAY_PATH", c.Player.Path)
	c.Transcript.Store = envOr(getenv, "VAI_AVATAR_TRANSCRIPT_DB", c.Transcript.Store)
	c.Logging.Level = envOr(getenv, "VAI_AVATAR_LOG_LEVEL", c.Logging.Level)
	c.Logging.File = envOr(getenv, "VAI_AVATAR_LOG_FILE", c.Logging.File)
	c.Demo.Addr = envOr(getenv, "VAI_AVATAR_DEMO_ADDR", c.Demo.Addr)
	c.Demo.ReplyVideo = envOr(getenv, "VAI_AVATAR_DEMO_REPLY_VIDEO", c.Demo.ReplyVideo)
}

func (c *Config) applyDefaults() {
	def := Default()

	if strings.TrimSpace(c.Agent.URL) == "" {
		c.Agent.URL = def.Agent.URL
	}
	if c.Agent.ConnectTimeout <= 0 {
		c.Agent.ConnectTimeout = def.Agent.ConnectTimeout
	}
	if c.Agent.WriteTimeout <= 0 {
		c.Agent.WriteTimeout = def.Agent.WriteTimeout
	}
	if c.Agent.PingInterval <= 0 {
		c.Agent.PingInterval = def.Agent.PingInterval
	}
	if c.Agent.SendQueue <= 0 {
		c.Agent.SendQueue = def.Agent.SendQueue
	}

	if strings.TrimSpace(c.Presentation.IdleImage) == "" {
		c.Presentation.IdleImage = def.Presentation.IdleImage
	}
	if c.Presentation.Greeting == "" {
		c.Presentation.Greeting = def.Presentation.Greeting
	}
	if c.Presentation.ErrorStatus == "" {
		c.Presentation.ErrorStatus = def.Presentation.ErrorStatus
	}
	if c.Presentation.Apology == "" {
		c.Presentation.Apology = def.Presentation.Apology
	}

	c.Player.Backend = strings.ToLower(strings.TrimSpace(c.Player.Backend))
	if c.Player.Backend == "" {
		c.Player.Backend = def.Player.Backend
	}
	if strings.TrimSpace(c.Player.Path) == "" {
		c.Player.Path = def.Player.Path
	}

	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}

	if c.Demo.Addr == "" {
		c.Demo.Addr = def.Demo.Addr
	}
	if c.Demo.StaticDir == "" {
		c.Demo.StaticDir = def.Demo.StaticDir
	}
	if c.Demo.WelcomeVideo == "" {
		c.Demo.WelcomeVideo = def.Demo.WelcomeVideo
	}
	if c.Demo.StatusImage == "" {
		c.Demo.StatusImage = def.Demo.StatusImage
	}
	if c.Demo.ThinkingText == "" {
		c.Demo.ThinkingText = def.Demo.ThinkingText
	}
	if c.Demo.SpeakingText == "" {
		c.Demo.SpeakingText = def.Demo.SpeakingText
	}
}

// Validate checks settings a client needs before dialing.
func (c Config) Validate() error {
	raw := strings.TrimSpace(c.Agent.URL)
	if raw == "" {
		return errors.New("agent url must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil || strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("agent url %q must be an absolute ws:// or wss:// URL", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	default:
		return fmt.Errorf("agent url %q must use ws or wss", raw)
	}
	if u.User != nil {
		return errors.New("agent url must not include credentials (use VAI_AVATAR_TOKEN)")
	}

	switch c.Player.Backend {
	case PlayerFFplay, PlayerNone:
	default:
		return fmt.Errorf("player backend must be %s or %s, got %q", PlayerFFplay, PlayerNone, c.Player.Backend)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func envIntOr(getenv func(string) string, key string, def int) int {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(getenv func(string) string, key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
