package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("VAI_AVATAR_URL", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.URL != defaultAgentURL {
		t.Fatalf("url=%q", cfg.Agent.URL)
	}
	if cfg.Presentation.IdleImage != "/static/loading-avatar.png" {
		t.Fatalf("idle=%q", cfg.Presentation.IdleImage)
	}
	if cfg.Presentation.Apology != "Sorry, something went wrong." {
		t.Fatalf("apology=%q", cfg.Presentation.Apology)
	}
	if cfg.Player.Backend != PlayerFFplay {
		t.Fatalf("backend=%q", cfg.Player.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vai-avatar.yaml")
	doc := `
agent:
  url: wss://agent.example.com/ws
  connectTimeout: 3s
  sendQueue: 8
presentation:
  greeting: Hello there
player:
  backend: NONE
transcript:
  store: /tmp/transcript.db
demo:
  replyDelay: 250ms
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("VAI_AVATAR_CONNECT_TIMEOUT", "7s")
	t.Setenv("VAI_AVATAR_TOKEN", "tok")
	t.Setenv("VAI_AVATAR_SEND_QUEUE", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.URL != "wss://agent.example.com/ws" {
		t.Fatalf("url=%q", cfg.Agent.URL)
	}
	if cfg.Agent.ConnectTimeout != 7*time.Second {
		t.Fatalf("connect timeout=%s", cfg.Agent.ConnectTimeout)
	}
	if cfg.Agent.SendQueue != 8 {
		t.Fatalf("send queue=%d", cfg.Agent.SendQueue)
	}
	if got := cfg.Agent.Headers["Authorization"]; got != "Bearer tok" {
		t.Fatalf("authorization=%q", got)
	}
	if cfg.Presentation.Greeting != "Hello there" {
		t.Fatalf("greeting=%q", cfg.Presentation.Greeting)
	}
	if cfg.Presentation.ErrorStatus != "Error" {
		t.Fatalf("error status=%q", cfg.Presentation.ErrorStatus)
	}
	if cfg.Player.Backend != PlayerNone {
		t.Fatalf("backend=%q", cfg.Player.Backend)
	}
	if cfg.Transcript.Store != "/tmp/transcript.db" {
		t.Fatalf("store=%q", cfg.Transcript.Store)
	}
	if cfg.Demo.ReplyDelay != 250*time.Millisecond {
		t.Fatalf("reply delay=%s", cfg.Demo.ReplyDelay)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("agent: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("err=%v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "http scheme", mutate: func(c *Config) { c.Agent.URL = "http://localhost:8000/ws" }, wantErr: "ws or wss"},
		{name: "relative", mutate: func(c *Config) { c.Agent.URL = "/ws" }, wantErr: "absolute"},
		{name: "credentials", mutate: func(c *Config) { c.Agent.URL = "ws://u:p@localhost/ws" }, wantErr: "credentials"},
		{name: "player", mutate: func(c *Config) { c.Player.Backend = "vlc" }, wantErr: "player backend"},
		{name: "log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "log level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err=%v, want containing %q", err, tc.wantErr)
			}
		})
	}
}
