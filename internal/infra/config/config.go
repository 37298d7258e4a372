package config

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	DiscordToken string // ya con prefijo "Bot "
	DiscordGuild string // vacío = comandos globales
	DatabaseURL  string // opcional: sin DB no hay historial
	HTTPAddr     string // opcional, default :8080

	VoiceChannelName string
	ChatChannelName  string
	AlertAudioPath   string
	AdminRoleIDs     []string

	LogLevel slog.Level
}

// Load lee el entorno y corta el proceso si falta algo obligatorio.
func Load() Config {
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	token := get("DISCORD_BOT_TOKEN", "")
	if token == "" {
		return Config{}, fmt.Errorf("faltante env DISCORD_BOT_TOKEN")
	}
	if !strings.HasPrefix(strings.ToLower(token), "bot ") {
		token = "Bot " + token
	}

	level, err := parseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		DiscordToken:     token,
		DiscordGuild:     get("DISCORD_GUILD_ID", ""),
		DatabaseURL:      get("DATABASE_URL", ""),
		HTTPAddr:         get("HTTP_ADDR", ":8080"),
		VoiceChannelName: get("VOICE_CHANNEL_NAME", "dark-voice"),
		ChatChannelName:  get("CHAT_CHANNEL_NAME", "dark-chat"),
		AlertAudioPath:   get("ALERT_AUDIO_PATH", "alert.dca"),
		AdminRoleIDs:     splitList(get("ADMIN_ROLE_IDS", "")),
		LogLevel:         level,
	}, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return l, nil
}
