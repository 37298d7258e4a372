package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	t.Setenv("DISCORD_GUILD_ID", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("VOICE_CHANNEL_NAME", "")
	t.Setenv("CHAT_CHANNEL_NAME", "")
	t.Setenv("ALERT_AUDIO_PATH", "")
	t.Setenv("ADMIN_ROLE_IDS", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := FromEnv(os.Getenv)
	require.NoError(t, err)
	assert.Equal(t, "Bot abc", cfg.DiscordToken)
	assert.Empty(t, cfg.DiscordGuild)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "dark-voice", cfg.VoiceChannelName)
	assert.Equal(t, "dark-chat", cfg.ChatChannelName)
	assert.Equal(t, "alert.dca", cfg.AlertAudioPath)
	assert.Empty(t, cfg.AdminRoleIDs)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "Bot xyz")
	t.Setenv("DISCORD_GUILD_ID", "123")
	t.Setenv("ADMIN_ROLE_IDS", " r1, ,r2 ")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("VOICE_CHANNEL_NAME", "focus")

	cfg, err := FromEnv(os.Getenv)
	require.NoError(t, err)
	assert.Equal(t, "Bot xyz", cfg.DiscordToken)
	assert.Equal(t, "123", cfg.DiscordGuild)
	assert.Equal(t, []string{"r1", "r2"}, cfg.AdminRoleIDs)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "focus", cfg.VoiceChannelName)
}

func TestFromEnvErrors(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	_, err := FromEnv(os.Getenv)
	assert.ErrorContains(t, err, "DISCORD_BOT_TOKEN")

	t.Setenv("DISCORD_BOT_TOKEN", "abc")
	t.Setenv("LOG_LEVEL", "loud")
	_, err = FromEnv(os.Getenv)
	assert.ErrorContains(t, err, "LOG_LEVEL")
}
