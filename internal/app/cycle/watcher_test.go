package cycle

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// watcherFixture arma un guild en fase p sin lanzar el motor.
func watcherFixture(p domain.Phase) (*Manager, *fakePlatform, *clockwork.FakeClock) {
	f := newFakePlatform(VoiceMember{UserID: "u1"})
	clock := clockwork.NewFakeClock()
	m := NewManager(testConfig(), Options{
		Voice:      f,
		Messenger:  f,
		Logger:     quietLogger(),
		Clock:      clock,
		SelfUserID: "bot-self",
	})
	st := m.reg.getOrCreate("g1")
	st.phase = p
	st.voiceChannelID = "vc-1"
	return m, f, clock
}

func TestJoinDuringStudyIsMutedEveryTime(t *testing.T) {
	m, f, _ := watcherFixture(domain.PhaseStudy)
	ctx := context.Background()

	join := VoiceEvent{GuildID: "g1", UserID: "u1", AfterChannelID: "vc-1"}
	m.HandleVoiceUpdate(ctx, join)
	m.HandleVoiceUpdate(ctx, join) // rejoin inmediato: sin debounce

	assert.Equal(t, []muteCall{{"u1", true}, {"u1", true}}, f.muteCalls())
}

func TestJoinAlreadyInTargetStateIsNoop(t *testing.T) {
	m, f, _ := watcherFixture(domain.PhaseStudy)
	m.HandleVoiceUpdate(context.Background(), VoiceEvent{GuildID: "g1", UserID: "u1", AfterChannelID: "vc-1", Mute: true})
	assert.Empty(t, f.muteCalls())
}

func TestJoinDuringBreakUnmutes(t *testing.T) {
	m, f, _ := watcherFixture(domain.PhaseBreak)
	m.HandleVoiceUpdate(context.Background(), VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "other", AfterChannelID: "vc-1", Mute: true})
	assert.Equal(t, []muteCall{{"u1", false}}, f.muteCalls())
}

func TestLeaveUnmutesOncePerWindow(t *testing.T) {
	m, f, clock := watcherFixture(domain.PhaseStudy)
	ctx := context.Background()

	leave := VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "vc-1", AfterChannelID: "lobby", Mute: true}
	m.HandleVoiceUpdate(ctx, leave)
	m.HandleVoiceUpdate(ctx, leave)
	assert.Equal(t, []muteCall{{"u1", false}}, f.muteCalls())

	clock.Advance(m.cfg.EditCooldown)
	m.HandleVoiceUpdate(ctx, leave)
	assert.Len(t, f.muteCalls(), 2)
}

func TestLeaveRightAfterJoinIsDebounced(t *testing.T) {
	m, f, clock := watcherFixture(domain.PhaseStudy)
	ctx := context.Background()

	m.HandleVoiceUpdate(ctx, VoiceEvent{GuildID: "g1", UserID: "u1", AfterChannelID: "vc-1"})
	m.HandleVoiceUpdate(ctx, VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "vc-1", AfterChannelID: "lobby", Mute: true})
	assert.Len(t, f.muteCalls(), 1)

	clock.Advance(m.cfg.EditCooldown + time.Millisecond)
	m.HandleVoiceUpdate(ctx, VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "vc-1", AfterChannelID: "lobby", Mute: true})
	assert.Equal(t, muteCall{"u1", false}, f.muteCalls()[1])
}

func TestLeaveRightAfterPhaseBatchUnmutes(t *testing.T) {
	m, f, _ := watcherFixture(domain.PhaseStudy)
	ctx := context.Background()

	_, err := m.applyMute(ctx, "g1", "vc-1", true)
	require.NoError(t, err)
	m.HandleVoiceUpdate(ctx, VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "vc-1", AfterChannelID: "lobby", Mute: true})

	assert.Equal(t, []muteCall{{"u1", true}, {"u1", false}}, f.muteCalls())
}

func TestIgnoredVoiceEvents(t *testing.T) {
	tests := []struct {
		name  string
		phase domain.Phase
		ev    VoiceEvent
	}{
		{"bot joins", domain.PhaseStudy, VoiceEvent{GuildID: "g1", UserID: "music", Bot: true, AfterChannelID: "vc-1"}},
		{"self joins", domain.PhaseStudy, VoiceEvent{GuildID: "g1", UserID: "bot-self", AfterChannelID: "vc-1"}},
		{"idle guild", domain.PhaseNone, VoiceEvent{GuildID: "g1", UserID: "u1", AfterChannelID: "vc-1"}},
		{"unknown guild", domain.PhaseStudy, VoiceEvent{GuildID: "g2", UserID: "u1", AfterChannelID: "vc-1"}},
		{"disconnect", domain.PhaseStudy, VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "vc-1", Mute: true}},
		{"left unmuted", domain.PhaseStudy, VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "vc-1", AfterChannelID: "lobby"}},
		{"other channels", domain.PhaseStudy, VoiceEvent{GuildID: "g1", UserID: "u1", BeforeChannelID: "a", AfterChannelID: "b", Mute: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, f, _ := watcherFixture(tt.phase)
			m.HandleVoiceUpdate(context.Background(), tt.ev)
			assert.Empty(t, f.muteCalls())
		})
	}
}
