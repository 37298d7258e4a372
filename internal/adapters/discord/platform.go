package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sony/gobreaker/v2"

	"github.com/jose-valero/dark-study-bot/internal/app/cycle"
	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// atajos de tuning de la plataforma
const (
	purgePage        = 100
	purgeMaxPages    = 5  // ~500 mensajes por canal al limpiar tags
	clearMaxRounds   = 10 // /clear
	bulkDeleteMaxAge = 14 * 24 * time.Hour
	alertLeadIn      = 400 * time.Millisecond
)

type PlatformConfig struct {
	ChatChannelName string
	AlertAudioPath  string
	Logger          *slog.Logger
}

// Platform implementa los puertos del ciclo (Voice, Messenger, Alerter) sobre discordgo.
type Platform struct {
	s        *discordgo.Session
	log      *slog.Logger
	chatName string
	clip     *alertClip
	msgCB    *gobreaker.CircuitBreaker[*discordgo.Message]

	mu      sync.Mutex
	chat    map[string]string // guildID → canal de chat
	playing map[string]bool
}

func NewPlatform(s *discordgo.Session, cfg PlatformConfig) *Platform {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "discord")
	p := &Platform{
		s:        s,
		log:      log,
		chatName: cfg.ChatChannelName,
		clip:     &alertClip{path: cfg.AlertAudioPath},
		chat:     map[string]string{},
		playing:  map[string]bool{},
	}
	p.msgCB = gobreaker.NewCircuitBreaker[*discordgo.Message](gobreaker.Settings{
		Name:        "discord-messages",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		IsExcluded:  clientError,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

func (p *Platform) selfID() string {
	if p.s.State == nil || p.s.State.User == nil {
		return ""
	}
	return p.s.State.User.ID
}

// ---------- voz ----------

func (p *Platform) guildChannels(ctx context.Context, guildID string) ([]*discordgo.Channel, error) {
	if g, err := p.s.State.Guild(guildID); err == nil && g != nil {
		p.s.State.RLock()
		out := append([]*discordgo.Channel(nil), g.Channels...)
		p.s.State.RUnlock()
		if len(out) > 0 {
			return out, nil
		}
	}
	chs, err := p.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	return chs, classify(err)
}

// pickVoiceChannel: id guardado primero, después nombre exacto y por último prefijo.
func pickVoiceChannel(chs []*discordgo.Channel, id, name string) *discordgo.Channel {
	var exact, prefix *discordgo.Channel
	for _, ch := range chs {
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}
		if id != "" && ch.ID == id {
			return ch
		}
		if exact == nil && ch.Name == name {
			exact = ch
		}
		if prefix == nil && name != "" && strings.HasPrefix(ch.Name, name) {
			prefix = ch
		}
	}
	if exact != nil {
		return exact
	}
	return prefix
}

func (p *Platform) ResolveVoiceChannel(ctx context.Context, guildID, channelID, name string) (cycle.VoiceChannel, error) {
	chs, err := p.guildChannels(ctx, guildID)
	if err != nil {
		return cycle.VoiceChannel{}, fmt.Errorf("list channels: %w", err)
	}
	ch := pickVoiceChannel(chs, channelID, name)
	if ch == nil {
		return cycle.VoiceChannel{}, fmt.Errorf("%w: %q", cycle.ErrChannelNotFound, name)
	}
	return cycle.VoiceChannel{ID: ch.ID, Name: ch.Name}, nil
}

// voiceStates copia los estados de voz del guild desde el cache (filtrando por canal si viene).
func (p *Platform) voiceStates(guildID, channelID string) ([]discordgo.VoiceState, error) {
	g, err := p.s.State.Guild(guildID)
	if err != nil {
		return nil, err
	}
	p.s.State.RLock()
	defer p.s.State.RUnlock()
	var out []discordgo.VoiceState
	for _, vs := range g.VoiceStates {
		if vs == nil || vs.ChannelID == "" {
			continue
		}
		if channelID != "" && vs.ChannelID != channelID {
			continue
		}
		out = append(out, *vs)
	}
	return out, nil
}

func (p *Platform) isBot(ctx context.Context, guildID string, vs discordgo.VoiceState) bool {
	if vs.Member != nil && vs.Member.User != nil {
		return vs.Member.User.Bot
	}
	if m, err := p.s.State.Member(guildID, vs.UserID); err == nil && m.User != nil {
		return m.User.Bot
	}
	m, err := p.s.GuildMember(guildID, vs.UserID, discordgo.WithContext(ctx))
	if err != nil || m.User == nil {
		return false
	}
	_ = p.s.State.MemberAdd(m)
	return m.User.Bot
}

func (p *Platform) VoiceMembers(ctx context.Context, guildID, channelID string) ([]cycle.VoiceMember, error) {
	states, err := p.voiceStates(guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("voice states: %w", err)
	}
	out := make([]cycle.VoiceMember, 0, len(states))
	for _, vs := range states {
		out = append(out, cycle.VoiceMember{
			UserID: vs.UserID,
			Bot:    p.isBot(ctx, guildID, vs),
			Mute:   vs.Mute,
		})
	}
	return out, nil
}

func (p *Platform) SetMute(ctx context.Context, guildID, userID string, mute bool) error {
	err := classify(p.s.GuildMemberMute(guildID, userID, mute, discordgo.WithContext(ctx)))
	if err != nil {
		return fmt.Errorf("mute %s=%t: %w", userID, mute, err)
	}
	return nil
}

// UnmuteAll quita el server mute a todo miembro muteado en cualquier canal de voz del guild.
func (p *Platform) UnmuteAll(ctx context.Context, guildID string) (int, error) {
	states, err := p.voiceStates(guildID, "")
	if err != nil {
		return 0, err
	}
	n := 0
	var denied error
	for _, vs := range states {
		if !vs.Mute {
			continue
		}
		if err := p.SetMute(ctx, guildID, vs.UserID, false); err != nil {
			if errors.Is(err, cycle.ErrPermissionDenied) {
				denied = err
			}
			p.log.Debug("unmute failed", "guild", guildID, "user", vs.UserID, "err", err)
			continue
		}
		n++
	}
	if n == 0 && denied != nil {
		return 0, denied
	}
	return n, nil
}

// ---------- mensajes ----------

func (p *Platform) ChatChannel(ctx context.Context, guildID string) (string, error) {
	p.mu.Lock()
	id, ok := p.chat[guildID]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	chs, err := p.guildChannels(ctx, guildID)
	if err != nil {
		return "", err
	}
	for _, ch := range chs {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildText && ch.Name == p.chatName {
			id = ch.ID
			break
		}
	}
	if id == "" {
		ch, err := p.s.GuildChannelCreate(guildID, p.chatName, discordgo.ChannelTypeGuildText, discordgo.WithContext(ctx))
		if err == nil {
			id = ch.ID
			p.log.Info("chat channel created", "guild", guildID, "channel", ch.ID, "name", p.chatName)
		} else {
			p.log.Warn("chat channel create failed, using system channel", append([]any{"guild", guildID}, restDetail(err)...)...)
			if g, gerr := p.s.State.Guild(guildID); gerr == nil && g.SystemChannelID != "" {
				id = g.SystemChannelID
			}
		}
	}
	if id == "" {
		return "", fmt.Errorf("no chat channel %q in guild %s", p.chatName, guildID)
	}

	p.mu.Lock()
	p.chat[guildID] = id
	p.mu.Unlock()
	return id, nil
}

// forgetChat descarta el canal cacheado (lo borraron).
func (p *Platform) forgetChat(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for g, id := range p.chat {
		if id == channelID {
			delete(p.chat, g)
		}
	}
}

func (p *Platform) Send(ctx context.Context, channelID, content string) (string, error) {
	msg, err := p.msgCB.Execute(func() (*discordgo.Message, error) {
		m, err := p.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
		return m, classify(err)
	})
	if err != nil {
		if errors.Is(err, errNotFound) {
			p.forgetChat(channelID)
		}
		return "", err
	}
	return msg.ID, nil
}

func (p *Platform) Edit(ctx context.Context, channelID, messageID, content string) error {
	_, err := p.msgCB.Execute(func() (*discordgo.Message, error) {
		m, err := p.s.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
		return m, classify(err)
	})
	return err
}

func (p *Platform) Delete(ctx context.Context, channelID, messageID string) error {
	return classify(p.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

// deletable separa los ids borrables en bulk (<14 días) del resto.
func deletable(msgs []*discordgo.Message, now time.Time, keep func(*discordgo.Message) bool) (bulk, single []string) {
	for _, m := range msgs {
		if m == nil || !keep(m) {
			continue
		}
		if now.Sub(m.Timestamp) < bulkDeleteMaxAge {
			bulk = append(bulk, m.ID)
		} else {
			single = append(single, m.ID)
		}
	}
	return bulk, single
}

func (p *Platform) deleteIDs(ctx context.Context, channelID string, bulk, single []string) int {
	n := 0
	if len(bulk) > 0 {
		if err := p.s.ChannelMessagesBulkDelete(channelID, bulk, discordgo.WithContext(ctx)); err == nil {
			n += len(bulk)
		} else {
			single = append(bulk, single...)
		}
	}
	for _, id := range single {
		if err := p.s.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err == nil {
			n++
		}
	}
	return n
}

// purge recorre hasta pages páginas del canal borrando los mensajes que match acepta.
func (p *Platform) purge(ctx context.Context, channelID string, pages int, match func(*discordgo.Message) bool) (int, error) {
	total := 0
	before := ""
	for i := 0; i < pages; i++ {
		msgs, err := p.s.ChannelMessages(channelID, purgePage, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return total, classify(err)
		}
		if len(msgs) == 0 {
			break
		}
		bulk, single := deletable(msgs, time.Now(), match)
		total += p.deleteIDs(ctx, channelID, bulk, single)
		if len(msgs) < purgePage {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return total, nil
}

func (p *Platform) ownMessage(m *discordgo.Message) bool {
	return m.Author != nil && m.Author.ID == p.selfID()
}

func (p *Platform) PurgeStatusTags(ctx context.Context, channelID, keepID string) (int, error) {
	return p.purge(ctx, channelID, purgeMaxPages, func(m *discordgo.Message) bool {
		return m.ID != keepID && p.ownMessage(m) && domain.IsStatusTag(m.Content)
	})
}

// PurgeOwnMessages borra los mensajes del bot en todos los canales de texto (/clear).
func (p *Platform) PurgeOwnMessages(ctx context.Context, guildID string) (int, error) {
	chs, err := p.guildChannels(ctx, guildID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, ch := range chs {
		if ch == nil || ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		n, err := p.purge(ctx, ch.ID, clearMaxRounds, p.ownMessage)
		if err != nil {
			p.log.Debug("purge channel failed", "guild", guildID, "channel", ch.ID, "err", err)
		}
		total += n
	}
	return total, nil
}

// ---------- alerta de un minuto ----------

// PlayAlert entra al canal, reproduce el clip y sale. Sin archivo no hace nada.
func (p *Platform) PlayAlert(ctx context.Context, guildID, channelID string) error {
	frames, err := p.clip.load()
	if errors.Is(err, os.ErrNotExist) {
		p.log.Debug("alert clip missing, skipping", "guild", guildID, "path", p.clip.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load alert clip: %w", err)
	}

	p.mu.Lock()
	if p.playing[guildID] {
		p.mu.Unlock()
		return nil
	}
	p.playing[guildID] = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.playing, guildID)
		p.mu.Unlock()
	}()

	vc, err := p.s.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return fmt.Errorf("voice join: %w", err)
	}
	defer p.Disconnect(guildID)

	// el motor mutea a todos en study; el bot necesita hablar
	if vs, err := p.s.State.VoiceState(guildID, p.selfID()); err == nil && vs.Mute {
		if err := p.SetMute(ctx, guildID, p.selfID(), false); err != nil {
			p.log.Debug("self unmute failed", "guild", guildID, "err", err)
		}
	}

	if err := sleepCtx(ctx, alertLeadIn); err != nil {
		return err
	}
	_ = vc.Speaking(true)
	defer func() { _ = vc.Speaking(false) }()
	for _, f := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case vc.OpusSend <- f:
		}
	}
	return sleepCtx(ctx, alertLeadIn)
}

func (p *Platform) Disconnect(guildID string) {
	p.s.RLock()
	vc := p.s.VoiceConnections[guildID]
	p.s.RUnlock()
	if vc == nil {
		return
	}
	if err := vc.Disconnect(); err != nil {
		p.log.Debug("voice disconnect", "guild", guildID, "err", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
