// Package cycle es el motor de ciclos study/break por guild: timer, mute
// enforcement, cola de extensión de break y reacción a join/leave de voz.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

type Manager struct {
	cfg      Config
	voice    Voice
	msgs     Messenger
	alert    Alerter
	rec      SessionRecorder
	clock    clockwork.Clock
	log      *slog.Logger
	selfID   string
	reg      *Registry
	debounce *editDebouncer
}

func NewManager(cfg Config, opts Options) *Manager {
	m := &Manager{
		cfg:    cfg,
		voice:  opts.Voice,
		msgs:   opts.Messenger,
		alert:  opts.Alerter,
		rec:    opts.Recorder,
		clock:  opts.Clock,
		log:    opts.Logger,
		selfID: opts.SelfUserID,
		reg:    NewRegistry(),
	}
	if m.alert == nil {
		m.alert = noopAlerter{}
	}
	if m.rec == nil {
		m.rec = noopRecorder{}
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	m.log = m.log.With("component", "cycle")
	m.debounce = newEditDebouncer(cfg.EditCooldown, m.clock)
	return m
}

// StartRequest: parámetros de /learn.
type StartRequest struct {
	GuildID      string
	StudyMinutes int
	BreakMinutes int
}

// Start arranca el ciclo del guild: valida, resuelve el canal de voz, mutea ya
// a todos y lanza el motor. Si algo falla no queda nada corriendo.
func (m *Manager) Start(ctx context.Context, req StartRequest) error {
	if req.StudyMinutes < MinStudyMinutes || req.StudyMinutes > MaxMinutes {
		return fmt.Errorf("%w: study must be between %d and %d minutes", ErrInvalidDuration, MinStudyMinutes, MaxMinutes)
	}
	if req.BreakMinutes < MinBreakMinutes || req.BreakMinutes > MaxMinutes {
		return fmt.Errorf("%w: break must be between %d and %d minutes", ErrInvalidDuration, MinBreakMinutes, MaxMinutes)
	}

	st := m.reg.getOrCreate(req.GuildID)
	h := &cycleHandle{done: make(chan struct{})}
	st.mu.Lock()
	if st.handle != nil {
		st.mu.Unlock()
		return ErrAlreadyRunning
	}
	st.handle = h // reserva: otro Start concurrente ve AlreadyRunning
	voiceID := st.voiceChannelID
	st.mu.Unlock()

	release := func() {
		st.mu.Lock()
		st.handle = nil
		st.phase = domain.PhaseNone
		st.mu.Unlock()
	}

	ch, err := m.voice.ResolveVoiceChannel(ctx, req.GuildID, voiceID, m.cfg.VoiceChannelName)
	if err != nil {
		release()
		if errors.Is(err, ErrChannelNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrChannelNotFound, err)
	}

	chatID, err := m.msgs.ChatChannel(ctx, req.GuildID)
	if err != nil {
		m.log.Warn("chat channel unavailable; running without announcements", "guild", req.GuildID, "err", err)
	}

	// la fase va antes del primer batch: un join durante el batch ya se reconcilia
	st.mu.Lock()
	st.voiceChannelID = ch.ID
	st.chatChannelID = chatID
	st.phase = domain.PhaseStudy
	st.stopping = false
	st.mu.Unlock()

	m.announce(ctx, st, fmt.Sprintf("▶️ Start study %dm / break %dm.  /stop to end.", req.StudyMinutes, req.BreakMinutes))

	res, err := m.applyMute(ctx, req.GuildID, ch.ID, true)
	if err != nil {
		release()
		return fmt.Errorf("initial mute: %w", err)
	}
	if res.allDenied() {
		release()
		m.announce(ctx, st, "I need the 'Mute Members' permission to server mute in that channel.")
		return ErrPermissionDenied
	}

	sessionID, err := m.rec.SessionStarted(ctx, req.GuildID, req.StudyMinutes, req.BreakMinutes)
	if err != nil {
		m.log.Warn("record session start", "guild", req.GuildID, "err", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	st.mu.Lock()
	st.phase = domain.PhaseStudy
	st.stopping = false
	st.studyCount = 0
	st.pendingExtension = 0
	st.statusMessageID = ""
	st.studyMinutes = req.StudyMinutes
	st.breakMinutes = req.BreakMinutes
	st.startedAt = m.clock.Now()
	st.sessionID = sessionID
	h.cancel = cancel
	st.mu.Unlock()

	m.log.Info("cycle started", "guild", req.GuildID, "study", req.StudyMinutes, "break", req.BreakMinutes, "channel", ch.ID)
	go func() {
		h.err = m.runCycle(cctx, st, h)
		close(h.done)
	}()
	return nil
}

// Stop cancela el ciclo y espera a que el motor termine (unmute final incluido).
// Devuelve los study completados antes del reset.
func (m *Manager) Stop(ctx context.Context, guildID string) (int, error) {
	st, ok := m.reg.get(guildID)
	if !ok {
		return 0, ErrNotRunning
	}
	st.mu.Lock()
	h := st.handle
	if h == nil || h.cancel == nil || st.stopping {
		st.mu.Unlock()
		return 0, ErrNotRunning
	}
	// primero la fase: el watcher deja de reconciliar
	st.stopping = true
	st.phase = domain.PhaseNone
	completed := st.studyCount
	st.pendingExtension = 0
	sessionID := st.sessionID
	chatID := st.chatChannelID
	st.mu.Unlock()

	h.cancel()
	select {
	case <-h.done:
	case <-ctx.Done():
		// el motor termina solo; la limpieza corre cuando salga
		go func() {
			<-h.done
			m.afterStop(context.Background(), st, h, completed, sessionID, chatID)
		}()
		return completed, ctx.Err()
	}
	m.afterStop(ctx, st, h, completed, sessionID, chatID)
	return completed, nil
}

func (m *Manager) afterStop(ctx context.Context, st *guildState, h *cycleHandle, completed int, sessionID, chatID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CleanupTimeout)
	defer cancel()
	guildID := st.guildID

	if h.err != nil && !errors.Is(h.err, context.Canceled) {
		m.log.Warn("cycle ended with error", "guild", guildID, "err", h.err)
	}

	m.alert.Disconnect(guildID)
	if chatID != "" {
		if id := st.liveStatusMessage(); id != "" {
			_ = m.msgs.Delete(ctx, chatID, id)
			st.clearStatusMessage(id)
		}
		if _, err := m.msgs.PurgeStatusTags(ctx, chatID, ""); err != nil {
			m.log.Debug("purge status tags on stop", "guild", guildID, "err", err)
		}
	}
	if sessionID != "" {
		if err := m.rec.SessionStopped(ctx, sessionID, completed); err != nil {
			m.log.Warn("record session stop", "guild", guildID, "err", err)
		}
	}
	m.announce(ctx, st, fmt.Sprintf("📘 study finished: %d cycles.", completed))

	st.mu.Lock()
	st.handle = nil
	st.mu.Unlock()
	m.reg.remove(guildID, st)

	m.log.Info("cycle stopped", "guild", guildID, "completed", completed)
}

// StopAll para todos los ciclos; se usa al apagar el bot.
func (m *Manager) StopAll(ctx context.Context) {
	for _, id := range m.reg.guildIDs() {
		if _, err := m.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotRunning) {
			m.log.Warn("stop on shutdown", "guild", id, "err", err)
		}
	}
}

// Snapshot es la vista de sólo lectura para /cyclestatus y el endpoint HTTP.
type Snapshot struct {
	GuildID          string            `json:"guild_id"`
	Phase            string            `json:"phase"`
	Label            domain.PhaseLabel `json:"label"`
	StudyCount       int               `json:"study_count"`
	RemainingMinutes int               `json:"remaining_minutes"`
	TotalMinutes     int               `json:"total_minutes"`
	PendingExtension int               `json:"pending_extension_minutes,omitempty"`
	StudyMinutes     int               `json:"study_minutes"`
	BreakMinutes     int               `json:"break_minutes"`
	StartedAt        time.Time         `json:"started_at"`
}

// Status devuelve false si no hay ciclo activo en el guild.
func (m *Manager) Status(guildID string) (Snapshot, bool) {
	st, ok := m.reg.get(guildID)
	if !ok {
		return Snapshot{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.phase == domain.PhaseNone {
		return Snapshot{}, false
	}
	return Snapshot{
		GuildID:          st.guildID,
		Phase:            st.phase.String(),
		Label:            st.label,
		StudyCount:       st.studyCount,
		RemainingMinutes: st.remaining,
		TotalMinutes:     st.total,
		PendingExtension: st.pendingExtension,
		StudyMinutes:     st.studyMinutes,
		BreakMinutes:     st.breakMinutes,
		StartedAt:        st.startedAt,
	}, true
}

// Running lista los guilds con ciclo activo.
func (m *Manager) Running() []Snapshot {
	var out []Snapshot
	for _, id := range m.reg.guildIDs() {
		if s, ok := m.Status(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *Manager) announce(ctx context.Context, st *guildState, text string) {
	chatID := st.chat()
	if chatID == "" {
		return
	}
	if _, err := m.msgs.Send(ctx, chatID, text); err != nil {
		m.log.Debug("announce failed", "guild", st.guildID, "err", err)
	}
}
