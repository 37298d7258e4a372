package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

// cycleHandle agrupa la goroutine del motor y la del timer activo.
// cancel == nil mientras Start todavía está validando (reserva).
type cycleHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	mu          sync.Mutex
	timerCancel context.CancelFunc
	timerDone   chan struct{}
}

func (h *cycleHandle) stopTimer() {
	h.mu.Lock()
	cancel, done := h.timerCancel, h.timerDone
	h.timerCancel, h.timerDone = nil, nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// guildState es el GuildCycleState de un guild. Todo campo se toca bajo mu.
type guildState struct {
	mu sync.Mutex

	guildID      string
	phase        domain.Phase
	stopping     bool
	studyCount   int
	studyMinutes int
	breakMinutes int
	startedAt    time.Time
	sessionID    string

	voiceChannelID  string
	chatChannelID   string
	statusMessageID string

	pendingExtension int

	// progreso del timer vigente; timerGen descarta timers viejos
	timerGen  int
	label     domain.PhaseLabel
	remaining int
	total     int

	handle *cycleHandle
}

func (st *guildState) setPhase(p domain.Phase) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stopping {
		return
	}
	st.phase = p
}

func (st *guildState) currentPhase() domain.Phase {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.phase
}

func (st *guildState) incStudy() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.studyCount++
	return st.studyCount
}

func (st *guildState) chat() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.chatChannelID
}

func (st *guildState) voiceChannel() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.voiceChannelID
}

func (st *guildState) setVoiceChannel(id string) {
	st.mu.Lock()
	st.voiceChannelID = id
	st.mu.Unlock()
}

func (st *guildState) session() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessionID
}

func (st *guildState) nextTimerGen(label domain.PhaseLabel, total int) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.timerGen++
	st.label = label
	st.total = total
	st.remaining = total
	return st.timerGen
}

func (st *guildState) setRemaining(gen, minutes int) {
	st.mu.Lock()
	if gen == st.timerGen {
		st.remaining = minutes
	}
	st.mu.Unlock()
}

func (st *guildState) setStatusMessage(gen int, id string) {
	st.mu.Lock()
	if gen == st.timerGen {
		st.statusMessageID = id
	}
	st.mu.Unlock()
}

func (st *guildState) clearStatusMessage(id string) {
	st.mu.Lock()
	if st.statusMessageID == id {
		st.statusMessageID = ""
	}
	st.mu.Unlock()
}

func (st *guildState) liveStatusMessage() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.statusMessageID
}

// reset deja el estado en Idle. Lo usa el motor al terminar.
func (st *guildState) reset() {
	st.mu.Lock()
	st.phase = domain.PhaseNone
	st.studyCount = 0
	st.pendingExtension = 0
	st.remaining = 0
	st.mu.Unlock()
}

// Registry: un guildState por guild, protegido por su propio lock.
type Registry struct {
	mu     sync.Mutex
	guilds map[string]*guildState
}

func NewRegistry() *Registry {
	return &Registry{guilds: map[string]*guildState{}}
}

func (r *Registry) get(guildID string) (*guildState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.guilds[guildID]
	return st, ok
}

func (r *Registry) getOrCreate(guildID string) *guildState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.guilds[guildID]
	if !ok {
		st = &guildState{guildID: guildID}
		r.guilds[guildID] = st
	}
	return st
}

// remove sólo borra si la entrada sigue siendo st (un Start nuevo pudo reemplazarla).
func (r *Registry) remove(guildID string, st *guildState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.guilds[guildID]; ok && cur == st {
		delete(r.guilds, guildID)
	}
}

func (r *Registry) guildIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.guilds))
	for id := range r.guilds {
		out = append(out, id)
	}
	return out
}
