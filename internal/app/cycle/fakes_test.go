package cycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jose-valero/dark-study-bot/internal/domain"
)

type muteCall struct {
	userID string
	mute   bool
}

// fakePlatform simula un guild con un canal de voz y un canal de chat.
type fakePlatform struct {
	mu sync.Mutex

	voiceID string // "" = el canal no existe
	chatID  string
	members map[string]*VoiceMember

	deny  bool
	fails map[string]bool
	// remute: el siguiente unmute de ese miembro lo pisa un mute en curso
	remute map[string]bool
	// onMembers corre (sin lock) cada vez que el motor lista el canal
	onMembers func()

	resolveMisses int

	mutes    []muteCall
	sent     []string
	edits    []string
	deleted  []string
	messages map[string]string
	nextID   int

	alerts      int
	disconnects int
}

func newFakePlatform(members ...VoiceMember) *fakePlatform {
	f := &fakePlatform{
		voiceID:  "vc-1",
		chatID:   "chat-1",
		members:  map[string]*VoiceMember{},
		fails:    map[string]bool{},
		remute:   map[string]bool{},
		messages: map[string]string{},
	}
	for _, mem := range members {
		f.members[mem.UserID] = &mem
	}
	return f
}

func (f *fakePlatform) ResolveVoiceChannel(_ context.Context, _, channelID, name string) (VoiceChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voiceID == "" {
		f.resolveMisses++
		return VoiceChannel{}, ErrChannelNotFound
	}
	return VoiceChannel{ID: f.voiceID, Name: name}, nil
}

func (f *fakePlatform) VoiceMembers(_ context.Context, _, _ string) ([]VoiceMember, error) {
	f.mu.Lock()
	hook := f.onMembers
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]VoiceMember, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakePlatform) SetMute(_ context.Context, _, userID string, mute bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes = append(f.mutes, muteCall{userID, mute})
	if f.deny {
		return fmt.Errorf("edit %s: %w", userID, ErrPermissionDenied)
	}
	if f.fails[userID] {
		return fmt.Errorf("edit %s: boom", userID)
	}
	if m, ok := f.members[userID]; ok {
		m.Mute = mute
		if !mute && f.remute[userID] {
			delete(f.remute, userID)
			m.Mute = true
		}
	}
	return nil
}

func (f *fakePlatform) ChatChannel(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatID == "" {
		return "", fmt.Errorf("no chat")
	}
	return f.chatID, nil
}

func (f *fakePlatform) Send(_ context.Context, _, content string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.sent = append(f.sent, content)
	f.messages[id] = content
	return id, nil
}

func (f *fakePlatform) Edit(_ context.Context, _, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return fmt.Errorf("unknown message %s", messageID)
	}
	f.edits = append(f.edits, content)
	f.messages[messageID] = content
	return nil
}

func (f *fakePlatform) Delete(_ context.Context, _, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	delete(f.messages, messageID)
	return nil
}

func (f *fakePlatform) PurgeStatusTags(_ context.Context, _, keepID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, content := range f.messages {
		if id != keepID && domain.IsStatusTag(content) {
			delete(f.messages, id)
			n++
		}
	}
	return n, nil
}

func (f *fakePlatform) PlayAlert(context.Context, string, string) error {
	f.mu.Lock()
	f.alerts++
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) Disconnect(string) {
	f.mu.Lock()
	f.disconnects++
	f.mu.Unlock()
}

func (f *fakePlatform) muted(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[userID].Mute
}

func (f *fakePlatform) muteCalls() []muteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]muteCall(nil), f.mutes...)
}

func (f *fakePlatform) misses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolveMisses
}

func (f *fakePlatform) setVoiceChannel(id string) {
	f.mu.Lock()
	f.voiceID = id
	f.mu.Unlock()
}

// sentCount cuenta los mensajes nuevos (no edits) con ese contenido exacto.
func (f *fakePlatform) sentCount(content string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s == content {
			n++
		}
	}
	return n
}

func (f *fakePlatform) alertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alerts
}

// posted: todo lo enviado o editado, en orden de llegada por tipo.
func (f *fakePlatform) posted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.sent...)
	return append(out, f.edits...)
}

func (f *fakePlatform) sawMessage(prefix string) bool {
	for _, s := range f.posted() {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

type fakeRecorder struct {
	mu        sync.Mutex
	started   int
	completed []int
	stopped   []int
}

func (r *fakeRecorder) SessionStarted(context.Context, string, int, int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	return fmt.Sprintf("session-%d", r.started), nil
}

func (r *fakeRecorder) StudyCompleted(_ context.Context, _ string, n int) error {
	r.mu.Lock()
	r.completed = append(r.completed, n)
	r.mu.Unlock()
	return nil
}

func (r *fakeRecorder) SessionStopped(_ context.Context, _ string, n int) error {
	r.mu.Lock()
	r.stopped = append(r.stopped, n)
	r.mu.Unlock()
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Minute = 20 * time.Millisecond
	cfg.ChannelBackoff = 10 * time.Millisecond
	cfg.UnmuteRetryDelay = time.Millisecond
	cfg.StatusGrace = time.Millisecond
	cfg.CompletedGrace = time.Millisecond
	cfg.EditCooldown = time.Second
	cfg.SkipYield = 5 * time.Millisecond
	cfg.CleanupTimeout = time.Second
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(f *fakePlatform, rec SessionRecorder) *Manager {
	return NewManager(testConfig(), Options{
		Voice:      f,
		Messenger:  f,
		Alerter:    f,
		Recorder:   rec,
		Logger:     quietLogger(),
		SelfUserID: "bot-self",
	})
}
