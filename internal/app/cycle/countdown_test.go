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

func collectTicks(ctx context.Context, clock clockwork.Clock, spec TimerSpec) <-chan Tick {
	out := make(chan Tick, 16)
	go func() {
		defer close(out)
		for t := range Ticks(ctx, clock, time.Minute, spec) {
			out <- t
		}
	}()
	return out
}

func recvTick(t *testing.T, ch <-chan Tick) (Tick, bool) {
	t.Helper()
	select {
	case tick, ok := <-ch:
		return tick, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for tick")
		return Tick{}, false
	}
}

func TestTicksEmitsOnePerMinutePlusFinal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock := clockwork.NewFakeClock()

	ch := collectTicks(ctx, clock, TimerSpec{Seconds: 180, Label: domain.LabelStudy, Number: 2, TotalMinutes: 3})

	var got []Tick
	tick, ok := recvTick(t, ch)
	require.True(t, ok)
	got = append(got, tick)
	for i := 0; i < 3; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(time.Minute)
		tick, ok := recvTick(t, ch)
		require.True(t, ok)
		got = append(got, tick)
	}
	_, ok = recvTick(t, ch)
	assert.False(t, ok, "no ticks after the final one")

	require.Len(t, got, 4)
	var tags []string
	for _, tk := range got {
		tags = append(tags, tk.Tag().String())
	}
	assert.Equal(t, []string{"[S #2: 03/03]", "[S #2: 02/03]", "[S #2: 01/03]", "[S #2: 00/03]"}, tags)
	assert.False(t, got[2].Final)
	assert.True(t, got[3].Final)
}

func TestTicksCancelledMidwayStopsSilently(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockwork.NewFakeClock()

	ch := collectTicks(ctx, clock, TimerSpec{Seconds: 300, Label: domain.LabelBreak, TotalMinutes: 5})

	tick, ok := recvTick(t, ch)
	require.True(t, ok)
	assert.Equal(t, 5, tick.Remaining)

	bctx, bcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer bcancel()
	require.NoError(t, clock.BlockUntilContext(bctx, 1))
	cancel()

	_, ok = recvTick(t, ch)
	assert.False(t, ok)
}

func TestTicksAlreadyCancelledEmitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := 0
	for range Ticks(ctx, clockwork.NewFakeClock(), time.Minute, TimerSpec{Seconds: 60}) {
		n++
	}
	assert.Zero(t, n)
}

func TestTicksFinalSurvivesLateCancel(t *testing.T) {
	// el deadline del tick final ya venció cuando llega la cancelación
	clock := clockwork.NewFakeClock()
	start := clock.Now().Add(-2 * time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []Tick
	for tk := range Ticks(ctx, clock, time.Minute, TimerSpec{Seconds: 60, Label: domain.LabelBreak, Start: start}) {
		got = append(got, tk)
		cancel()
	}
	require.Len(t, got, 2)
	assert.True(t, got[1].Final)
	assert.Zero(t, got[1].Remaining)
}

func TestRunTimerPostsAndRetiresStatusMessage(t *testing.T) {
	f := newFakePlatform()
	m := newTestManager(f, nil)
	st := m.reg.getOrCreate("g1")
	st.chatChannelID = "chat-1"
	gen := st.nextTimerGen(domain.LabelStudy, 2)

	m.runTimer(context.Background(), st, gen, TimerSpec{
		Seconds:      120,
		Label:        domain.LabelStudy,
		Number:       1,
		TotalMinutes: 2,
		Start:        m.clock.Now(),
	})

	f.mu.Lock()
	sent := append([]string(nil), f.sent...)
	edits := append([]string(nil), f.edits...)
	f.mu.Unlock()
	assert.Equal(t, []string{"[S #1: 02/02]"}, sent)
	assert.Equal(t, []string{"[S #1: 01/02]", "[S #1: 00/02]"}, edits)

	assert.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.messages) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return st.liveStatusMessage() == "" }, time.Second, 5*time.Millisecond)
}

func TestRunTimerResendsWhenEditFails(t *testing.T) {
	f := newFakePlatform()
	m := newTestManager(f, nil)
	st := m.reg.getOrCreate("g1")
	st.chatChannelID = "chat-1"
	gen := st.nextTimerGen(domain.LabelBreak, 1)

	// borrado externo del mensaje antes del segundo tick
	id := m.postStatus(context.Background(), st, gen, "chat-1", "", "[B #0: 01/01]")
	require.NoError(t, f.Delete(context.Background(), "chat-1", id))

	got := m.postStatus(context.Background(), st, gen, "chat-1", id, "[B #0: 00/01]")
	assert.NotEqual(t, id, got)
	assert.Equal(t, got, st.liveStatusMessage())
}
