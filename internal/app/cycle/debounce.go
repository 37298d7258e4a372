package cycle

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memberKey struct {
	guildID string
	userID  string
}

// editDebouncer recuerda el último edit de mute por (guild, miembro).
// Es global y no se purga: a escala de un canal de voz no hace falta.
type editDebouncer struct {
	mu    sync.Mutex
	last  map[memberKey]time.Time
	win   time.Duration
	clock clockwork.Clock
}

func newEditDebouncer(window time.Duration, clock clockwork.Clock) *editDebouncer {
	return &editDebouncer{last: map[memberKey]time.Time{}, win: window, clock: clock}
}

// Touch registra un edit sin consultar la ventana (joins del watcher).
// Los batches del motor no pasan por acá.
func (d *editDebouncer) Touch(k memberKey) {
	d.mu.Lock()
	d.last[k] = d.clock.Now()
	d.mu.Unlock()
}

// Allow devuelve true y registra el edit si pasó la ventana desde el último.
func (d *editDebouncer) Allow(k memberKey) bool {
	now := d.clock.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.last[k]; ok && now.Sub(last) < d.win {
		return false
	}
	d.last[k] = now
	return true
}
