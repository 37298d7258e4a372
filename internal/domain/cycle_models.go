package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Phase es el objetivo de enforcement actual de un guild.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseStudy
	PhaseBreak
)

func (p Phase) String() string {
	switch p {
	case PhaseStudy:
		return "study"
	case PhaseBreak:
		return "break"
	default:
		return "none"
	}
}

// WantsMute: en Study se silencia, en Break no.
func (p Phase) WantsMute() bool { return p == PhaseStudy }

// PhaseLabel sólo se usa para mostrar; no cambia comportamiento.
type PhaseLabel string

const (
	LabelStudy         PhaseLabel = "Study"
	LabelBreak         PhaseLabel = "Break"
	LabelExtendedBreak PhaseLabel = "Extended break"
)

// TagKind devuelve la letra del tag de estado: S para study, B para cualquier break.
func (l PhaseLabel) TagKind() byte {
	if l == LabelStudy {
		return 'S'
	}
	return 'B'
}

// StatusTag es el formato estable de los mensajes de progreso del bot:
//
//	[<K> #<n>: MM/TT]
//
// K es S o B, n el número de fase (0 en breaks), MM los minutos restantes y
// TT el total de la fase. Si Total es 0 se omite "/TT".
type StatusTag struct {
	Kind      byte
	Number    int
	Remaining int
	Total     int
}

func (t StatusTag) String() string {
	rem := t.Remaining
	if rem < 0 {
		rem = 0
	}
	if t.Total > 0 {
		return fmt.Sprintf("[%c #%d: %02d/%02d]", t.Kind, t.Number, rem, t.Total)
	}
	return fmt.Sprintf("[%c #%d: %02d]", t.Kind, t.Number, rem)
}

// fases de hasta 1440 min → 4 dígitos, por eso \d{2,}
var statusTagRe = regexp.MustCompile(`^\[([SB]) #(\d+): (\d{2,})(?:/(\d{2,}))?\]$`)

// ParseStatusTag reconoce exactamente el formato de StatusTag.String.
func ParseStatusTag(s string) (StatusTag, bool) {
	m := statusTagRe.FindStringSubmatch(s)
	if m == nil {
		return StatusTag{}, false
	}
	n, err1 := strconv.Atoi(m[2])
	rem, err2 := strconv.Atoi(m[3])
	if err1 != nil || err2 != nil {
		return StatusTag{}, false
	}
	t := StatusTag{Kind: m[1][0], Number: n, Remaining: rem}
	if m[4] != "" {
		total, err := strconv.Atoi(m[4])
		if err != nil {
			return StatusTag{}, false
		}
		t.Total = total
	}
	return t, true
}

func IsStatusTag(s string) bool { return statusTagRe.MatchString(s) }

// StudySession es una fila del historial de ciclos.
type StudySession struct {
	ID             string
	GuildID        string
	StudyMinutes   int
	BreakMinutes   int
	CompletedStudy int
	StartedAt      time.Time
	StoppedAt      *time.Time
	EndReason      *string // stopped | interrupted
}
