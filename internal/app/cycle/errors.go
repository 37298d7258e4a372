package cycle

import "errors"

var (
	// ErrInvalidDuration: minutos fuera de rango. El estado no cambia.
	ErrInvalidDuration = errors.New("duration out of range")
	ErrAlreadyRunning  = errors.New("cycle already running")
	ErrNotRunning      = errors.New("no cycle running")
	// ErrChannelNotFound: el canal de voz no se pudo resolver (borrado, renombrado).
	ErrChannelNotFound = errors.New("voice channel not found")
	// ErrPermissionDenied: la plataforma rechazó el mute o la gestión de canales.
	ErrPermissionDenied = errors.New("permission denied")
)

const (
	MinStudyMinutes = 1
	MaxMinutes      = 24 * 60
	MinBreakMinutes = 0
	MinExtension    = 1
)
