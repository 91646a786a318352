package queue

import (
	"errors"
	"fmt"
)

var (
	ErrResolutionFailed = errors.New("no se pudo resolver la pista")
	ErrNothingPlaying   = errors.New("no se está reproduciendo nada")
	ErrTrackChanged     = errors.New("la pista actual ya cambió")
	ErrIndexOutOfRange  = errors.New("índice fuera de rango")
	ErrDriver           = errors.New("error del reproductor de voz")
	ErrSessionClosed    = errors.New("la sesión de voz está cerrada")
	ErrNotConnected     = errors.New("el bot no está en un canal de voz")
)

// Error carries the operation and guild that produced a queue failure.
// Kind is one of the Err* sentinels, so errors.Is works on it.
type Error struct {
	Op      string
	GuildID string
	Kind    error
	Err     error
}

func newError(op, guildID string, kind, err error) *Error {
	return &Error{Op: op, GuildID: guildID, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.GuildID, e.Kind)
	}
	return fmt.Sprintf("%s [%s]: %v: %v", e.Op, e.GuildID, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
