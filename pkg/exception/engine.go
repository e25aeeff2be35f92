package exception

import "github.com/yanun0323/errors"

var (
	ErrUnexpectedEvent = errors.New("engine: unexpected event type")
	ErrSessionClosed   = errors.New("engine: session disconnected")
	ErrReplayDiverged  = errors.New("engine: replay intents diverged from recording")
)

var (
	ErrConfigInvalid     = errors.New("config: invalid")
	ErrConfigUnsupported = errors.New("config: unsupported information channel")
)
