package exception

import "github.com/yanun0323/errors"

var (
	ErrConnectionClose     = errors.New("connection closed")
	ErrUnexpectedMessage   = errors.New("connection: unexpected message type")
	ErrMalformedFrame      = errors.New("connection: malformed frame")
	ErrFieldTooLong        = errors.New("connection: string field too long")
	ErrGatewayDisconnected = errors.New("connection: order gateway disconnected")
)
