package codec

import (
	"encoding/binary"
	"io"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// MessageType is the one-byte type tag of a wire frame.
type MessageType uint8

const (
	MessageUnknown MessageType = iota
	MessageAmendOrder
	MessageCancelOrder
	MessageError
	MessageHedgeFilled
	MessageHedgeOrder
	MessageInsertOrder
	MessageLogin
	MessageOrderFilled
	MessageOrderStatus
	MessageOrderBookUpdate
	MessageTradeTicks
)

const (
	// HeaderSize is the frame header: uint16 total length + uint8 type.
	HeaderSize = 3
	// StringFieldSize is the width of NUL-padded string fields.
	StringFieldSize = 50
	// MaxFrameSize bounds any frame defined by the protocol. LOGIN has the
	// largest body.
	MaxFrameSize = HeaderSize + loginBodySize
)

const (
	amendBodySize  = 8
	cancelBodySize = 4
	errorBodySize  = 4 + StringFieldSize
	fillBodySize   = 12
	hedgeBodySize  = 13
	insertBodySize = 14
	loginBodySize  = 2 * StringFieldSize
	statusBodySize = 16
	bookBodySize   = 1 + 4 + 4*4*schema.TopLevelCount
)

var bodySizes = [...]int{
	MessageAmendOrder:      amendBodySize,
	MessageCancelOrder:     cancelBodySize,
	MessageError:           errorBodySize,
	MessageHedgeFilled:     fillBodySize,
	MessageHedgeOrder:      hedgeBodySize,
	MessageInsertOrder:     insertBodySize,
	MessageLogin:           loginBodySize,
	MessageOrderFilled:     fillBodySize,
	MessageOrderStatus:     statusBodySize,
	MessageOrderBookUpdate: bookBodySize,
	MessageTradeTicks:      bookBodySize,
}

// BodySize returns the fixed body size of a message type.
func BodySize(t MessageType) (int, bool) {
	if t == MessageUnknown || int(t) >= len(bodySizes) {
		return 0, false
	}
	return bodySizes[t], true
}

// appendHeader grows dst by a full frame for t and returns the frame and its body.
func appendHeader(dst []byte, t MessageType) ([]byte, []byte) {
	size, _ := BodySize(t)
	total := HeaderSize + size
	start := len(dst)
	if cap(dst)-start < total {
		grown := make([]byte, start, start+total)
		copy(grown, dst)
		dst = grown
	}
	dst = dst[:start+total]
	binary.BigEndian.PutUint16(dst[start:start+2], uint16(total))
	dst[start+2] = byte(t)
	return dst, dst[start+HeaderSize:]
}

// SplitFrame parses one frame from the front of src.
func SplitFrame(src []byte) (MessageType, []byte, int, error) {
	if len(src) < HeaderSize {
		return MessageUnknown, nil, 0, exception.ErrMalformedFrame
	}
	total := int(binary.BigEndian.Uint16(src[0:2]))
	t := MessageType(src[2])
	size, ok := BodySize(t)
	if !ok {
		return t, nil, 0, exception.ErrUnexpectedMessage
	}
	if total != HeaderSize+size || len(src) < total {
		return t, nil, 0, exception.ErrMalformedFrame
	}
	return t, src[HeaderSize:total], total, nil
}

// FrameReader reads consecutive frames from a stream.
type FrameReader struct {
	r   io.Reader
	buf [MaxFrameSize]byte
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Next returns the next frame. The body is only valid until the next call.
func (f *FrameReader) Next() (MessageType, []byte, error) {
	if _, err := io.ReadFull(f.r, f.buf[:HeaderSize]); err != nil {
		return MessageUnknown, nil, err
	}
	total := int(binary.BigEndian.Uint16(f.buf[0:2]))
	t := MessageType(f.buf[2])
	size, ok := BodySize(t)
	if !ok {
		return t, nil, errors.Wrap(exception.ErrUnexpectedMessage, "read frame").With("type", uint8(t))
	}
	if total != HeaderSize+size {
		return t, nil, errors.Wrap(exception.ErrMalformedFrame, "read frame").With("length", total)
	}
	body := f.buf[HeaderSize:total]
	if _, err := io.ReadFull(f.r, body); err != nil {
		return t, nil, err
	}
	return t, body, nil
}

func putString(dst []byte, s string) error {
	if len(s) > StringFieldSize {
		return exception.ErrFieldTooLong
	}
	n := copy(dst[:StringFieldSize], s)
	clear(dst[n:StringFieldSize])
	return nil
}

func readString(src []byte) string {
	for i := 0; i < StringFieldSize && i < len(src); i++ {
		if src[i] == 0 {
			return string(src[:i])
		}
	}
	if len(src) > StringFieldSize {
		src = src[:StringFieldSize]
	}
	return string(src)
}

func putU32(dst []byte, v int64) error {
	if v < 0 || v > int64(^uint32(0)) {
		return exception.ErrInvalidArgument
	}
	binary.BigEndian.PutUint32(dst, uint32(v))
	return nil
}

func u32(src []byte) int64 {
	return int64(binary.BigEndian.Uint32(src))
}
