package codec

import (
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
)

// eventMessages maps inbound event types to their wire message type.
var eventMessages = map[schema.EventType]MessageType{
	schema.EventBookUpdate:  MessageOrderBookUpdate,
	schema.EventTradeTicks:  MessageTradeTicks,
	schema.EventOrderFilled: MessageOrderFilled,
	schema.EventOrderStatus: MessageOrderStatus,
	schema.EventHedgeFilled: MessageHedgeFilled,
	schema.EventError:       MessageError,
}

// MarshalPayload encodes an inbound event for recording. The payload is the
// wire frame; disconnect is an empty payload.
func MarshalPayload(dst []byte, ev schema.Event) ([]byte, error) {
	return AppendEvent(dst, ev)
}

// UnmarshalPayload restores an event recorded under the given type.
func UnmarshalPayload(t schema.EventType, payload []byte) (schema.Event, error) {
	if t == schema.EventDisconnect {
		return schema.NewDisconnect(), nil
	}
	want, ok := eventMessages[t]
	if !ok {
		return schema.Event{}, errors.Wrap(exception.ErrUnexpectedEvent, "unmarshal payload").With("type", t.String())
	}
	mt, body, _, err := SplitFrame(payload)
	if err != nil {
		return schema.Event{}, err
	}
	if mt != want {
		return schema.Event{}, errors.Wrap(exception.ErrMalformedFrame, "payload type mismatch").With("type", t.String())
	}
	return DecodeEvent(mt, body)
}
