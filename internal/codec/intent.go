package codec

import (
	"encoding/binary"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// AppendLogin appends a login frame.
func AppendLogin(dst []byte, name, secret string) ([]byte, error) {
	if len(name) > StringFieldSize || len(secret) > StringFieldSize {
		return dst, exception.ErrFieldTooLong
	}
	out, body := appendHeader(dst, MessageLogin)
	_ = putString(body[0:], name)
	_ = putString(body[StringFieldSize:], secret)
	return out, nil
}

// DecodeLogin parses a login body.
func DecodeLogin(body []byte) (string, string, bool) {
	if len(body) < loginBodySize {
		return "", "", false
	}
	return readString(body[0:StringFieldSize]), readString(body[StringFieldSize:loginBodySize]), true
}

// AppendIntent appends the wire frame of an engine intent.
func AppendIntent(dst []byte, in schema.Intent) ([]byte, error) {
	switch in.Type {
	case schema.EventInsertOrder:
		out, body := appendHeader(dst, MessageInsertOrder)
		binary.BigEndian.PutUint32(body[0:4], uint32(in.OrderID))
		body[4] = byte(in.Side)
		if err := putU32(body[5:9], int64(in.Price)); err != nil {
			return dst, err
		}
		if err := putU32(body[9:13], int64(in.Volume)); err != nil {
			return dst, err
		}
		body[13] = byte(in.Lifespan)
		return out, nil
	case schema.EventCancelOrder:
		out, body := appendHeader(dst, MessageCancelOrder)
		binary.BigEndian.PutUint32(body[0:4], uint32(in.OrderID))
		return out, nil
	case schema.EventHedgeOrder:
		out, body := appendHeader(dst, MessageHedgeOrder)
		binary.BigEndian.PutUint32(body[0:4], uint32(in.OrderID))
		body[4] = byte(in.Side)
		if err := putU32(body[5:9], int64(in.Price)); err != nil {
			return dst, err
		}
		if err := putU32(body[9:13], int64(in.Volume)); err != nil {
			return dst, err
		}
		return out, nil
	case schema.EventAmendOrder:
		out, body := appendHeader(dst, MessageAmendOrder)
		binary.BigEndian.PutUint32(body[0:4], uint32(in.OrderID))
		if err := putU32(body[4:8], int64(in.Volume)); err != nil {
			return dst, err
		}
		return out, nil
	default:
		return dst, exception.ErrOrderUnsupported
	}
}

// DecodeIntent parses the body of an outbound frame.
func DecodeIntent(t MessageType, body []byte) (schema.Intent, error) {
	size, ok := BodySize(t)
	if !ok {
		return schema.Intent{}, exception.ErrUnexpectedMessage
	}
	if len(body) < size {
		return schema.Intent{}, exception.ErrMalformedFrame
	}
	id := schema.OrderID(binary.BigEndian.Uint32(body[0:4]))
	switch t {
	case MessageInsertOrder:
		return schema.InsertIntent(id, schema.Side(body[4]), schema.Price(u32(body[5:9])),
			schema.Volume(u32(body[9:13])), schema.Lifespan(body[13])), nil
	case MessageCancelOrder:
		return schema.CancelIntent(id), nil
	case MessageHedgeOrder:
		return schema.HedgeIntent(id, schema.Side(body[4]), schema.Price(u32(body[5:9])),
			schema.Volume(u32(body[9:13]))), nil
	case MessageAmendOrder:
		return schema.AmendIntent(id, schema.Volume(u32(body[4:8]))), nil
	default:
		return schema.Intent{}, exception.ErrUnexpectedMessage
	}
}
