package codec

import (
	"encoding/binary"

	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// DecodeEvent parses the body of an inbound frame into a tagged event.
// Types the engine never receives yield ErrUnexpectedMessage.
func DecodeEvent(t MessageType, body []byte) (schema.Event, error) {
	size, ok := BodySize(t)
	if !ok {
		return schema.Event{}, exception.ErrUnexpectedMessage
	}
	if len(body) < size {
		return schema.Event{}, exception.ErrMalformedFrame
	}
	switch t {
	case MessageOrderBookUpdate:
		book, err := decodeBook(body)
		if err != nil {
			return schema.Event{}, err
		}
		return schema.NewBookUpdate(book), nil
	case MessageTradeTicks:
		ticks, err := decodeBook(body)
		if err != nil {
			return schema.Event{}, err
		}
		return schema.NewTradeTicks(ticks), nil
	case MessageOrderFilled:
		return schema.NewOrderFilled(schema.OrderID(u32(body[0:4])),
			schema.Price(u32(body[4:8])), schema.Volume(u32(body[8:12]))), nil
	case MessageHedgeFilled:
		return schema.NewHedgeFilled(schema.OrderID(u32(body[0:4])),
			schema.Price(u32(body[4:8])), schema.Volume(u32(body[8:12]))), nil
	case MessageOrderStatus:
		return schema.NewOrderStatus(schema.OrderID(u32(body[0:4])),
			schema.Volume(u32(body[4:8])), schema.Volume(u32(body[8:12])),
			schema.Fee(int32(binary.BigEndian.Uint32(body[12:16])))), nil
	case MessageError:
		return schema.NewError(schema.OrderID(u32(body[0:4])), readString(body[4:errorBodySize])), nil
	default:
		return schema.Event{}, exception.ErrUnexpectedMessage
	}
}

// AppendEvent appends the wire frame of an inbound event. Disconnect has no frame.
func AppendEvent(dst []byte, ev schema.Event) ([]byte, error) {
	switch ev.Type {
	case schema.EventBookUpdate:
		out, body := appendHeader(dst, MessageOrderBookUpdate)
		return out, encodeBook(body, ev.Book)
	case schema.EventTradeTicks:
		out, body := appendHeader(dst, MessageTradeTicks)
		return out, encodeBook(body, ev.Book)
	case schema.EventOrderFilled, schema.EventHedgeFilled:
		t := MessageOrderFilled
		if ev.Type == schema.EventHedgeFilled {
			t = MessageHedgeFilled
		}
		out, body := appendHeader(dst, t)
		binary.BigEndian.PutUint32(body[0:4], uint32(ev.Fill.OrderID))
		if err := putU32(body[4:8], int64(ev.Fill.Price)); err != nil {
			return dst, err
		}
		if err := putU32(body[8:12], int64(ev.Fill.Volume)); err != nil {
			return dst, err
		}
		return out, nil
	case schema.EventOrderStatus:
		out, body := appendHeader(dst, MessageOrderStatus)
		binary.BigEndian.PutUint32(body[0:4], uint32(ev.Status.OrderID))
		if err := putU32(body[4:8], int64(ev.Status.FillVolume)); err != nil {
			return dst, err
		}
		if err := putU32(body[8:12], int64(ev.Status.RemainingVolume)); err != nil {
			return dst, err
		}
		binary.BigEndian.PutUint32(body[12:16], uint32(int32(ev.Status.Fees)))
		return out, nil
	case schema.EventError:
		out, body := appendHeader(dst, MessageError)
		binary.BigEndian.PutUint32(body[0:4], uint32(ev.Error.OrderID))
		msg := ev.Error.Message
		if len(msg) > StringFieldSize {
			msg = msg[:StringFieldSize]
		}
		_ = putString(body[4:], msg)
		return out, nil
	case schema.EventDisconnect:
		return dst, nil
	default:
		return dst, exception.ErrUnexpectedEvent
	}
}

func encodeBook(body []byte, b schema.BookUpdate) error {
	body[0] = byte(b.Instrument)
	binary.BigEndian.PutUint32(body[1:5], b.Sequence)
	off := 5
	put := func(v int64) error {
		if err := putU32(body[off:off+4], v); err != nil {
			return err
		}
		off += 4
		return nil
	}
	for _, p := range b.AskPrices {
		if err := put(int64(p)); err != nil {
			return err
		}
	}
	for _, v := range b.AskVolumes {
		if err := put(int64(v)); err != nil {
			return err
		}
	}
	for _, p := range b.BidPrices {
		if err := put(int64(p)); err != nil {
			return err
		}
	}
	for _, v := range b.BidVolumes {
		if err := put(int64(v)); err != nil {
			return err
		}
	}
	return nil
}

func decodeBook(body []byte) (schema.BookUpdate, error) {
	b := schema.BookUpdate{
		Instrument: schema.Instrument(body[0]),
		Sequence:   binary.BigEndian.Uint32(body[1:5]),
	}
	if !b.Instrument.Valid() {
		return schema.BookUpdate{}, exception.ErrUnknownInstrument
	}
	off := 5
	next := func() int64 {
		v := u32(body[off : off+4])
		off += 4
		return v
	}
	for i := range b.AskPrices {
		b.AskPrices[i] = schema.Price(next())
	}
	for i := range b.AskVolumes {
		b.AskVolumes[i] = schema.Volume(next())
	}
	for i := range b.BidPrices {
		b.BidPrices[i] = schema.Price(next())
	}
	for i := range b.BidVolumes {
		b.BidVolumes[i] = schema.Volume(next())
	}
	return b, nil
}
