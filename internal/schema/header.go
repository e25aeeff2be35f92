package schema

// SchemaVersion is the current record schema version.
const SchemaVersion uint16 = 1

// Record flags.
const (
	FlagOutbound uint16 = 1 << iota
)

// EventHeader is the metadata stored with every recorded event.
type EventHeader struct {
	Type    EventType
	Version uint16
	Flags   uint16
	Seq     uint64
	TsEvent int64
	TsRecv  int64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, seq uint64, tsEvent, tsRecv int64) EventHeader {
	h := EventHeader{
		Type:    eventType,
		Version: SchemaVersion,
		Seq:     seq,
		TsEvent: tsEvent,
		TsRecv:  tsRecv,
	}
	if eventType.Outbound() {
		h.Flags |= FlagOutbound
	}
	return h
}
