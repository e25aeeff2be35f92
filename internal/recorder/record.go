package recorder

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"autotrader/internal/codec"
	"autotrader/internal/schema"

	"github.com/yanun0323/errors"
)

// Record layout: header | payload | crc32c(header+payload).
// Header fields are big-endian like the venue frames.
const (
	recordVersion      uint16 = 1
	recordHeaderSize          = 44
	recordChecksumSize        = 4
)

var (
	recordMagic = [4]byte{'A', 'T', 'W', '1'}
	crcTable    = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic            = errors.New("wal invalid magic")
	ErrUnsupportedRecordVer    = errors.New("wal unsupported record version")
	ErrInvalidRecordHeaderSize = errors.New("wal invalid header size")
	ErrChecksumMismatch        = errors.New("wal checksum mismatch")
	ErrPayloadTooLarge         = errors.New("wal payload too large")
)

// Record is one decoded WAL entry. Payload is only valid inside the handler
// that received it.
type Record struct {
	Header  schema.EventHeader
	Payload []byte
}

// Outbound reports whether the record holds an engine intent.
func (r Record) Outbound() bool {
	return r.Header.Flags&schema.FlagOutbound != 0
}

// Event decodes an inbound record.
func (r Record) Event() (schema.Event, error) {
	return codec.UnmarshalPayload(r.Header.Type, r.Payload)
}

// Intent decodes an outbound record.
func (r Record) Intent() (schema.Intent, error) {
	mt, body, _, err := codec.SplitFrame(r.Payload)
	if err != nil {
		return schema.Intent{}, err
	}
	return codec.DecodeIntent(mt, body)
}

func encodeHeader(dst []byte, header schema.EventHeader, payloadLen int) {
	_ = dst[recordHeaderSize-1]
	copy(dst[0:4], recordMagic[:])
	binary.BigEndian.PutUint16(dst[4:6], recordVersion)
	binary.BigEndian.PutUint16(dst[6:8], uint16(recordHeaderSize))
	binary.BigEndian.PutUint16(dst[8:10], uint16(header.Type))
	binary.BigEndian.PutUint16(dst[10:12], header.Version)
	binary.BigEndian.PutUint16(dst[12:14], header.Flags)
	binary.BigEndian.PutUint16(dst[14:16], 0)
	binary.BigEndian.PutUint32(dst[16:20], uint32(payloadLen))
	binary.BigEndian.PutUint64(dst[20:28], header.Seq)
	binary.BigEndian.PutUint64(dst[28:36], uint64(header.TsEvent))
	binary.BigEndian.PutUint64(dst[36:44], uint64(header.TsRecv))
}

func decodeHeader(src []byte) (schema.EventHeader, uint32, error) {
	if len(src) < recordHeaderSize {
		return schema.EventHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	if !bytes.Equal(src[0:4], recordMagic[:]) {
		return schema.EventHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.BigEndian.Uint16(src[4:6]); ver != recordVersion {
		return schema.EventHeader{}, 0, ErrUnsupportedRecordVer
	}
	if size := binary.BigEndian.Uint16(src[6:8]); size != recordHeaderSize {
		return schema.EventHeader{}, 0, ErrInvalidRecordHeaderSize
	}
	h := schema.EventHeader{
		Type:    schema.EventType(binary.BigEndian.Uint16(src[8:10])),
		Version: binary.BigEndian.Uint16(src[10:12]),
		Flags:   binary.BigEndian.Uint16(src[12:14]),
		Seq:     binary.BigEndian.Uint64(src[20:28]),
		TsEvent: int64(binary.BigEndian.Uint64(src[28:36])),
		TsRecv:  int64(binary.BigEndian.Uint64(src[36:44])),
	}
	return h, binary.BigEndian.Uint32(src[16:20]), nil
}

func checksum(header, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}
