package recorder

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/yanun0323/errors"
)

// ReaderOptions controls record decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes WAL records sequentially.
type Reader struct {
	r       *bufio.Reader
	opts    ReaderOptions
	header  [recordHeaderSize]byte
	sum     [recordChecksumSize]byte
	payload []byte
}

// NewReader wraps an io.Reader with WAL decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{r: bufio.NewReader(r), opts: opts}
}

// Next returns the next record. The payload is only valid until the next call.
// A clean end of stream is io.EOF; a torn record is io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	if _, err := io.ReadFull(r.r, r.header[:]); err != nil {
		return Record{}, err
	}
	header, n, err := decodeHeader(r.header[:])
	if err != nil {
		return Record{}, err
	}
	if (r.opts.MaxPayloadSize > 0 && n > uint32(r.opts.MaxPayloadSize)) || uint64(n) > maxPayloadLen {
		return Record{}, errors.Wrap(ErrPayloadTooLarge, "read wal record").With("size", n)
	}

	if cap(r.payload) < int(n) {
		r.payload = make([]byte, n)
	}
	r.payload = r.payload[:n]
	if _, err := io.ReadFull(r.r, r.payload); err != nil {
		return Record{}, unexpected(err)
	}
	if _, err := io.ReadFull(r.r, r.sum[:]); err != nil {
		return Record{}, unexpected(err)
	}
	if !r.opts.DisableChecksum && binary.BigEndian.Uint32(r.sum[:]) != checksum(r.header[:], r.payload) {
		return Record{}, errors.Wrap(ErrChecksumMismatch, "read wal record").With("seq", header.Seq)
	}
	return Record{Header: header, Payload: r.payload}, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
