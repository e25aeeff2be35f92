package recorder

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"autotrader/internal/codec"
	"autotrader/internal/schema"

	"github.com/yanun0323/errors"
)

var (
	ErrQueueFull      = errors.New("wal queue full")
	ErrClosed         = errors.New("wal writer closed")
	ErrNotStarted     = errors.New("wal writer not started")
	ErrAlreadyStarted = errors.New("wal writer already started")
)

const maxPayloadLen = uint64(^uint32(0))

// Writer appends records to rotating WAL segments from a buffered queue.
// TryAppend never blocks the caller; a full queue is reported as ErrQueueFull.
type Writer struct {
	cfg  Config
	ch   chan pending
	wg   sync.WaitGroup
	err  atomic.Value
	seq  atomic.Uint64
	now  func() time.Time
	segs uint64

	started atomic.Bool
	closed  atomic.Bool
}

type pending struct {
	header  schema.EventHeader
	payload []byte
}

// NewWriter creates a WAL writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create wal dir").With("dir", cfg.Dir)
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan pending, cfg.QueueSize),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start runs the writer loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
	return nil
}

// Close stops accepting records, drains the queue and syncs the open segment.
func (w *Writer) Close() error {
	if w.closed.CompareAndSwap(false, true) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer loop.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues a raw record without blocking. The payload is copied.
func (w *Writer) TryAppend(header schema.EventHeader, payload []byte) error {
	p, err := w.prepare(header, payload)
	if err != nil {
		return err
	}
	select {
	case w.ch <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

// Append enqueues a raw record, waiting for room until ctx is done. Offline
// tools use it; the trading loop uses TryAppend.
func (w *Writer) Append(ctx context.Context, header schema.EventHeader, payload []byte) error {
	p, err := w.prepare(header, payload)
	if err != nil {
		return err
	}
	select {
	case w.ch <- p:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) prepare(header schema.EventHeader, payload []byte) (pending, error) {
	switch {
	case w.closed.Load():
		return pending{}, ErrClosed
	case !w.started.Load():
		return pending{}, ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return pending{}, err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return pending{}, ErrPayloadTooLarge
	}
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}
	if header.Seq == 0 {
		header.Seq = w.seq.Add(1)
	}
	var cp []byte
	if len(payload) > 0 {
		cp = make([]byte, len(payload))
		copy(cp, payload)
	}
	return pending{header: header, payload: cp}, nil
}

// AppendEvent records an inbound event.
func (w *Writer) AppendEvent(ev schema.Event, tsEvent, tsRecv int64) error {
	payload, err := codec.MarshalPayload(nil, ev)
	if err != nil {
		return err
	}
	return w.TryAppend(schema.NewHeader(ev.Type, 0, tsEvent, tsRecv), payload)
}

// Send records an outbound intent, so a Writer can be teed into the order gateway.
func (w *Writer) Send(intent schema.Intent) error {
	payload, err := codec.AppendIntent(nil, intent)
	if err != nil {
		return err
	}
	ts := w.now().UnixNano()
	return w.TryAppend(schema.NewHeader(intent.Type, 0, ts, ts), payload)
}

func (w *Writer) loop(ctx context.Context) {
	var (
		seg     *segment
		flushC  <-chan time.Time
		syncC   <-chan time.Time
		scratch = make([]byte, recordHeaderSize+recordChecksumSize)
	)
	if w.cfg.FlushInterval > 0 {
		t := time.NewTicker(w.cfg.FlushInterval)
		defer t.Stop()
		flushC = t.C
	}
	if w.cfg.SyncInterval > 0 {
		t := time.NewTicker(w.cfg.SyncInterval)
		defer t.Stop()
		syncC = t.C
	}
	defer func() {
		w.setErr(seg.close())
	}()

	write := func(p pending) bool {
		next, err := w.write(seg, scratch, p)
		seg = next
		if err != nil {
			w.setErr(err)
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case p, ok := <-w.ch:
					if !ok || !write(p) {
						return
					}
				default:
					return
				}
			}
		case p, ok := <-w.ch:
			if !ok || !write(p) {
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := seg.sync(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

// write appends one record and returns the segment now in use.
func (w *Writer) write(seg *segment, scratch []byte, p pending) (*segment, error) {
	size := int64(recordHeaderSize + len(p.payload) + recordChecksumSize)
	now := w.now()
	if w.rotate(seg, now, size) {
		if err := seg.close(); err != nil {
			return nil, err
		}
		opened, err := w.open(now)
		if err != nil {
			return nil, err
		}
		seg = opened
	}

	header := scratch[:recordHeaderSize]
	sum := scratch[recordHeaderSize:]
	encodeHeader(header, p.header, len(p.payload))
	binary.BigEndian.PutUint32(sum, checksum(header, p.payload))

	for _, part := range [][]byte{header, p.payload, sum} {
		if _, err := seg.buf.Write(part); err != nil {
			return seg, errors.Wrap(err, "write wal record").With("segment", seg.path)
		}
	}
	seg.size += size
	return seg, nil
}

func (w *Writer) rotate(seg *segment, now time.Time, next int64) bool {
	if seg == nil {
		return true
	}
	if seg.size > 0 && seg.size+next > w.cfg.SegmentMaxBytes {
		return true
	}
	return w.cfg.SegmentMaxDuration > 0 && now.Sub(seg.openedAt) >= w.cfg.SegmentMaxDuration
}

func (w *Writer) open(now time.Time) (*segment, error) {
	stamp := now.Format("20060102-150405")
	for {
		w.segs++
		path := filepath.Join(w.cfg.Dir, fmt.Sprintf("%s-%s-%06d.wal", w.cfg.FilePrefix, stamp, w.segs))
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "open wal segment").With("segment", path)
		}
		return &segment{
			path:     path,
			file:     file,
			buf:      bufio.NewWriterSize(file, w.cfg.BufferSize),
			openedAt: now,
		}, nil
	}
}

func (w *Writer) setErr(err error) {
	if err == nil || w.err.Load() != nil {
		return
	}
	w.err.Store(err)
}

type segment struct {
	path     string
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) sync() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	if err := s.sync(); err != nil {
		_ = s.file.Close()
		return errors.Wrap(err, "sync wal segment").With("segment", s.path)
	}
	return s.file.Close()
}
