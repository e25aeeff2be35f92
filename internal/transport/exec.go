package transport

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"autotrader/internal/bus"
	"autotrader/internal/codec"
	"autotrader/internal/obs"
	"autotrader/internal/schema"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
	"go.uber.org/zap"
)

// Exec is the order entry connection. It writes login and intent frames and
// publishes every execution notification to the bus.
type Exec struct {
	conn    net.Conn
	log     *zap.Logger
	metrics *obs.Metrics

	mu  sync.Mutex
	buf []byte
}

// DialExec connects to the execution endpoint.
func DialExec(ctx context.Context, addr string, logger *zap.Logger, metrics *obs.Metrics) (*Exec, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "dial exec").With("addr", addr)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	return NewExec(conn, logger, metrics), nil
}

// NewExec wraps an established connection.
func NewExec(conn net.Conn, logger *zap.Logger, metrics *obs.Metrics) *Exec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exec{
		conn:    conn,
		log:     logger.Named("exec"),
		metrics: metrics,
		buf:     make([]byte, 0, codec.MaxFrameSize),
	}
}

// Login sends the login frame. It must precede any intent.
func (e *Exec) Login(teamName, secret string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	frame, err := codec.AppendLogin(e.buf[:0], teamName, secret)
	if err != nil {
		return errors.Wrap(err, "encode login")
	}
	if _, err := e.conn.Write(frame); err != nil {
		return errors.Wrap(err, "write login")
	}
	e.log.Info("logged in", zap.String("teamName", teamName))
	return nil
}

// Send writes one intent frame.
func (e *Exec) Send(intent schema.Intent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	frame, err := codec.AppendIntent(e.buf[:0], intent)
	if err != nil {
		return err
	}
	if _, err := e.conn.Write(frame); err != nil {
		return errors.Wrap(err, "write intent").With("orderId", uint32(intent.OrderID))
	}
	return nil
}

// Run reads execution frames until the connection ends. A lost connection is
// published as a disconnect event. Cancelling ctx closes the connection and
// returns nil without publishing. A frame that does not decode is a protocol
// violation and is returned as an error.
func (e *Exec) Run(ctx context.Context, q *bus.Queue) error {
	stop := context.AfterFunc(ctx, func() { _ = e.conn.Close() })
	defer stop()

	reader := codec.NewFrameReader(e.conn)
	for {
		t, body, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if protocolViolation(err) {
				e.log.Error("exec frame rejected", zap.Error(err))
				return err
			}
			return e.lost(ctx, q, err)
		}
		ev, err := codec.DecodeEvent(t, body)
		if err != nil {
			e.log.Error("exec frame rejected", zap.Uint8("type", uint8(t)), zap.Error(err))
			return errors.Wrap(err, "decode exec frame").With("type", uint8(t))
		}
		env := bus.Envelope{Event: ev, TsRecv: time.Now().UnixNano()}
		if err := q.Publish(ctx, env); err != nil {
			if errors.Is(err, bus.ErrQueueClosed) {
				e.metrics.IncQueueClosed()
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "publish exec event")
		}
	}
}

func (e *Exec) lost(ctx context.Context, q *bus.Queue, cause error) error {
	if cause == io.EOF {
		e.log.Warn("exec connection closed by peer")
	} else {
		e.log.Error("exec connection lost", zap.Error(cause))
	}
	err := q.Publish(ctx, bus.Envelope{Event: schema.NewDisconnect(), TsRecv: time.Now().UnixNano()})
	if err != nil && !errors.Is(err, bus.ErrQueueClosed) && ctx.Err() == nil {
		return errors.Wrap(err, "publish disconnect")
	}
	return nil
}

func protocolViolation(err error) bool {
	return errors.Is(err, exception.ErrUnexpectedMessage) || errors.Is(err, exception.ErrMalformedFrame)
}

// Close closes the connection.
func (e *Exec) Close() error {
	return e.conn.Close()
}
