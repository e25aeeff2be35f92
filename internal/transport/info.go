package transport

import (
	"context"
	"net"
	"time"

	"autotrader/internal/bus"
	"autotrader/internal/codec"
	"autotrader/internal/obs"
	"autotrader/pkg/exception"

	"github.com/yanun0323/errors"
	"go.uber.org/zap"
)

const datagramSize = 64 * 1024

// Info receives market data datagrams. A book dropped on a full queue is
// superseded by the next one, so publishing never waits.
type Info struct {
	conn    net.PacketConn
	log     *zap.Logger
	metrics *obs.Metrics
}

// ListenInfo binds the market data socket.
func ListenInfo(ctx context.Context, addr string, logger *zap.Logger, metrics *obs.Metrics) (*Info, error) {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "listen info").With("addr", addr)
	}
	return NewInfo(conn, logger, metrics), nil
}

// NewInfo wraps a bound packet connection.
func NewInfo(conn net.PacketConn, logger *zap.Logger, metrics *obs.Metrics) *Info {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Info{conn: conn, log: logger.Named("info"), metrics: metrics}
}

// Addr returns the bound address.
func (i *Info) Addr() net.Addr {
	return i.conn.LocalAddr()
}

// Run reads datagrams until ctx is done or the queue is closed.
func (i *Info) Run(ctx context.Context, q *bus.Queue) error {
	stop := context.AfterFunc(ctx, func() { _ = i.conn.Close() })
	defer stop()

	buf := make([]byte, datagramSize)
	for {
		n, _, err := i.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read info datagram")
		}
		closed, err := i.dispatch(q, buf[:n])
		if err != nil {
			return err
		}
		if closed {
			return nil
		}
	}
}

// dispatch publishes every frame of one datagram and reports a closed queue.
// Truncated datagrams are dropped; a message type the information channel
// never carries is returned as an error.
func (i *Info) dispatch(q *bus.Queue, datagram []byte) (bool, error) {
	recv := time.Now().UnixNano()
	for len(datagram) > 0 {
		t, body, n, err := codec.SplitFrame(datagram)
		if errors.Is(err, exception.ErrUnexpectedMessage) {
			i.log.Error("info frame rejected", zap.Uint8("type", uint8(t)))
			return false, errors.Wrap(err, "info frame").With("type", uint8(t))
		}
		if err != nil {
			i.log.Warn("info datagram dropped", zap.Int("bytes", len(datagram)), zap.Error(err))
			return false, nil
		}
		datagram = datagram[n:]

		if t != codec.MessageOrderBookUpdate && t != codec.MessageTradeTicks {
			i.log.Error("info frame rejected", zap.Uint8("type", uint8(t)))
			return false, errors.Wrap(exception.ErrUnexpectedMessage, "info frame").With("type", uint8(t))
		}
		ev, err := codec.DecodeEvent(t, body)
		if err != nil {
			i.log.Warn("info frame dropped", zap.Uint8("type", uint8(t)), zap.Error(err))
			continue
		}
		switch err := q.TryPublish(bus.Envelope{Event: ev, TsRecv: recv}); {
		case err == nil:
		case errors.Is(err, bus.ErrQueueFull):
			i.metrics.IncQueueDrop()
		case errors.Is(err, bus.ErrQueueClosed):
			i.metrics.IncQueueClosed()
			return true, nil
		}
	}
	return false, nil
}

// Close closes the socket.
func (i *Info) Close() error {
	return i.conn.Close()
}
