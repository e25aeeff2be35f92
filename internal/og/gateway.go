package og

import (
	"autotrader/internal/schema"
	"autotrader/pkg/exception"
)

// Sink delivers intents to the venue. Send must not block on the venue.
type Sink interface {
	Send(intent schema.Intent) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(intent schema.Intent) error

func (f SinkFunc) Send(intent schema.Intent) error {
	return f(intent)
}

// Tee sends every intent to each sink in order and returns the first error.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(intent schema.Intent) error {
		var first error
		for _, s := range sinks {
			if err := s.Send(intent); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// BestEffort wraps a secondary sink, such as a recorder, whose failures must
// not be reported as a failed send. Errors go to onErr and Send returns nil.
func BestEffort(sink Sink, onErr func(intent schema.Intent, err error)) Sink {
	return SinkFunc(func(intent schema.Intent) error {
		if err := sink.Send(intent); err != nil && onErr != nil {
			onErr(intent, err)
		}
		return nil
	})
}

// Collector keeps intents in memory.
type Collector struct {
	Intents []schema.Intent
}

func (c *Collector) Send(intent schema.Intent) error {
	c.Intents = append(c.Intents, intent)
	return nil
}

// Reset drops collected intents and returns them.
func (c *Collector) Reset() []schema.Intent {
	out := c.Intents
	c.Intents = nil
	return out
}

// Gateway forwards intents while the session is connected.
type Gateway struct {
	sink      Sink
	connected bool
	sent      uint64
}

// NewGateway creates a connected gateway.
func NewGateway(sink Sink) *Gateway {
	return &Gateway{sink: sink, connected: true}
}

// Send forwards an intent. After Disconnect every send is refused.
func (g *Gateway) Send(intent schema.Intent) error {
	if !g.connected {
		return exception.ErrGatewayDisconnected
	}
	if g.sink == nil {
		return exception.ErrNilInstance
	}
	if err := g.sink.Send(intent); err != nil {
		return err
	}
	g.sent++
	return nil
}

// Disconnect marks the gateway as disconnected. There is no reconnect.
func (g *Gateway) Disconnect() {
	g.connected = false
}

func (g *Gateway) Connected() bool {
	return g.connected
}

// Sent returns the number of forwarded intents.
func (g *Gateway) Sent() uint64 {
	return g.sent
}
