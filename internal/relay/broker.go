package relay

import (
	"context"
	"encoding/json"
	"time"
)

// Broker carries envelopes between processes. Run blocks, handing every
// received envelope to deliver, until ctx is done or Close is called.
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	Run(ctx context.Context, deliver func(Envelope)) error
	Close() error
}

// LocalBroker is the single-process broker: nothing leaves the hub.
type LocalBroker struct{}

func (LocalBroker) Publish(context.Context, Envelope) error { return nil }

func (LocalBroker) Run(ctx context.Context, _ func(Envelope)) error {
	<-ctx.Done()
	return nil
}

func (LocalBroker) Close() error { return nil }

type wireEnvelope struct {
	Origin    string          `json:"origin"`
	Event     string          `json:"event"`
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func encodeWire(env Envelope) ([]byte, error) {
	return json.Marshal(wireEnvelope{
		Origin:    env.Origin,
		Event:     env.Event,
		Channel:   env.Channel,
		Data:      env.Data,
		Timestamp: env.Timestamp,
	})
}

func decodeWire(payload []byte) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(payload, &w); err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Origin:    w.Origin,
		Event:     w.Event,
		Channel:   w.Channel,
		Data:      w.Data,
		Timestamp: w.Timestamp,
	}, nil
}
