package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"
)

// EventsName is the registry name of the NATS JetStream event capability.
const EventsName = "events"

const eventsMaxAge = 168 * time.Hour

// jsContext is the subset of nats.JetStreamContext used here. Test doubles
// implement it without a live NATS server.
type jsContext interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// EventsPlugin registers the events capability.
type EventsPlugin struct {
	cfg config.NATSConfig
}

// NewEventsPlugin returns a plugin backed by the NATS server in cfg.
func NewEventsPlugin(cfg config.NATSConfig) *EventsPlugin {
	return &EventsPlugin{cfg: cfg}
}

func (p *EventsPlugin) Name() string { return EventsName }

// Register provides a lazily connecting Events capability.
func (p *EventsPlugin) Register(r *Registry) {
	r.Provide(EventsName, NewEvents(p.cfg, NewCircuitBreaker(EventsName)))
}

// Events publishes launch events to a JetStream stream.
type Events struct {
	url     string
	stream  string
	subject string
	cb      *gobreaker.CircuitBreaker
	newJS   func(url string) (jsContext, func(), error)
}

// NewEvents constructs Events. Connections are opened per operation.
func NewEvents(cfg config.NATSConfig, cb *gobreaker.CircuitBreaker) *Events {
	return &Events{
		url:     cfg.URL,
		stream:  cfg.Stream,
		subject: cfg.Subject,
		cb:      cb,
		newJS:   realNewJS,
	}
}

// Probe verifies NATS connectivity. A missing stream is not a failure: it is
// created on the first announcement.
func (e *Events) Probe(ctx context.Context) health.ProbeResult {
	start := time.Now()

	_, err := e.cb.Execute(func() (any, error) {
		js, cleanup, err := e.newJS(e.url)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		defer cleanup()

		_, infoErr := js.StreamInfo(e.stream, nats.Context(ctx))
		if infoErr != nil && !errors.Is(infoErr, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("stream info: %w", infoErr)
		}
		return nil, nil
	})

	latency := time.Since(start).Milliseconds()
	if err != nil {
		return health.ProbeResult{Name: EventsName, OK: false, LatencyMs: latency, Error: breakerMessage(err)}
	}
	return health.ProbeResult{Name: EventsName, OK: true, LatencyMs: latency}
}

// Announce ensures the stream exists and publishes report to the configured
// subject.
func (e *Events) Announce(ctx context.Context, report *launch.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding launch report: %w", err)
	}

	_, err = e.cb.Execute(func() (any, error) {
		js, cleanup, err := e.newJS(e.url)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}
		defer cleanup()

		if err := ensureStream(js, e.stream, e.subject); err != nil {
			return nil, err
		}
		if _, err := js.Publish(e.subject, payload, nats.Context(ctx), nats.MsgId(report.ID.String())); err != nil {
			return nil, fmt.Errorf("publishing %s: %w", e.subject, err)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("events announce: %w", err)
	}
	return nil
}

// ensureStream creates the stream if it does not exist, or updates it if it
// does. nats.ErrStreamNotFound signals "create"; any other error is returned.
func ensureStream(js jsContext, name, subject string) error {
	cfg := &nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subject},
		Retention: nats.LimitsPolicy,
		MaxAge:    eventsMaxAge,
	}

	_, err := js.StreamInfo(name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, addErr := js.AddStream(cfg); addErr != nil {
			return fmt.Errorf("creating stream %s: %w", name, addErr)
		}
	case err != nil:
		return fmt.Errorf("querying stream %s: %w", name, err)
	default:
		if _, updErr := js.UpdateStream(cfg); updErr != nil {
			return fmt.Errorf("updating stream %s: %w", name, updErr)
		}
	}
	return nil
}

// realNewJS opens a real NATS connection and returns a JetStreamContext plus a
// cleanup function that closes the connection.
func realNewJS(url string) (jsContext, func(), error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, func() {}, fmt.Errorf("nats connect %s: %w", url, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, func() {}, fmt.Errorf("nats jetstream context: %w", err)
	}

	return js, func() { nc.Close() }, nil
}
