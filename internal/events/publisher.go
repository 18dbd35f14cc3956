package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/ditabuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/logfields"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "ditabuilder.results"

const publishTimeout = 5 * time.Second

// Publisher receives results as they become available.
type Publisher interface {
	PublishTransform(ctx context.Context, res *transform.Result) error
	PublishCheck(ctx context.Context, result *integrity.CheckResult) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransform(context.Context, *transform.Result) error  { return nil }
func (NoopPublisher) PublishCheck(context.Context, *integrity.CheckResult) error { return nil }
func (NoopPublisher) Close() error                                               { return nil }

// streamPublisher is the slice of jetstream.JetStream the publisher needs.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes JSON events to a JetStream stream. Transform events go to
// <subject>.transform.<transtype> and broken references to <subject>.broken.
type NATSPublisher struct {
	conn    *nats.Conn
	js      streamPublisher
	subject string
	logger  *slog.Logger
}

// Connect dials url, ensures a stream covering subject exists and returns a publisher.
func Connect(ctx context.Context, url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url, nats.Name("ditabuilder"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to connect to NATS").
			WithContext("url", url).
			WithRemedy("check events.nats_url or leave it empty to disable publishing").
			Build()
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to create JetStream context").Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName(subject),
		Description: "ditabuilder transform results and broken references",
		Subjects:    []string{subject + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to create JetStream stream").
			WithContext("stream", StreamName(subject)).
			Build()
	}

	slog.Info("NATS publisher initialized", logfields.URL(url), slog.String("subject", subject))
	return newNATSPublisher(conn, js, subject), nil
}

func newNATSPublisher(conn *nats.Conn, js streamPublisher, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, js: js, subject: subject, logger: slog.Default()}
}

// StreamName derives a valid stream name from a subject prefix.
func StreamName(subject string) string {
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	return strings.ToUpper(r.Replace(subject))
}

// TransformSubject is the subject a result for transtype is published on.
func (p *NATSPublisher) TransformSubject(transtype string) string {
	return p.subject + ".transform." + subjectToken(transtype)
}

// BrokenSubject is the subject broken references are published on.
func (p *NATSPublisher) BrokenSubject() string {
	return p.subject + ".broken"
}

// PublishTransform publishes one event for res.
func (p *NATSPublisher) PublishTransform(ctx context.Context, res *transform.Result) error {
	event := NewTransformEvent(res)
	event.Timestamp = time.Now()
	if err := p.publish(ctx, p.TransformSubject(res.Transtype), event); err != nil {
		return err
	}
	p.logger.Debug("Published transform event", logfields.InvocationID(res.ID), logfields.Transtype(res.Transtype))
	return nil
}

// PublishCheck publishes one event per broken reference in result.
func (p *NATSPublisher) PublishCheck(ctx context.Context, result *integrity.CheckResult) error {
	now := time.Now()
	for _, rec := range result.Broken {
		event := NewBrokenLinkEvent(result.Root, rec)
		event.Timestamp = now
		if err := p.publish(ctx, p.BrokenSubject(), event); err != nil {
			return err
		}
	}
	p.logger.Debug("Published broken reference events", slog.Int("count", len(result.Broken)))
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to publish event").
			WithContext("subject", subject).
			Retryable().
			Build()
	}
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

// subjectToken makes s usable as a single subject token.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}
	r := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")
	return r.Replace(s)
}
