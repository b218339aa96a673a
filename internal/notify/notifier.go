package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"git.home.luguber.info/inful/getbuf/internal/hooks"
	"git.home.luguber.info/inful/getbuf/internal/logfields"
	"git.home.luguber.info/inful/getbuf/internal/retry"
)

// Event is the message published after each generation.
type Event struct {
	Type      string           `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Run       hooks.RunSummary `json:"run"`
}

// Event types.
const (
	EventGenerated = "generated"
	EventFailed    = "failed"
)

// Notifier is a hooks.HookSource that publishes an Event after generation.
// The connection is opened on first use and reused by later runs.
type Notifier struct {
	subject string
	dial    func() (Publisher, error)
	timeout time.Duration
	retry   retry.Policy

	mu  sync.Mutex
	pub Publisher
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDialer replaces the connection factory.
func WithDialer(dial func() (Publisher, error)) Option {
	return func(n *Notifier) { n.dial = dial }
}

// WithTimeout bounds a single publish.
func WithTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithRetry retries failed connects and publishes.
func WithRetry(p retry.Policy) Option {
	return func(n *Notifier) { n.retry = p }
}

// NewNotifier publishes to subject on the NATS server at url.
func NewNotifier(url, subject string, opts ...Option) *Notifier {
	n := &Notifier{
		subject: subject,
		timeout: 5 * time.Second,
		retry:   retry.NewPolicy(retry.ModeFixed, 0, 0, 0),
		dial:    func() (Publisher, error) { return DialNATS(url) },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Discover registers the publishing hook at after-generate.
func (n *Notifier) Discover() ([]hooks.Registration, error) {
	return []hooks.Registration{{Stage: hooks.AfterGenerate, Hook: hooks.Func("nats-notify", n.publish)}}, nil
}

// Subject returns the subject an event is published on: the configured
// subject suffixed with the event type.
func (n *Notifier) Subject(eventType string) string {
	return n.subject + "." + eventType
}

func (n *Notifier) publish(ctx context.Context, pc *hooks.PipelineContext) error {
	ev := Event{Type: EventGenerated, Timestamp: time.Now().UTC(), Run: pc.Summary()}
	if !ev.Run.Success {
		ev.Type = EventFailed
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	err = n.retry.Do(ctx, func(ctx context.Context) error {
		pub, err := n.publisher()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		return pub.Publish(ctx, n.Subject(ev.Type), data)
	})
	if err != nil {
		return err
	}
	if pc.Logger != nil {
		pc.Logger.Debug("Published run event", "subject", n.Subject(ev.Type), logfields.RunID(pc.RunID))
	}
	return nil
}

func (n *Notifier) publisher() (Publisher, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pub != nil {
		return n.pub, nil
	}
	pub, err := n.dial()
	if err != nil {
		return nil, err
	}
	n.pub = pub
	return pub, nil
}

// Close releases the connection if one was opened.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pub == nil {
		return nil
	}
	err := n.pub.Close()
	n.pub = nil
	return err
}
