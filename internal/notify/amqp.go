package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/catering-quote/internal/domain/quote"
)

// EventType is the type attribute of published quote events.
const EventType = "quote.invoiced"

var _ quote.Notifier = (*AMQPNotifier)(nil)

// publisher is the subset of *amqp.Channel used for publishing.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes quote events to a fanout exchange that the owner's
// tooling subscribes to.
type AMQPNotifier struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   publisher
	now  func() time.Time
}

// DialAMQP connects to the broker and declares a durable fanout exchange.
func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial amqp")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %q", exchange)
	}

	return &AMQPNotifier{exchange: exchange, conn: conn, ch: ch, now: time.Now}, nil
}

// Notify publishes n as a persistent JSON message.
func (a *AMQPNotifier) Notify(ctx context.Context, n quote.Notification) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         EventType,
		MessageId:    n.InvoiceID,
		Timestamp:    a.now().UTC(),
		Body:         EncodeEvent(n),
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ch.PublishWithContext(ctx, a.exchange, "", false, false, msg); err != nil {
		return errors.Wrap(err, "publish quote event")
	}
	return nil
}

// Close closes the broker connection.
func (a *AMQPNotifier) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}

// EncodeEvent renders the JSON body of a quote event.
func EncodeEvent(n quote.Notification) []byte {
	req, est := n.Request, n.Estimate

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) { e.Str(EventType) })
		e.Field("name", func(e *jx.Encoder) { e.Str(req.Name) })
		e.Field("email", func(e *jx.Encoder) { e.Str(req.Email) })
		e.Field("event_address", func(e *jx.Encoder) { e.Str(req.EventAddress) })
		e.Field("guests", func(e *jx.Encoder) { e.Int(req.GuestCount) })
		e.Field("final_total", func(e *jx.Encoder) { e.Str(est.FinalTotal.StringFixed(2)) })
		e.Field("invoice_id", func(e *jx.Encoder) { e.Str(n.InvoiceID) })
		e.Field("invoice_url", func(e *jx.Encoder) { e.Str(n.InvoiceURL) })
		e.Field("summary", func(e *jx.Encoder) { e.Str(Summary(n)) })
	})
	return e.Bytes()
}
