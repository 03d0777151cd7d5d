package notify

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/okian/lichhen/internal/domain/reminder"
	"github.com/okian/lichhen/pkg/logger"
)

const defaultDialTimeout = 15 * time.Second

// SendFunc hands a rendered message to the relay.
type SendFunc func(ctx context.Context, m *mail.Msg) error

// SMTPNotifier mails reminders through an SMTP relay, upgrading to
// STARTTLS when the server offers it.
type SMTPNotifier struct {
	host     string
	port     int
	from     string
	to       []string
	username string
	password string
	timeout  time.Duration
	send     SendFunc
	now      func() time.Time
	logger   logger.Logger
}

// SMTPOption configures an SMTPNotifier.
type SMTPOption func(*SMTPNotifier)

// WithAuth enables PLAIN authentication.
func WithAuth(username, password string) SMTPOption {
	return func(n *SMTPNotifier) {
		n.username = username
		n.password = password
	}
}

// WithSendFunc replaces the relay connection, mainly for tests.
func WithSendFunc(send SendFunc) SMTPOption {
	return func(n *SMTPNotifier) {
		if send != nil {
			n.send = send
		}
	}
}

// WithDialTimeout bounds connecting to and talking with the relay.
func WithDialTimeout(d time.Duration) SMTPOption {
	return func(n *SMTPNotifier) {
		if d > 0 {
			n.timeout = d
		}
	}
}

// WithClock sets the clock used for the Date header.
func WithClock(now func() time.Time) SMTPOption {
	return func(n *SMTPNotifier) {
		if now != nil {
			n.now = now
		}
	}
}

// NewSMTPNotifier creates a notifier sending from one address to a
// comma-separated recipient list.
func NewSMTPNotifier(host string, port int, from, to string, opts ...SMTPOption) *SMTPNotifier {
	n := &SMTPNotifier{
		host:    host,
		port:    port,
		from:    from,
		to:      splitAddresses(to),
		timeout: defaultDialTimeout,
		now:     time.Now,
		logger:  logger.Get().Named("notify"),
	}
	n.send = n.dialAndSend
	for _, opt := range opts {
		opt(n)
	}
	if n.from == "" {
		n.from = n.username
	}
	return n
}

func (n *SMTPNotifier) Notify(ctx context.Context, j reminder.Job) error { //nolint:gocritic // hugeParam: jobs travel by value
	if len(n.to) == 0 {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := n.message(j)
	if err != nil {
		return err
	}
	if err := n.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.addr(), err)
	}
	n.logger.Debug(ctx, "reminder mailed",
		logger.String("event_id", j.EventID),
		logger.Int("recipients", len(n.to)),
	)
	return nil
}

// message renders j as a plain-text UTF-8 mail.
func (n *SMTPNotifier) message(j reminder.Job) (*mail.Msg, error) { //nolint:gocritic // hugeParam: jobs travel by value
	m := mail.NewMsg(mail.WithCharset(mail.CharsetUTF8))
	if err := m.From(n.from); err != nil {
		return nil, fmt.Errorf("sender %q: %w", n.from, err)
	}
	if err := m.To(n.to...); err != nil {
		return nil, fmt.Errorf("recipients %q: %w", strings.Join(n.to, ", "), err)
	}
	m.Subject(j.Subject())
	m.SetDateWithValue(n.now())
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, j.Body())
	return m, nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(n.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(n.timeout),
	}
	if n.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.username),
			mail.WithPassword(n.password),
		)
	}
	c, err := mail.NewClient(n.host, opts...)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

func (n *SMTPNotifier) addr() string {
	return net.JoinHostPort(n.host, strconv.Itoa(n.port))
}

func splitAddresses(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
