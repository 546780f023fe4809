package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/blast-sender/internal/config"
	"github.com/ignite/blast-sender/internal/domain"
	"github.com/ignite/blast-sender/internal/pkg/logger"
)

// SMTPTransport delivers through an SMTP relay, keeping up to MaxConnections
// sessions open and recycling each one after MaxMessages messages.
type SMTPTransport struct {
	cfg   config.SMTPConfig
	slots chan struct{}  // one token per open connection
	idle  chan *smtpConn // connections ready for reuse

	mu     sync.Mutex
	closed bool

	dial func(ctx context.Context) (*smtpConn, error)
	now  func() time.Time
}

type smtpConn struct {
	conn   net.Conn
	client *smtp.Client
	sent   int
}

// NewSMTPTransport creates an SMTP transport. No connection is opened until
// the first Send.
func NewSMTPTransport(cfg config.SMTPConfig) *SMTPTransport {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 100
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 30
	}
	t := &SMTPTransport{
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxConnections),
		idle:  make(chan *smtpConn, cfg.MaxConnections),
		now:   time.Now,
	}
	t.dial = t.dialRelay
	return t
}

// Name implements Gateway.
func (t *SMTPTransport) Name() domain.TransportType { return domain.TransportSMTP }

// Send delivers one message and returns the Message-ID it was stamped with.
func (t *SMTPTransport) Send(ctx context.Context, env *domain.Envelope) (string, error) {
	from, err := mail.ParseAddress(env.From)
	if err != nil {
		return "", fmt.Errorf("invalid from address %q: %w", env.From, err)
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), addressDomain(from.Address))
	msg := buildMessage(env, from, messageID, t.now())

	c, err := t.acquire(ctx)
	if err != nil {
		return "", err
	}

	if err := c.deliver(t.cfg.Timeout(), from.Address, env.To, msg); err != nil {
		t.release(c, err)
		return "", err
	}
	c.sent++
	t.release(c, nil)

	logger.Debug("smtp accepted", "to", env.To, "message_id", messageID)
	return messageID, nil
}

// ErrTransportClosed is returned by Send after Close.
var ErrTransportClosed = errors.New("smtp transport closed")

// Close shuts down every idle connection. In-flight sends finish normally
// and their connections are closed on release.
func (t *SMTPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	for {
		select {
		case c := <-t.idle:
			c.quit()
			<-t.slots
		default:
			return nil
		}
	}
}

func (t *SMTPTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// acquire checks out a session: an idle one that still answers NOOP, or a
// new one when a slot is free. It blocks while the pool is exhausted.
func (t *SMTPTransport) acquire(ctx context.Context) (*smtpConn, error) {
	for {
		if t.isClosed() {
			return nil, ErrTransportClosed
		}

		select {
		case c := <-t.idle:
			if t.healthy(c) {
				return c, nil
			}
			continue
		default:
		}

		select {
		case c := <-t.idle:
			if t.healthy(c) {
				return c, nil
			}
		case t.slots <- struct{}{}:
			if t.isClosed() {
				<-t.slots
				return nil, ErrTransportClosed
			}
			c, err := t.dial(ctx)
			if err != nil {
				<-t.slots
				return nil, err
			}
			return c, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// healthy probes an idle session with NOOP and discards it on failure.
func (t *SMTPTransport) healthy(c *smtpConn) bool {
	_ = c.conn.SetDeadline(time.Now().Add(t.cfg.Timeout()))
	if err := c.client.Noop(); err != nil {
		c.close()
		<-t.slots
		return false
	}
	return true
}

// release returns c to the pool unless it failed at the connection level,
// reached MaxMessages, or the transport was closed.
func (t *SMTPTransport) release(c *smtpConn, sendErr error) {
	reusable := c.sent < t.cfg.MaxMessages
	if sendErr != nil {
		// a rejected recipient leaves the session usable once reset
		reusable = reusable && c.client.Reset() == nil
	}

	if reusable && t.park(c) {
		return
	}
	c.quit()
	<-t.slots
}

// park puts c on the idle list. The closed check and the push share mu so
// Close never misses a session parked behind its drain.
func (t *SMTPTransport) park(c *smtpConn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	select {
	case t.idle <- c:
		return true
	default:
		return false
	}
}

func (t *SMTPTransport) dialRelay(ctx context.Context) (*smtpConn, error) {
	host := t.cfg.Host
	addr := net.JoinHostPort(host, strconv.Itoa(t.cfg.Port))
	dialer := &net.Dialer{Timeout: t.cfg.Timeout()}
	tlsCfg := &tls.Config{ServerName: host}

	var (
		conn net.Conn
		err  error
	)
	if t.cfg.Secure {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsCfg}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("SMTP connect to %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(t.cfg.Timeout()))

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SMTP client: %w", err)
	}

	if !t.cfg.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				c.Close()
				return nil, fmt.Errorf("STARTTLS: %w", err)
			}
		}
	}

	if t.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, host)); err != nil {
			c.Close()
			return nil, fmt.Errorf("SMTP auth: %w", err)
		}
	}

	logger.Debug("smtp connection opened", "addr", addr, "secure", t.cfg.Secure)
	return &smtpConn{conn: conn, client: c}, nil
}

func (c *smtpConn) deliver(timeout time.Duration, from, to string, msg []byte) error {
	_ = c.conn.SetDeadline(time.Now().Add(timeout))

	if err := c.client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := c.client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO: %w", err)
	}
	w, err := c.client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("DATA close: %w", err)
	}
	return nil
}

func (c *smtpConn) quit() {
	if err := c.client.Quit(); err != nil {
		c.close()
	}
}

func (c *smtpConn) close() {
	_ = c.client.Close()
}

// buildMessage renders the RFC 5322 message for a single HTML envelope.
func buildMessage(env *domain.Envelope, from *mail.Address, messageID string, date time.Time) []byte {
	var buf bytes.Buffer
	writeHeader := func(k, v string) {
		buf.WriteString(k)
		buf.WriteString(": ")
		buf.WriteString(v)
		buf.WriteString("\r\n")
	}

	writeHeader("From", from.String())
	writeHeader("To", env.To)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", env.Subject))
	writeHeader("Date", date.Format(time.RFC1123Z))
	writeHeader("Message-ID", messageID)
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/html; charset=UTF-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	_, _ = qp.Write([]byte(env.HTML))
	_ = qp.Close()
	buf.WriteString("\r\n")

	return buf.Bytes()
}

func addressDomain(addr string) string {
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return "localhost"
}
