package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
)

// EmailChannel delivers notifications over authenticated SMTP.
type EmailChannel struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	timeout  time.Duration
}

// NewEmailChannel builds the SMTP channel. The recipient list is
// comma-separated; timeout bounds every send end to end.
func NewEmailChannel(host string, port int, username, password, from, to string, timeout time.Duration) *EmailChannel {
	var recipients []string
	for _, r := range strings.Split(to, ",") {
		if r = strings.TrimSpace(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return &EmailChannel{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       recipients,
		timeout:  timeout,
	}
}

func (c *EmailChannel) Name() string { return "email" }

// Send submits the message via SMTP with PLAIN auth over STARTTLS. The
// whole exchange runs under the channel timeout and the caller's context;
// a hung server cannot stall the dispatch path.
func (c *EmailChannel) Send(ctx context.Context, n Notification) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", c.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(c.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", n.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(n.Body)

	if err := c.send(ctx, []byte(msg.String())); err != nil {
		return domain.NewDispatchError(classifySMTP(err), c.Name(), err)
	}
	return nil
}

func (c *EmailChannel) send(ctx context.Context, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	// Unblock conn reads if the caller's context is cancelled early.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	client, err := smtp.NewClient(conn, c.host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.host}); err != nil {
			return err
		}
	}
	if err := client.Auth(smtp.PlainAuth("", c.username, c.password, c.host)); err != nil {
		return err
	}
	if err := client.Mail(c.from); err != nil {
		return err
	}
	for _, rcpt := range c.to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func classifySMTP(err error) domain.DispatchErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.DispatchTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.DispatchTimeout
		}
		return domain.DispatchChannelUnavailable
	}
	// A reachable server that refuses the message (auth, policy, bad
	// recipient) will not get better on retry, but the bounded retry is
	// cheap and the classification still tells operators what happened.
	return domain.DispatchRejected
}
