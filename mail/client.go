// Package mail sends verification secrets over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	netmail "net/mail"
	"net/url"
	"os"

	"github.com/dajohi/goemail"

	"github.com/classtape/authcore"
)

var _ authcore.Mailer = (*Client)(nil)

// Config for the SMTP client. An empty Host disables outbound mail; the
// client then silently drops messages, which keeps dev setups working
// without a mail server.
type Config struct {
	// Host is "host:port" of the SMTPS server.
	Host     string
	User     string
	Password string
	// Address is the From address, RFC 5322 ("Name <addr@host>" allowed).
	Address string
	// CertPath optionally pins the server certificate.
	CertPath   string
	SkipVerify bool
	// BaseURL is the public web origin embedded in the mail body, e.g.
	// "https://classtape.example".
	BaseURL string
}

// Client delivers verification secrets from a preset sender address.
type Client struct {
	smtp     *goemail.SMTP
	name     string
	address  string
	baseURL  string
	disabled bool
}

// New dials nothing; it validates the config and prepares the SMTP
// context. Connections happen per message.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return &Client{disabled: true}, nil
	}

	u, err := url.Parse(fmt.Sprintf("smtps://%v:%v@%v", cfg.User, cfg.Password, cfg.Host))
	if err != nil {
		return nil, fmt.Errorf("parse mail host: %w", err)
	}
	addr, err := netmail.ParseAddress(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("parse mail address: %w", err)
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.SkipVerify,
	}
	if !cfg.SkipVerify && cfg.CertPath != "" {
		cert, err := os.ReadFile(cfg.CertPath)
		if err != nil {
			return nil, fmt.Errorf("read mail cert: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		pool.AppendCertsFromPEM(cert)
		tlsConfig.RootCAs = pool
	}

	smtp, err := goemail.NewSMTP(u.String(), tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("smtp setup: %w", err)
	}

	return &Client{
		smtp:    smtp,
		name:    addr.Name,
		address: addr.Address,
		baseURL: cfg.BaseURL,
	}, nil
}

// Enabled reports whether outbound mail is configured.
func (c *Client) Enabled() bool { return !c.disabled }

// SendVerificationSecret mails the raw secret to address. The subject and
// body are localized; unknown locales fall back to English.
func (c *Client) SendVerificationSecret(ctx context.Context, address, secret, locale string) error {
	if c.disabled {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t, ok := templates[locale]
	if !ok {
		t = templates["en"]
	}

	msg := goemail.NewMessage(c.address, t.subject, fmt.Sprintf(t.body, secret, c.baseURL))
	if c.name != "" {
		msg.SetName(c.name)
	}
	msg.AddTo(address)

	if err := c.smtp.Send(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type template struct {
	subject string
	body    string
}

// templates are keyed by locale tag. The body takes the secret and the
// site base URL.
var templates = map[string]template{
	"en": {
		subject: "Your classtape verification code",
		body: "Your one-time verification code is:\n\n    %s\n\n" +
			"Enter it at %s to continue. The code expires in 24 hours and\n" +
			"can be used once. If you did not request it, ignore this mail.\n",
	},
	"de": {
		subject: "Ihr classtape-Bestätigungscode",
		body: "Ihr einmaliger Bestätigungscode lautet:\n\n    %s\n\n" +
			"Geben Sie ihn unter %s ein. Der Code läuft nach 24 Stunden ab\n" +
			"und ist nur einmal gültig. Falls Sie ihn nicht angefordert\n" +
			"haben, ignorieren Sie diese Nachricht.\n",
	},
}
