package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"

	"ahloulbait/internal/config"
	"ahloulbait/internal/models"
)

type Sender interface {
	SendContactMessage(ctx context.Context, msg models.ContactMessage) error
}

type LogSender struct{}

func (LogSender) SendContactMessage(ctx context.Context, msg models.ContactMessage) error {
	_ = ctx
	log.Printf("contact message from=%q <%s> subject=%q (%d chars)", msg.Name, msg.Email, msg.Subject, len(msg.Message))
	return nil
}

type SMTPSender struct {
	cfg       config.Config
	recipient string
	from      string
}

func NewSender(cfg config.Config) Sender {
	switch cfg.ContactSender {
	case "smtp":
		return SMTPSender{cfg: cfg, recipient: cfg.ContactRecipient, from: cfg.ContactFrom}
	default:
		return LogSender{}
	}
}

func (s SMTPSender) SendContactMessage(ctx context.Context, msg models.ContactMessage) error {
	raw, err := buildContactMail(s.from, s.recipient, msg)
	if err != nil {
		return err
	}
	return s.send(ctx, raw)
}

func buildContactMail(from, to string, msg models.ContactMessage) ([]byte, error) {
	var buf bytes.Buffer
	var h mail.Header
	h.SetDate(time.Now().UTC())
	h.SetAddressList("From", []*mail.Address{{Name: "Site web", Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: to}})
	h.SetAddressList("Reply-To", []*mail.Address{{Name: msg.Name, Address: msg.Email}})
	h.SetSubject("[Contact] " + msg.Subject)

	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	body := fmt.Sprintf("Nom: %s\nEmail: %s\n\n%s\n", msg.Name, msg.Email, msg.Message)
	if _, err := io.WriteString(w, body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s SMTPSender) send(ctx context.Context, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost, InsecureSkipVerify: s.cfg.SMTPInsecureSkipVerify}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if s.cfg.SMTPTLS {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.SMTPStartTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if s.cfg.SMTPUsername != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(s.recipient); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}
