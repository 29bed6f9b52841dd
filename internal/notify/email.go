package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"

	"safe-monitor/internal/config"
	"safe-monitor/internal/models"
)

type mailSender func(ctx context.Context, cfg config.SMTPConfig, to string, msg []byte) error

var emailHTMLTemplate = template.Must(template.New("alert").Parse(`<html>
<body style="font-family: sans-serif;">
  <h2>{{.Title}}</h2>
  <p>{{.Alert.Description}}</p>
  <table cellpadding="4">
    <tr><td><b>Safe</b></td><td>{{.Alert.SafeAddress}}</td></tr>
    <tr><td><b>Network</b></td><td>{{.Alert.Network}}</td></tr>
    <tr><td><b>Nonce</b></td><td>{{.Alert.Nonce}}</td></tr>
    <tr><td><b>Status</b></td><td>{{.Alert.Status}}</td></tr>
    <tr><td><b>Tx Hash</b></td><td>{{.Alert.SafeTxHash}}</td></tr>
    {{if .Alert.Warnings}}<tr><td><b>Warnings</b></td><td>{{range .Alert.Warnings}}{{.}}<br>{{end}}</td></tr>{{end}}
  </table>
  <p>
    <a href="{{.Alert.Links.SafeApp}}">Open in Safe</a> |
    <a href="{{.Alert.Links.SafeMonitor}}">Monitor</a>
    {{if .Alert.Links.Explorer}} | <a href="{{.Alert.Links.Explorer}}">Explorer</a>{{end}}
  </p>
</body>
</html>`))

func (d *Dispatcher) sendEmail(ctx context.Context, to string, alert models.AlertEvent) error {
	if d.SMTP.Host == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if to == "" {
		return fmt.Errorf("email channel has no recipient")
	}

	subject := fmt.Sprintf("New Safe transaction on %s (nonce %d)", alert.Network, alert.Nonce)
	if alert.Suspicious {
		subject = fmt.Sprintf("[ALERT] Suspicious Safe transaction on %s (%s risk)", alert.Network, alert.RiskLevel)
	}
	title := "New Safe transaction"
	if alert.Suspicious {
		title = fmt.Sprintf("Suspicious Safe transaction (%s risk)", alert.RiskLevel)
	}

	var htmlBody bytes.Buffer
	if err := emailHTMLTemplate.Execute(&htmlBody, struct {
		Title string
		Alert models.AlertEvent
	}{title, alert}); err != nil {
		return fmt.Errorf("failed to render email body: %v", err)
	}

	var plain strings.Builder
	fmt.Fprintf(&plain, "%s\r\n\r\n", title)
	fmt.Fprintf(&plain, "%s\r\n", alert.Description)
	fmt.Fprintf(&plain, "Safe: %s\r\nNetwork: %s\r\nNonce: %d\r\nStatus: %s\r\nTx Hash: %s\r\n",
		alert.SafeAddress, alert.Network, alert.Nonce, alert.Status, alert.SafeTxHash)
	if len(alert.Warnings) > 0 {
		fmt.Fprintf(&plain, "Warnings: %s\r\n", strings.Join(alert.Warnings, ", "))
	}
	fmt.Fprintf(&plain, "\r\nSafe app: %s\r\n", alert.Links.SafeApp)

	msg := buildMIMEMessage(d.SMTP.FromAddress, to, subject, plain.String(), htmlBody.String())

	sender := d.sendMail
	if sender == nil {
		sender = smtpSend
	}
	return sender(ctx, d.SMTP, to, msg)
}

// buildMIMEMessage assembles a multipart/alternative message with text and
// HTML parts.
func buildMIMEMessage(from, to, subject, plainBody, htmlBody string) []byte {
	const boundary = "safe-monitor-alt"

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(plainBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.Bytes()
}

// smtpSend delivers the message over a deadline-bound connection.
// smtp.SendMail has no timeout hook, so the client is driven manually; the
// channel context's deadline caps every read and write on the socket.
func smtpSend(ctx context.Context, cfg config.SMTPConfig, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %v", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create SMTP client: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
			return fmt.Errorf("STARTTLS failed: %v", err)
		}
	}
	if cfg.Username != "" {
		auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %v", err)
		}
	}

	if err := c.Mail(cfg.FromAddress); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
