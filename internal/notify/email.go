package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/webpscan/internal/common"
	"github.com/ternarybob/webpscan/internal/interfaces"
)

// SMTPNotifier sends completion emails over plain SMTP. Sending is
// fire-and-forget from the caller's perspective: SendScanComplete never
// returns an error, it only logs one.
type SMTPNotifier struct {
	cfg    common.EmailConfig
	logger arbor.ILogger
}

// New builds a Notifier from the configured SMTP settings. Disabled
// notifiers still satisfy the interface, they just log and return.
func New(cfg common.EmailConfig, logger arbor.ILogger) interfaces.Notifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

func (n *SMTPNotifier) SendScanComplete(ctx context.Context, msg interfaces.ScanSummaryEmail) {
	if !n.cfg.Enabled || msg.To == "" {
		return
	}

	common.SafeGo(n.logger, "scan-complete-email", func() {
		raw, err := n.compose(msg)
		if err != nil {
			n.logger.Warn().Err(err).Str("to", msg.To).Msg("failed to compose completion email")
			return
		}
		if err := n.deliver(msg.To, raw); err != nil {
			n.logger.Warn().Err(err).Str("to", msg.To).Msg("failed to send completion email")
			return
		}
		n.logger.Debug().Str("to", msg.To).Str("scan_url", msg.ScanURL).Msg("completion email sent")
	})
}

func (n *SMTPNotifier) compose(msg interfaces.ScanSummaryEmail) ([]byte, error) {
	var h mail.Header
	h.SetAddressList("From", []*mail.Address{{Name: "WebP Scanner", Address: n.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Address: msg.To}})
	h.SetSubject(fmt.Sprintf("Scan complete: %s", msg.ScanURL))

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("creating inline writer: %w", err)
	}

	var th mail.InlineHeader
	th.Set("Content-Type", "text/plain; charset=utf-8")
	pw, err := tw.CreatePart(th)
	if err != nil {
		return nil, fmt.Errorf("creating text part: %w", err)
	}
	if _, err := pw.Write([]byte(n.body(msg))); err != nil {
		return nil, err
	}
	if err := pw.Close(); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *SMTPNotifier) body(msg interfaces.ScanSummaryEmail) string {
	body := fmt.Sprintf(
		"Your scan of %s is complete.\r\n\r\n"+
			"Pages scanned: %d\r\n"+
			"Non-WebP images found: %d\r\n"+
			"Estimated savings: %d bytes\r\n",
		msg.ScanURL, msg.PagesScanned, msg.NonWebPImages, msg.EstimatedSavingsBytes,
	)
	if msg.ReportURL != "" {
		body += fmt.Sprintf("\r\nFull report: %s\r\n", msg.ReportURL)
	}
	return body
}

func (n *SMTPNotifier) deliver(to string, raw []byte) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)

	var auth smtp.Auth
	if n.cfg.APIKey != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.APIKey, n.cfg.SMTPHost)
	}
	return smtp.SendMail(addr, auth, n.cfg.From, []string{to}, raw)
}
