package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/helpdesk-triage/internal/common"
	"github.com/Veraticus/helpdesk-triage/internal/email"
	"github.com/Veraticus/helpdesk-triage/internal/service"
)

// deliver emails the reports and records them as sent. Nothing is recorded
// unless the send succeeded.
func (p *Pipeline) deliver(ctx context.Context, logger *slog.Logger, reports []string) error {
	msg, err := p.composeEmail(reports)
	if err != nil {
		return common.Stage("compose email", err)
	}

	if err := p.deps.Sender.Send(ctx, msg); err != nil {
		logger.Error("Report email failed, delivery not recorded",
			"reports", baseNames(reports),
			"error", err)
		return common.Stage("send report", err)
	}
	logger.Info("Report email sent", "reports", baseNames(reports))

	if err := p.deps.Tracker.MarkSent(ctx, reports, p.deps.Now().UTC()); err != nil {
		logger.Error("Report was sent but recording the delivery failed",
			"reports", baseNames(reports),
			"error", err)
		return common.Stage("record delivery", err)
	}
	return nil
}

func (p *Pipeline) composeEmail(reports []string) (service.Email, error) {
	text, html, err := email.RenderBodies(email.BodyData{
		CandidateName: p.deps.Mail.CandidateName,
		CodebaseURL:   p.deps.Mail.CodebaseURL,
		Reports:       reports,
	})
	if err != nil {
		return service.Email{}, fmt.Errorf("failed to render email body: %w", err)
	}

	return service.Email{
		Subject:     email.Subject(p.deps.Mail.Title, p.deps.Mail.CandidateName),
		Body:        text,
		HTMLBody:    html,
		Attachments: reports,
	}, nil
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, path := range paths {
		names[i] = filepath.Base(path)
	}
	return names
}
