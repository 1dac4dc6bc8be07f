package services

import (
	"context"
	"fmt"

	"github.com/verdelo/carbonledger-backend/internal/clients/sendgrid"
	"github.com/verdelo/carbonledger-backend/internal/pkg/ctxutil"
	"github.com/verdelo/carbonledger-backend/internal/pkg/logger"
)

// EmailService delivers notification mail. Delivery is best effort: when no
// provider is configured the message is logged and dropped so the calling
// mutation still succeeds.
type EmailService interface {
	Send(ctx context.Context, to, subject, body string) error
}

type emailService struct {
	log    *logger.Logger
	client sendgrid.Client
}

// NewEmailService accepts a nil client for environments without SendGrid.
func NewEmailService(log *logger.Logger, client sendgrid.Client) EmailService {
	serviceLog := log.With("service", "EmailService")
	return &emailService{log: serviceLog, client: client}
}

func (s *emailService) Send(ctx context.Context, to, subject, body string) error {
	ctx = ctxutil.Default(ctx)

	if s.client == nil {
		s.log.Warn("Email not sent: delivery not configured", "to", to, "subject", subject)
		return nil
	}

	if err := s.client.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	s.log.Info("Email sent", "to", to, "subject", subject)
	return nil
}
