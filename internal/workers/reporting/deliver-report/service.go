package deliverreport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"zencalcs-assistant/internal/common/aws"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
)

type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type Mailer interface {
	Send(ctx context.Context, email aws.Email) (string, error)
}

type Notifier interface {
	Publish(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error)
}

type ServiceDependencies struct {
	Store    ObjectStore
	Mailer   Mailer
	Notifier Notifier
	Logger   logger.Logger
}

type Service struct {
	config   *Config
	store    ObjectStore
	mailer   Mailer
	notifier Notifier
	logger   logger.Logger
	now      func() time.Time
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:   config,
		store:    deps.Store,
		mailer:   deps.Mailer,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}

	pdf, err := s.store.Get(ctx, input.ObjectKey)
	if errors.Is(err, aws.ErrObjectNotFound) {
		return nil, apperrors.NewReportNotFoundError(input.ReportID)
	}
	if err != nil {
		return nil, apperrors.NewDeliveryFailedError("s3", err)
	}

	filename := input.Filename
	if filename == "" {
		filename = input.ReportID + ".pdf"
	}

	subject := s.config.Subject
	if input.Title != "" {
		subject = fmt.Sprintf("%s: %s", s.config.Subject, input.Title)
	}

	messageID, err := s.mailer.Send(ctx, aws.Email{
		To:      []string{input.RecipientEmail},
		Subject: subject,
		Body:    s.config.Body,
		Attachments: []aws.Attachment{{
			Filename:    filename,
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
	if err != nil {
		return nil, apperrors.NewDeliveryFailedError("email", err)
	}

	sentAt := s.now().UTC()
	out := &Output{
		DeliveryID: uuid.NewString(),
		Status:     StatusSent,
		MessageID:  messageID,
		SentAt:     sentAt,
	}
	out.Notified = s.notify(ctx, input, out)

	s.logger.Info("report delivered", map[string]interface{}{
		"reportId":   input.ReportID,
		"deliveryId": out.DeliveryID,
		"messageId":  messageID,
		"bytes":      len(pdf),
		"notified":   out.Notified,
	})
	return out, nil
}

// notify is best effort; the email already went out.
func (s *Service) notify(ctx context.Context, input *Input, out *Output) bool {
	topic := input.NotifyTopicARN
	if topic == "" {
		topic = s.config.NotifyTopicARN
	}
	if topic == "" || s.notifier == nil {
		return false
	}

	_, err := s.notifier.Publish(ctx, topic, "Report delivered",
		fmt.Sprintf("Report %s was emailed at %s", input.ReportID, out.SentAt.Format(time.RFC3339)),
		map[string]string{
			"reportId":   input.ReportID,
			"deliveryId": out.DeliveryID,
		})
	if err != nil {
		s.logger.Warn("delivery notification failed", map[string]interface{}{
			"reportId": input.ReportID,
			"topic":    topic,
			"error":    err.Error(),
		})
		return false
	}
	return true
}
