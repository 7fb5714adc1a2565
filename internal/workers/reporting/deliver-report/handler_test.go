package deliverreport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/common/aws"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
)

type mockStore struct {
	objects map[string][]byte
	err     error
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[key]
	if !ok {
		return nil, aws.ErrObjectNotFound
	}
	return data, nil
}

type mockMailer struct {
	sent []aws.Email
	err  error
}

func (m *mockMailer) Send(_ context.Context, email aws.Email) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, email)
	return "ses-msg-1", nil
}

type mockNotifier struct {
	topics []string
	attrs  map[string]string
	err    error
}

func (m *mockNotifier) Publish(_ context.Context, topicARN, _, _ string, attrs map[string]string) (string, error) {
	m.topics = append(m.topics, topicARN)
	m.attrs = attrs
	return "sns-1", m.err
}

type fixture struct {
	store    *mockStore
	mailer   *mockMailer
	notifier *mockNotifier
	handler  *Handler
}

func newFixture(t *testing.T, cfg *Config) *fixture {
	t.Helper()
	f := &fixture{
		store:    &mockStore{objects: map[string][]byte{"reports/r1.pdf": []byte("%PDF-1.4")}},
		mailer:   &mockMailer{},
		notifier: &mockNotifier{},
	}
	h, err := NewHandler(cfg, ServiceDependencies{
		Store:    f.store,
		Mailer:   f.mailer,
		Notifier: f.notifier,
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	h.service.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	f.handler = h
	return f
}

func validInput() *Input {
	return &Input{
		ReportID:       "r1",
		ObjectKey:      "reports/r1.pdf",
		Filename:       "ZenCalcs_Financial_Report_2025-03-04.pdf",
		RecipientEmail: "user@example.com",
		Title:          "Mortgage Comparison",
	}
}

func TestNewHandler_Validation(t *testing.T) {
	_, err := NewHandler(&Config{}, ServiceDependencies{Store: &mockStore{}, Mailer: &mockMailer{}})
	assert.Error(t, err)

	_, err = NewHandler(DefaultConfig(), ServiceDependencies{Store: &mockStore{}})
	assert.Error(t, err)
}

func TestExecute_Success(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyTopicARN = "arn:aws:sns:us-east-1:123456789012:reports"
	f := newFixture(t, cfg)

	out, err := f.handler.Execute(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, "ses-msg-1", out.MessageID)
	assert.NotEmpty(t, out.DeliveryID)
	assert.True(t, out.Notified)
	assert.Equal(t, time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC), out.SentAt)

	require.Len(t, f.mailer.sent, 1)
	email := f.mailer.sent[0]
	assert.Equal(t, []string{"user@example.com"}, email.To)
	assert.Equal(t, "Your ZenCalcs calculation report: Mortgage Comparison", email.Subject)
	require.Len(t, email.Attachments, 1)
	assert.Equal(t, "ZenCalcs_Financial_Report_2025-03-04.pdf", email.Attachments[0].Filename)
	assert.Equal(t, []byte("%PDF-1.4"), email.Attachments[0].Data)

	assert.Equal(t, []string{cfg.NotifyTopicARN}, f.notifier.topics)
	assert.Equal(t, out.DeliveryID, f.notifier.attrs["deliveryId"])
}

func TestExecute_JobTopicOverridesDefault(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	input := validInput()
	input.NotifyTopicARN = "arn:aws:sns:eu-west-1:123456789012:ops"

	out, err := f.handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, out.Notified)
	assert.Equal(t, []string{"arn:aws:sns:eu-west-1:123456789012:ops"}, f.notifier.topics)
}

func TestExecute_NoTopicSkipsNotification(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	out, err := f.handler.Execute(context.Background(), validInput())
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Empty(t, f.notifier.topics)
}

func TestExecute_NotificationFailureIsNotFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyTopicARN = "arn:aws:sns:us-east-1:123456789012:reports"
	f := newFixture(t, cfg)
	f.notifier.err = errors.New("throttled")

	out, err := f.handler.Execute(context.Background(), validInput())
	require.NoError(t, err)
	assert.False(t, out.Notified)
	assert.Len(t, f.mailer.sent, 1)
}

func TestExecute_DefaultFilename(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	input := validInput()
	input.Filename = ""
	input.Title = ""

	_, err := f.handler.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "r1.pdf", f.mailer.sent[0].Attachments[0].Filename)
	assert.Equal(t, "Your ZenCalcs calculation report", f.mailer.sent[0].Subject)
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Input)
		setup    func(*fixture)
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing object key",
			mutate:   func(in *Input) { in.ObjectKey = "" },
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "bad email",
			mutate:   func(in *Input) { in.RecipientEmail = "not-an-email" },
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "bad topic",
			mutate:   func(in *Input) { in.NotifyTopicARN = "reports" },
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "object missing",
			mutate:   func(in *Input) { in.ObjectKey = "reports/gone.pdf" },
			wantCode: apperrors.ErrCodeReportNotFound,
		},
		{
			name:     "storage outage",
			setup:    func(f *fixture) { f.store.err = errors.New("connection reset") },
			wantCode: apperrors.ErrCodeDeliveryFailed,
		},
		{
			name:     "ses rejects",
			setup:    func(f *fixture) { f.mailer.err = errors.New("MessageRejected") },
			wantCode: apperrors.ErrCodeDeliveryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, DefaultConfig())
			if tt.setup != nil {
				tt.setup(f)
			}
			input := validInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}

			_, err := f.handler.Execute(context.Background(), input)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
		})
	}
}
