package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/llm"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/report"
)

type fakeModel struct {
	mu       sync.Mutex
	replies  []string
	err      error
	block    chan struct{}
	started  chan struct{}
	messages []string
	history  [][]models.Message
}

func (f *fakeModel) Ask(_ context.Context, message string, history []models.Message) (*llm.Reply, error) {
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.history = append(f.history, history)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	text := "ok"
	if len(f.replies) > 0 {
		text, f.replies = f.replies[0], f.replies[1:]
	}
	return &llm.Reply{Text: text, Usage: models.Usage{InputTokens: 3, OutputTokens: 2}}, nil
}

type fakeReports struct {
	err     error
	history []models.Message
	session string
}

func (f *fakeReports) Generate(_ context.Context, sessionID string, history []models.Message) (*report.Artifact, error) {
	f.session = sessionID
	f.history = history
	if f.err != nil {
		return nil, f.err
	}
	return &report.Artifact{ID: "rep-1", Filename: "ZenCalcs_Financial_Report_2025-03-04.pdf"}, nil
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func TestSend_AppendsOnSuccess(t *testing.T) {
	model := &fakeModel{replies: []string{"Your payment is $1,520.06"}}
	c := NewController("s1", model, &fakeReports{}, createTestLogger(t))

	turn, err := c.Send(context.Background(), "  mortgage $300,000 at 4.5%  ")
	require.NoError(t, err)
	assert.Equal(t, "Your payment is $1,520.06", turn.Message)
	assert.Equal(t, models.Usage{InputTokens: 3, OutputTokens: 2}, turn.Usage)

	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "mortgage $300,000 at 4.5%"},
		{Role: models.RoleAssistant, Content: "Your payment is $1,520.06"},
	}, c.History())
	assert.Equal(t, StateIdle, c.State())

	_, err = c.Send(context.Background(), "and for 15 years?")
	require.NoError(t, err)
	assert.Len(t, model.history[1], 2)
	assert.Len(t, c.History(), 4)
}

func TestSend_FailureKeepsHistory(t *testing.T) {
	model := &fakeModel{err: errors.New("upstream down")}
	c := NewController("s1", model, &fakeReports{}, createTestLogger(t))

	turn, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, MsgSendFailed, turn.Message)
	assert.Error(t, turn.Err)
	assert.Empty(t, c.History())
	assert.Equal(t, StateIdle, c.State())
}

func TestSend_IgnoresEmpty(t *testing.T) {
	model := &fakeModel{}
	c := NewController("s1", model, &fakeReports{}, nil)

	_, err := c.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, model.messages)
}

func TestSend_BusyWhileAwaiting(t *testing.T) {
	model := &fakeModel{block: make(chan struct{}), started: make(chan struct{}, 1)}
	c := NewController("s1", model, &fakeReports{}, createTestLogger(t))

	done := make(chan Turn)
	go func() {
		turn, _ := c.Send(context.Background(), "first")
		done <- turn
	}()
	<-model.started
	assert.Equal(t, StateAwaiting, c.State())

	_, err := c.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.GenerateReport(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.NewCalculation(nil)
	assert.ErrorIs(t, err, ErrBusy)

	close(model.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send did not finish")
	}

	assert.Equal(t, []string{"first"}, model.messages)
	assert.Len(t, c.History(), 2)
	assert.Equal(t, StateIdle, c.State())
}

func TestGenerateReport(t *testing.T) {
	t.Run("empty conversation", func(t *testing.T) {
		reports := &fakeReports{}
		c := NewController("s1", &fakeModel{}, reports, nil)

		out, err := c.GenerateReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MsgNoHistory, out.Message)
		assert.ErrorIs(t, out.Err, ErrNoHistory)
		assert.Nil(t, reports.history)
	})

	t.Run("success", func(t *testing.T) {
		reports := &fakeReports{}
		c := NewController("s1", &fakeModel{}, reports, nil)
		_, _ = c.Send(context.Background(), "hi")

		out, err := c.GenerateReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MsgReportReady, out.Message)
		assert.Equal(t, "rep-1", out.Artifact.ID)
		assert.Equal(t, "s1", reports.session)
		assert.Len(t, reports.history, 2)
		assert.Len(t, c.History(), 2)
	})

	t.Run("failure", func(t *testing.T) {
		c := NewController("s1", &fakeModel{}, &fakeReports{err: errors.New("layout broke")}, createTestLogger(t))
		_, _ = c.Send(context.Background(), "hi")

		out, err := c.GenerateReport(context.Background())
		require.NoError(t, err)
		assert.Equal(t, MsgReportFailed, out.Message)
		assert.Error(t, out.Err)
		assert.Equal(t, StateIdle, c.State())
	})
}

func TestNarrative(t *testing.T) {
	model := &fakeModel{replies: []string{"first", "## ZenCalcs Calculation Report"}}
	c := NewController("s1", model, &fakeReports{}, nil)

	_, err := c.Narrative(context.Background())
	assert.ErrorIs(t, err, ErrNoHistory)

	_, _ = c.Send(context.Background(), "hi")
	md, err := c.Narrative(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "## ZenCalcs Calculation Report", md)
	assert.Equal(t, llm.ReportPrompt, model.messages[1])
	assert.Len(t, c.History(), 2)
}

func TestNewCalculation(t *testing.T) {
	c := NewController("s1", &fakeModel{}, &fakeReports{}, nil)

	asked := false
	cleared, err := c.NewCalculation(func() bool { asked = true; return false })
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.False(t, asked, "empty conversation needs no confirmation")

	_, _ = c.Send(context.Background(), "hi")

	cleared, err = c.NewCalculation(func() bool { return false })
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Len(t, c.History(), 2)

	cleared, err = c.NewCalculation(func() bool { return true })
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Empty(t, c.History())
}
