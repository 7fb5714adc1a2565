package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "zencalcs-assistant/internal/common/errors"
	commonhttp "zencalcs-assistant/internal/common/http"
	"zencalcs-assistant/internal/models"
)

// Client calls a remote analysis endpoint.
type Client struct {
	http    *commonhttp.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    commonhttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) Analyze(ctx context.Context, history []models.Message) (*models.ReportData, error) {
	if len(history) == 0 {
		return nil, apperrors.NewEmptyConversationError()
	}

	body, err := c.http.PostJSON(ctx, c.baseURL+Path, Request{ConversationHistory: history})
	if err != nil {
		return nil, c.mapError(body, err)
	}

	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil || !resp.Success || len(resp.Analysis) == 0 {
		return nil, apperrors.NewAnalysisParseFailedError(string(body), err)
	}
	return decode(resp.Analysis, string(resp.Analysis))
}

func (c *Client) mapError(body []byte, err error) error {
	var statusErr *commonhttp.StatusError
	if !errors.As(err, &statusErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewLLMTimeoutError(err)
		}
		return apperrors.NewAnalysisServiceFailedError(err)
	}

	var payload ErrorResponse
	_ = json.Unmarshal(body, &payload)
	switch {
	case statusErr.StatusCode == http.StatusBadRequest && payload.Error == MsgNoHistory:
		return apperrors.NewEmptyConversationError()
	case payload.Error == MsgParseFailed:
		return apperrors.NewAnalysisParseFailedError(payload.RawResponse, err)
	default:
		return apperrors.NewAnalysisServiceFailedError(err)
	}
}
