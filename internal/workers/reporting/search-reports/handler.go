package searchreports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"zencalcs-assistant/internal/common/database"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/models"
)

const (
	TaskType = "search-reports"
)

var (
	ErrNoBackend = errors.New("no search backend configured")
)

type Searcher interface {
	SearchReports(ctx context.Context, index string, filter models.ReportFilter) (*database.SearchResult, error)
}

type Lister interface {
	List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportRecord, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	lister   Lister
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
}

// NewHandler accepts either backend as nil. Elasticsearch is tried first and
// Postgres answers when it fails.
func NewHandler(config *Config, searcher Searcher, lister Lister, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		lister:   lister,
		errors:   apperrors.NewErrorHandler(l),
		logger:   l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	timer := metrics.StartJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, timer, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, timer, err)
		return
	}

	h.completeJob(client, job, output)
	timer.Done("")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Size < 0 {
		return nil, apperrors.NewInvalidInputError("size must not be negative")
	}
	filter := models.ReportFilter{
		Query:           strings.TrimSpace(input.Query),
		CalculationType: strings.TrimSpace(input.CalculationType),
		Size:            h.clampSize(input.Size),
	}

	if h.searcher != nil {
		result, err := h.searcher.SearchReports(ctx, h.config.IndexName, filter)
		if err == nil {
			h.logger.Info("reports found", map[string]interface{}{
				"source": SourceElasticsearch,
				"total":  result.Total,
				"took":   result.Took,
			})
			return &Output{Reports: nonNil(result.Reports), Total: result.Total, Source: SourceElasticsearch}, nil
		}
		if h.lister == nil {
			return nil, apperrors.NewSearchQueryFailedError(h.config.IndexName, err)
		}
		h.logger.Warn("elasticsearch search failed, falling back to postgres", map[string]interface{}{
			"index": h.config.IndexName,
			"error": err.Error(),
		})
	}

	if h.lister == nil {
		return nil, apperrors.NewSearchQueryFailedError(h.config.IndexName, ErrNoBackend)
	}
	records, err := h.lister.List(ctx, filter)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_report_records", err)
	}

	h.logger.Info("reports found", map[string]interface{}{
		"source": SourcePostgres,
		"total":  len(records),
	})
	return &Output{Reports: nonNil(records), Total: int64(len(records)), Source: SourcePostgres}, nil
}

func (h *Handler) clampSize(size int) int {
	if size == 0 {
		size = h.config.DefaultSize
	}
	if h.config.MaxSize > 0 && size > h.config.MaxSize {
		size = h.config.MaxSize
	}
	return size
}

func nonNil(records []*models.ReportRecord) []*models.ReportRecord {
	if records == nil {
		return []*models.ReportRecord{}
	}
	return records
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("Failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, timer *metrics.JobTimer, err error) {
	timer.Done(string(apperrors.CodeOf(err)))
	h.errors.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
