package report

import (
	"context"

	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/models"
)

// RecordStore persists the audit row for a report.
type RecordStore interface {
	Create(ctx context.Context, record *models.ReportRecord) error
}

// Indexer makes report summaries searchable.
type Indexer interface {
	IndexReport(ctx context.Context, index string, record *models.ReportRecord) error
}

// ObjectStore keeps the rendered PDF.
type ObjectStore interface {
	Put(ctx context.Context, reportID, filename string, pdf []byte) (string, error)
}

// Archive writes a generated report to every configured target. Each target
// is optional and failures never propagate.
type Archive struct {
	records   RecordStore
	indexer   Indexer
	indexName string
	objects   ObjectStore
	logger    logger.Logger
}

type ArchiveOption func(*Archive)

func WithRecords(r RecordStore) ArchiveOption {
	return func(a *Archive) { a.records = r }
}

func WithIndex(i Indexer, index string) ArchiveOption {
	return func(a *Archive) {
		a.indexer = i
		a.indexName = index
	}
}

func WithObjects(o ObjectStore) ArchiveOption {
	return func(a *Archive) { a.objects = o }
}

func NewArchive(log logger.Logger, opts ...ArchiveOption) *Archive {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	a := &Archive{logger: log.With(map[string]interface{}{"component": "archive"})}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Record builds the audit entry for art. The transcript is never included.
func Record(art *Artifact) *models.ReportRecord {
	return &models.ReportRecord{
		ID:              art.ID,
		SessionID:       art.SessionID,
		Filename:        art.Filename,
		CalculationType: string(art.Data.PrimaryType()),
		Title:           art.Data.ReportTitle,
		KeyResult:       art.Data.ExecutiveSummary.KeyResult,
		PageCount:       art.PageCount,
		ChartFailures:   art.ChartFailures,
		Source:          art.Source,
		ObjectKey:       art.ObjectKey,
		CreatedAt:       art.CreatedAt,
	}
}

// Store uploads the PDF first so the audit row and index entry carry its key.
func (a *Archive) Store(ctx context.Context, art *Artifact) *models.ReportRecord {
	if a.objects != nil {
		key, err := a.objects.Put(ctx, art.ID, art.Filename, art.PDF)
		if err != nil {
			a.failed("s3", art.ID, err)
		} else {
			art.ObjectKey = key
		}
	}

	rec := Record(art)
	if a.records != nil {
		if err := a.records.Create(ctx, rec); err != nil {
			a.failed("postgres", art.ID, err)
		}
	}
	if a.indexer != nil {
		if err := a.indexer.IndexReport(ctx, a.indexName, rec); err != nil {
			a.failed("elasticsearch", art.ID, err)
		}
	}
	return rec
}

func (a *Archive) failed(target, reportID string, err error) {
	metrics.ArchiveFailures.WithLabelValues(target).Inc()
	a.logger.Warn("report archive write failed", map[string]interface{}{
		"target":   target,
		"reportId": reportID,
		"error":    err.Error(),
	})
}
