// Package report runs the report pipeline: analysis, layout, PDF rendering
// and archiving.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zencalcs-assistant/internal/analysis"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/common/metrics"
	"zencalcs-assistant/internal/common/observability"
	"zencalcs-assistant/internal/layout"
	"zencalcs-assistant/internal/models"
)

// Resolver produces report data for a conversation.
type Resolver interface {
	Resolve(ctx context.Context, history []models.Message, preferRemote bool) (*analysis.Result, error)
}

type LayoutEngine interface {
	Layout(ctx context.Context, data models.ReportData) (*layout.Document, error)
}

type DocumentRenderer interface {
	Render(doc *layout.Document) ([]byte, error)
}

// Artifact is a rendered report.
type Artifact struct {
	ID            string
	SessionID     string
	Filename      string
	PDF           []byte
	PageCount     int
	ChartFailures int
	FailedCharts  []string
	Source        string
	ObjectKey     string
	Data          models.ReportData
	CreatedAt     time.Time
}

type Generator struct {
	source       Resolver
	engine       LayoutEngine
	renderer     DocumentRenderer
	archive      *Archive
	obs          *observability.Observability
	logger       logger.Logger
	now          func() time.Time
	preferRemote bool
	publisher    Publisher
	message      string
}

// Publisher correlates a workflow message, typically a Zeebe client.
type Publisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, vars map[string]interface{}) error
}

type Option func(*Generator)

func WithArchive(a *Archive) Option {
	return func(g *Generator) { g.archive = a }
}

func WithObservability(o *observability.Observability) Option {
	return func(g *Generator) { g.obs = o }
}

func WithLogger(l logger.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithPublisher announces every archived session report as the named
// message, correlated by session ID.
func WithPublisher(p Publisher, message string) Option {
	return func(g *Generator) {
		g.publisher = p
		g.message = message
	}
}

// PreferRemote routes analysis through the remote analyzer when one is
// configured.
func PreferRemote(prefer bool) Option {
	return func(g *Generator) { g.preferRemote = prefer }
}

func NewGenerator(source Resolver, engine LayoutEngine, renderer DocumentRenderer, opts ...Option) *Generator {
	g := &Generator{
		source:   source,
		engine:   engine,
		renderer: renderer,
		logger:   logger.NewNoOpLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate analyzes history and renders the result.
func (g *Generator) Generate(ctx context.Context, sessionID string, history []models.Message) (*Artifact, error) {
	ctx, span := g.obs.Tracer().Start(ctx, "report.generate", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.Int("conversation.messages", len(history)),
	))

	actx, aspan := g.obs.Tracer().Start(ctx, "report.analyze")
	result, err := g.source.Resolve(actx, history, g.preferRemote)
	endSpan(aspan, err)
	if err != nil {
		metrics.ReportsGenerated.WithLabelValues("none", "failed").Inc()
		endSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("analysis.source", result.Source))

	art, err := g.render(ctx, sessionID, result.Data, result.Source)
	endSpan(span, err)
	return art, err
}

// FromData renders report data supplied by the caller.
func (g *Generator) FromData(ctx context.Context, sessionID string, data models.ReportData) (*Artifact, error) {
	ctx, span := g.obs.Tracer().Start(ctx, "report.generate", trace.WithAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("analysis.source", "supplied"),
	))
	data.Normalize()
	art, err := g.render(ctx, sessionID, data, "supplied")
	endSpan(span, err)
	return art, err
}

func (g *Generator) render(ctx context.Context, sessionID string, data models.ReportData, source string) (*Artifact, error) {
	lctx, lspan := g.obs.Tracer().Start(ctx, "report.layout")
	doc, err := g.engine.Layout(lctx, data)
	if err != nil {
		err = layoutError(err)
	}
	endSpan(lspan, err)
	if err != nil {
		metrics.ReportsGenerated.WithLabelValues(source, "failed").Inc()
		return nil, err
	}

	_, rspan := g.obs.Tracer().Start(ctx, "report.render")
	pdf, err := g.renderer.Render(doc)
	if err != nil {
		err = apperrors.NewReportRenderFailedError(err)
	}
	rspan.SetAttributes(attribute.Int("report.pages", doc.PageCount()))
	endSpan(rspan, err)
	if err != nil {
		metrics.ReportsGenerated.WithLabelValues(source, "failed").Inc()
		return nil, err
	}

	now := g.now()
	art := &Artifact{
		ID:            uuid.NewString(),
		SessionID:     sessionID,
		Filename:      Filename(data, now),
		PDF:           pdf,
		PageCount:     doc.PageCount(),
		ChartFailures: doc.ChartFailures,
		FailedCharts:  doc.FailedCharts,
		Source:        source,
		Data:          data,
		CreatedAt:     now.UTC(),
	}

	metrics.ReportsGenerated.WithLabelValues(source, "success").Inc()
	metrics.ReportPages.Observe(float64(art.PageCount))
	for _, chartType := range art.FailedCharts {
		metrics.ChartRenderFailures.WithLabelValues(chartType).Inc()
	}
	g.obs.RecordReport(ctx, source, art.PageCount)

	if g.archive != nil {
		art.ObjectKey = g.archive.Store(ctx, art).ObjectKey
	}
	g.publish(ctx, art)

	g.logger.Info("report generated", map[string]interface{}{
		"reportId":      art.ID,
		"sessionId":     sessionID,
		"filename":      art.Filename,
		"pages":         art.PageCount,
		"chartFailures": art.ChartFailures,
		"source":        source,
		"bytes":         len(pdf),
	})
	return art, nil
}

func (g *Generator) publish(ctx context.Context, art *Artifact) {
	if g.publisher == nil || art.SessionID == "" || art.ObjectKey == "" {
		return
	}
	err := g.publisher.PublishMessage(ctx, g.message, art.SessionID, map[string]interface{}{
		"reportId":  art.ID,
		"objectKey": art.ObjectKey,
		"filename":  art.Filename,
		"title":     art.Data.ReportTitle,
	})
	if err != nil {
		g.logger.Warn("report message not published", map[string]interface{}{
			"reportId": art.ID,
			"message":  g.message,
			"error":    err.Error(),
		})
	}
}

func layoutError(err error) error {
	if errors.Is(err, layout.ErrCapabilityMissing) {
		return apperrors.NewCapabilityMissingError(strings.TrimPrefix(err.Error(), layout.ErrCapabilityMissing.Error()+": "))
	}
	if _, ok := apperrors.AsStandard(err); ok {
		return err
	}
	return apperrors.NewReportRenderFailedError(err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.CodeOf(err)))
	}
	span.End()
}

// Filename is ZenCalcs_<type>_Report_<date>.pdf with the UTC date of t.
func Filename(data models.ReportData, t time.Time) string {
	kind := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || strings.ContainsRune(`/\"`, r) {
			return '_'
		}
		return r
	}, string(data.PrimaryType()))
	return fmt.Sprintf("ZenCalcs_%s_Report_%s.pdf", kind, t.UTC().Format("2006-01-02"))
}
