package analysis

import (
	"context"

	"zencalcs-assistant/internal/analyzer"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/models"
)

const (
	SourceCache  = "cache"
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Result is report data together with where it came from.
type Result struct {
	Data   models.ReportData
	Source string
}

// Source resolves report data from the cache, then the remote analyzer,
// then the local analyzer. Any of cache and remote may be nil.
type Source struct {
	cache           *Cache
	remote          Analyzer
	fallbackOnError bool
	logger          logger.Logger
}

type SourceOption func(*Source)

func WithCache(c *Cache) SourceOption {
	return func(s *Source) { s.cache = c }
}

func WithRemote(a Analyzer, fallbackOnError bool) SourceOption {
	return func(s *Source) {
		s.remote = a
		s.fallbackOnError = fallbackOnError
	}
}

func WithLogger(l logger.Logger) SourceOption {
	return func(s *Source) { s.logger = l }
}

func NewSource(opts ...SourceOption) *Source {
	s := &Source{logger: logger.NewNoOpLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve runs the chain. With preferRemote false the local analyzer is used
// directly.
func (s *Source) Resolve(ctx context.Context, history []models.Message, preferRemote bool) (*Result, error) {
	if len(history) == 0 {
		return nil, apperrors.NewEmptyConversationError()
	}
	if !preferRemote || s.remote == nil {
		return Local(history), nil
	}

	if s.cache != nil {
		data, ok, err := s.cache.Get(ctx, history)
		if err != nil {
			s.logger.Warn("analysis cache read failed", map[string]interface{}{"error": err.Error()})
		}
		if ok {
			return &Result{Data: *data, Source: SourceCache}, nil
		}
	}

	data, err := s.remote.Analyze(ctx, history)
	if err != nil {
		fields := map[string]interface{}{
			"error":     err.Error(),
			"errorCode": string(apperrors.CodeOf(err)),
		}
		if !s.fallbackOnError {
			s.logger.Error("remote analysis failed", fields)
			return nil, err
		}
		s.logger.Warn("remote analysis failed, using local analyzer", fields)
		return Local(history), nil
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, history, data); err != nil {
			s.logger.Warn("analysis cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return &Result{Data: *data, Source: SourceRemote}, nil
}

// Local runs the deterministic analyzer.
func Local(history []models.Message) *Result {
	data := analyzer.Analyze(history)
	return &Result{Data: data, Source: SourceLocal}
}
