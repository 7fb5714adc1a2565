package searchreports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/common/config"
	"zencalcs-assistant/internal/common/database"
	apperrors "zencalcs-assistant/internal/common/errors"
	"zencalcs-assistant/internal/common/logger"
)

var recordColumns = []string{
	"id", "session_id", "filename", "calculation_type", "title", "key_result",
	"page_count", "chart_failures", "source", "object_key", "created_at",
}

func newElasticsearch(t *testing.T, status int, body string) *database.ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	return client
}

func newRepository(t *testing.T) (*database.ReportRecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return database.NewReportRecordRepository(database.NewPostgresFromDB(db)), mock
}

func createTestConfig() *Config {
	cfg := LoadConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestExecute_Elasticsearch(t *testing.T) {
	es := newElasticsearch(t, http.StatusOK, `{
		"took": 3,
		"hits": {"total": {"value": 1}, "hits": [{"_source": {"id": "rep-1", "title": "BMI Check", "calculationType": "Health"}}]}
	}`)
	repo, mock := newRepository(t)
	h := NewHandler(createTestConfig(), es, repo, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Query: " bmi ", CalculationType: "Health"})
	require.NoError(t, err)

	assert.Equal(t, SourceElasticsearch, out.Source)
	assert.Equal(t, int64(1), out.Total)
	require.Len(t, out.Reports, 1)
	assert.Equal(t, "BMI Check", out.Reports[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet(), "postgres must not be queried")
}

func TestExecute_FallsBackToPostgres(t *testing.T) {
	es := newElasticsearch(t, http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`)
	repo, mock := newRepository(t)

	mock.ExpectQuery(`SELECT (.+) FROM report_records WHERE title ILIKE \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("%loan%", 100).
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow("rep-9", "s-1", "a.pdf", "Financial", "Car loan", "$412", 2, 0, "remote", "reports/rep-9.pdf", time.Now().UTC()))

	h := NewHandler(createTestConfig(), es, repo, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{Query: "loan", Size: 1000})
	require.NoError(t, err)

	assert.Equal(t, SourcePostgres, out.Source)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, "reports/rep-9.pdf", out.Reports[0].ObjectKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_PostgresOnly(t *testing.T) {
	repo, mock := newRepository(t)
	mock.ExpectQuery(`SELECT (.+) FROM report_records ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(recordColumns))

	h := NewHandler(createTestConfig(), nil, repo, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{})
	require.NoError(t, err)

	assert.NotNil(t, out.Reports)
	assert.Empty(t, out.Reports)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_Errors(t *testing.T) {
	t.Run("negative size", func(t *testing.T) {
		h := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), &Input{Size: -1})
		assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
	})

	t.Run("no backend", func(t *testing.T) {
		h := NewHandler(createTestConfig(), nil, nil, logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), &Input{})
		assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, apperrors.CodeOf(err))
	})

	t.Run("elasticsearch down without fallback", func(t *testing.T) {
		es := newElasticsearch(t, http.StatusNotFound, `{}`)
		h := NewHandler(createTestConfig(), es, nil, logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), &Input{})
		assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, apperrors.CodeOf(err))
	})

	t.Run("both backends fail", func(t *testing.T) {
		es := newElasticsearch(t, http.StatusNotFound, `{}`)
		repo, mock := newRepository(t)
		mock.ExpectQuery(`SELECT (.+) FROM report_records`).WillReturnError(errors.New("connection refused"))

		h := NewHandler(createTestConfig(), es, repo, logger.NewTestLogger(t))
		_, err := h.Execute(context.Background(), &Input{})
		assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.CodeOf(err))
	})
}
