package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/models"
)

type fakeRecords struct {
	created []*models.ReportRecord
	err     error
}

func (f *fakeRecords) Create(_ context.Context, rec *models.ReportRecord) error {
	f.created = append(f.created, rec)
	return f.err
}

type fakeIndexer struct {
	index string
	docs  []*models.ReportRecord
	err   error
}

func (f *fakeIndexer) IndexReport(_ context.Context, index string, rec *models.ReportRecord) error {
	f.index = index
	f.docs = append(f.docs, rec)
	return f.err
}

type fakeObjects struct {
	puts map[string][]byte
	err  error
}

func (f *fakeObjects) Put(_ context.Context, reportID, _ string, pdf []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	key := "reports/" + reportID + ".pdf"
	f.puts[key] = pdf
	return key, nil
}

func sampleArtifact() *Artifact {
	return &Artifact{
		ID:        "rep-1",
		SessionID: "sess-1",
		Filename:  "ZenCalcs_Financial_Report_2025-03-04.pdf",
		PDF:       []byte("%PDF-1.3"),
		PageCount: 2,
		Source:    "local",
		Data: models.ReportData{
			ReportTitle:      "Financial Calculation Report",
			CalculationType:  []models.CalculationType{models.CalculationFinancial},
			ExecutiveSummary: models.ExecutiveSummary{KeyResult: "$82,000"},
		},
		CreatedAt: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	}
}

func TestArchive_Store(t *testing.T) {
	records := &fakeRecords{}
	indexer := &fakeIndexer{}
	objects := &fakeObjects{}
	archive := NewArchive(createTestLogger(t), WithRecords(records), WithIndex(indexer, "zencalcs-reports"), WithObjects(objects))

	art := sampleArtifact()
	rec := archive.Store(context.Background(), art)

	assert.Equal(t, "reports/rep-1.pdf", art.ObjectKey)
	assert.Equal(t, "reports/rep-1.pdf", rec.ObjectKey)
	assert.Equal(t, []byte("%PDF-1.3"), objects.puts["reports/rep-1.pdf"])

	require.Len(t, records.created, 1)
	assert.Equal(t, "Financial", records.created[0].CalculationType)
	assert.Equal(t, "$82,000", records.created[0].KeyResult)
	assert.Equal(t, 2, records.created[0].PageCount)

	assert.Equal(t, "zencalcs-reports", indexer.index)
	require.Len(t, indexer.docs, 1)
	assert.Equal(t, "rep-1", indexer.docs[0].ID)
}

func TestArchive_FailuresAreSwallowed(t *testing.T) {
	boom := errors.New("unavailable")
	records := &fakeRecords{err: boom}
	indexer := &fakeIndexer{err: boom}
	archive := NewArchive(createTestLogger(t), WithRecords(records), WithIndex(indexer, "idx"), WithObjects(&fakeObjects{err: boom}))

	art := sampleArtifact()
	rec := archive.Store(context.Background(), art)

	assert.Empty(t, art.ObjectKey)
	assert.Empty(t, rec.ObjectKey)
	assert.Len(t, records.created, 1)
	assert.Len(t, indexer.docs, 1)
}

func TestArchive_NoTargets(t *testing.T) {
	rec := NewArchive(nil).Store(context.Background(), sampleArtifact())
	assert.Equal(t, "rep-1", rec.ID)
}

func TestGenerate_ArchivesArtifact(t *testing.T) {
	objects := &fakeObjects{}
	records := &fakeRecords{}
	gen := newPipeline(t, WithArchive(NewArchive(createTestLogger(t), WithObjects(objects), WithRecords(records))))

	art, err := gen.Generate(context.Background(), "sess-9", sampleHistory())
	require.NoError(t, err)

	assert.Equal(t, "reports/"+art.ID+".pdf", art.ObjectKey)
	require.Len(t, records.created, 1)
	assert.Equal(t, "sess-9", records.created[0].SessionID)
	assert.Equal(t, art.ObjectKey, records.created[0].ObjectKey)
}

type fakePublisher struct {
	name string
	key  string
	vars map[string]interface{}
	err  error
}

func (f *fakePublisher) PublishMessage(_ context.Context, name, key string, vars map[string]interface{}) error {
	f.name, f.key, f.vars = name, key, vars
	return f.err
}

func TestGenerate_PublishesArchivedReport(t *testing.T) {
	pub := &fakePublisher{}
	gen := newPipeline(t,
		WithArchive(NewArchive(createTestLogger(t), WithObjects(&fakeObjects{}))),
		WithPublisher(pub, "report-generated"),
	)

	art, err := gen.Generate(context.Background(), "sess-9", sampleHistory())
	require.NoError(t, err)

	assert.Equal(t, "report-generated", pub.name)
	assert.Equal(t, "sess-9", pub.key)
	assert.Equal(t, art.ID, pub.vars["reportId"])
	assert.Equal(t, art.ObjectKey, pub.vars["objectKey"])
}

func TestGenerate_PublishSkippedOrFailing(t *testing.T) {
	t.Run("not archived", func(t *testing.T) {
		pub := &fakePublisher{}
		gen := newPipeline(t, WithPublisher(pub, "report-generated"))
		_, err := gen.Generate(context.Background(), "sess-9", sampleHistory())
		require.NoError(t, err)
		assert.Empty(t, pub.name)
	})

	t.Run("broker down", func(t *testing.T) {
		pub := &fakePublisher{err: errors.New("unavailable")}
		gen := newPipeline(t,
			WithArchive(NewArchive(createTestLogger(t), WithObjects(&fakeObjects{}))),
			WithPublisher(pub, "report-generated"),
		)
		art, err := gen.Generate(context.Background(), "sess-9", sampleHistory())
		require.NoError(t, err)
		assert.NotEmpty(t, art.ObjectKey)
	})
}
