package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"zencalcs-assistant/internal/models"
)

var ErrRecordNotFound = errors.New("report record not found")

const (
	defaultListSize = 20
	maxListSize     = 100
)

// ReportRecordRepository stores report audit records in Postgres.
type ReportRecordRepository struct {
	db *sql.DB
}

var _ models.ReportRepository = (*ReportRecordRepository)(nil)

func NewReportRecordRepository(client *PostgresClient) *ReportRecordRepository {
	return &ReportRecordRepository{db: client.DB}
}

func (r *ReportRecordRepository) Create(ctx context.Context, rec *models.ReportRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_records
			(id, session_id, filename, calculation_type, title, key_result,
			 page_count, chart_failures, source, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.SessionID, rec.Filename, rec.CalculationType, rec.Title, rec.KeyResult,
		rec.PageCount, rec.ChartFailures, rec.Source, rec.ObjectKey, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report record %s: %w", rec.ID, err)
	}
	return nil
}

func (r *ReportRecordRepository) FindByID(ctx context.Context, id string) (*models.ReportRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, filename, calculation_type, title, key_result,
		       page_count, chart_failures, source, object_key, created_at
		FROM report_records
		WHERE id = $1`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select report record %s: %w", id, err)
	}
	return rec, nil
}

// List returns the newest records first, filtered by title substring and calculation type.
func (r *ReportRecordRepository) List(ctx context.Context, filter models.ReportFilter) ([]*models.ReportRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.CalculationType != "" {
		args = append(args, filter.CalculationType)
		where = append(where, fmt.Sprintf("calculation_type = $%d", len(args)))
	}

	size := filter.Size
	if size < 1 {
		size = defaultListSize
	}
	if size > maxListSize {
		size = maxListSize
	}
	args = append(args, size)

	query := `SELECT id, session_id, filename, calculation_type, title, key_result, page_count, chart_failures, source, object_key, created_at FROM report_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list report records: %w", err)
	}
	defer rows.Close()

	var out []*models.ReportRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.ReportRecord, error) {
	var rec models.ReportRecord
	err := s.Scan(
		&rec.ID, &rec.SessionID, &rec.Filename, &rec.CalculationType, &rec.Title, &rec.KeyResult,
		&rec.PageCount, &rec.ChartFailures, &rec.Source, &rec.ObjectKey, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
