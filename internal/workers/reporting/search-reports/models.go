package searchreports

import "zencalcs-assistant/internal/models"

const (
	SourceElasticsearch = "elasticsearch"
	SourcePostgres      = "postgres"
)

type Input struct {
	Query           string `json:"query"`
	CalculationType string `json:"calculationType"`
	Size            int    `json:"size"`
}

type Output struct {
	Reports []*models.ReportRecord `json:"reports"`
	Total   int64                  `json:"total"`
	Source  string                 `json:"source"`
}
