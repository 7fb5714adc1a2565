// internal/common/database/elasticsearch.go
package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"zencalcs-assistant/internal/common/config"
	"zencalcs-assistant/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

var ErrIndexNotFound = errors.New("index not found")

// ElasticsearchClient wraps the Elasticsearch client
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	esCfg := elasticsearch.Config{
		Addresses: cfg.Addresses,
	}
	if len(esCfg.Addresses) == 0 && cfg.GetURL() != "" {
		esCfg.Addresses = []string{cfg.GetURL()}
	}

	if cfg.Username != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchClient{Client: es}, nil
}

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}

// IndexReport writes a report summary document under its report ID.
func (c *ElasticsearchClient) IndexReport(ctx context.Context, index string, rec *models.ReportRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", rec.ID, err)
	}

	res, err := c.Client.Index(
		index,
		bytes.NewReader(body),
		c.Client.Index.WithContext(ctx),
		c.Client.Index.WithDocumentID(rec.ID),
		c.Client.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index report %s: %w", rec.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index report %s: %s", rec.ID, res.String())
	}
	return nil
}

// SearchResult is one page of report summaries.
type SearchResult struct {
	Reports []*models.ReportRecord
	Total   int64
	Took    int64
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.ReportRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchReports runs a keyword search over report titles and key results.
func (c *ElasticsearchClient) SearchReports(ctx context.Context, index string, filter models.ReportFilter) (*SearchResult, error) {
	size := filter.Size
	if size < 1 {
		size = defaultListSize
	}
	if size > maxListSize {
		size = maxListSize
	}

	body, err := json.Marshal(BuildReportQuery(filter))
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := c.Client.Search(
		c.Client.Search.WithContext(ctx),
		c.Client.Search.WithIndex(index),
		c.Client.Search.WithBody(bytes.NewReader(body)),
		c.Client.Search.WithSize(size),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrIndexNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", index, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{
		Reports: make([]*models.ReportRecord, 0, len(parsed.Hits.Hits)),
		Total:   parsed.Hits.Total.Value,
		Took:    parsed.Took,
	}
	for i := range parsed.Hits.Hits {
		rec := parsed.Hits.Hits[i].Source
		out.Reports = append(out.Reports, &rec)
	}
	return out, nil
}

// BuildReportQuery builds the bool query for a report search. An empty
// keyword lists everything, newest first.
func BuildReportQuery(filter models.ReportFilter) map[string]interface{} {
	must := []interface{}{}
	filters := []interface{}{}

	if filter.Query != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  filter.Query,
				"fields": []string{"title^3", "keyResult^2", "calculationType"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if filter.CalculationType != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"calculationType": filter.CalculationType},
		})
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
	}
	if filter.Query == "" {
		query["sort"] = []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		}
	}
	return query
}
