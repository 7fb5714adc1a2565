package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var ErrObjectNotFound = errors.New("object not found")

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ReportStore keeps rendered PDFs under <prefix><id>.pdf.
type ReportStore struct {
	api    S3API
	bucket string
	prefix string
}

// NewReportStore builds an S3 client; a non-empty endpoint selects an
// S3-compatible store with path-style addressing.
func NewReportStore(cfg sdkaws.Config, endpoint, bucket, prefix string) *ReportStore {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return NewReportStoreWithAPI(client, bucket, prefix)
}

func NewReportStoreWithAPI(api S3API, bucket, prefix string) *ReportStore {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &ReportStore{api: api, bucket: bucket, prefix: prefix}
}

func (s *ReportStore) Key(reportID string) string {
	return s.prefix + reportID + ".pdf"
}

// Put uploads a PDF and returns its object key.
func (s *ReportStore) Put(ctx context.Context, reportID, filename string, pdf []byte) (string, error) {
	key := s.Key(reportID)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             sdkaws.String(s.bucket),
		Key:                sdkaws.String(key),
		Body:               bytes.NewReader(pdf),
		ContentType:        sdkaws.String("application/pdf"),
		ContentDisposition: sdkaws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, nil
}

func (s *ReportStore) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(s.bucket),
		Key:    sdkaws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}
