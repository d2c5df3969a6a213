package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-gota/gota/dataframe"
	"github.com/ignite/marketing-analytics/internal/pkg/httpretry"
)

// Source produces a frame for one of the pipelines.
type Source interface {
	Load(ctx context.Context) (dataframe.DataFrame, error)
}

// FileSource reads a local CSV file.
type FileSource struct {
	Path string
}

// Load implements Source.
func (s FileSource) Load(ctx context.Context) (dataframe.DataFrame, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// S3GetObjectAPI is the slice of the S3 client used for reading objects.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a CSV object from S3.
type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
	Key    string
}

// Load implements Source.
func (s S3Source) Load(ctx context.Context) (dataframe.DataFrame, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("getting s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	defer out.Body.Close()
	return ReadCSV(out.Body)
}

// SQLSource runs a query and loads its result set.
type SQLSource struct {
	DB    *sql.DB
	Query string
	Args  []interface{}
}

// Load implements Source.
func (s SQLSource) Load(ctx context.Context) (dataframe.DataFrame, error) {
	rows, err := s.DB.QueryContext(ctx, s.Query, s.Args...)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("query: %w", err)
	}
	return FromRows(rows)
}

// URLSource downloads a CSV over HTTP(S). Transient failures are retried
// when Client is a retrying client.
type URLSource struct {
	Client httpretry.HTTPDoer
	URL    string
}

// Load implements Source.
func (s URLSource) Load(ctx context.Context) (dataframe.DataFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")
	resp, err := s.Client.Do(req)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("getting %s: %w", s.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return dataframe.DataFrame{}, fmt.Errorf("getting %s: status %d", s.URL, resp.StatusCode)
	}
	return ReadCSV(resp.Body)
}

// ParseS3URI splits "s3://bucket/key" into its parts.
func ParseS3URI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}
