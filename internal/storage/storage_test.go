package storage

import (
	"bytes"
	"context"
	"io"
	"math"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	tmpDir := t.TempDir()
	cfg := config.StorageConfig{
		Type:      "local",
		LocalPath: tmpDir,
	}

	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	s := newTestStorage(t)
	require.NotNil(t, s)
	assert.NotNil(t, s.runs)

	_, err := New(config.StorageConfig{Type: "tape"})
	assert.Error(t, err)
}

func TestRunSetMetric(t *testing.T) {
	run := NewRun(KindRFMCluster, "tx.csv")
	run.SetMetric("silhouette", math.NaN())
	run.SetMetric("roi", math.Inf(1))
	run.SetMetric("inertia", 12.5)

	assert.Equal(t, map[string]float64{"inertia": 12.5}, run.Metrics)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, KindRFMCluster, run.Kind)
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	run := NewRun(KindSentiment, "reviews.csv")
	run.Params["threshold"] = "4"
	run.SetMetric("accuracy", 0.9)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Metrics["accuracy"])

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRunsSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{Type: "local", LocalPath: dir}
	ctx := context.Background()

	s, err := New(cfg)
	require.NoError(t, err)
	run := NewRun(KindRFM, "tx.csv")
	require.NoError(t, s.SaveRun(ctx, run))

	reopened, err := New(cfg)
	require.NoError(t, err)
	got, err := reopened.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, KindRFM, got.Kind)
	assert.Equal(t, 1, reopened.GetCacheStats()["runs_count"])
}

func TestListRuns(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	older := NewRun(KindRFM, "")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := NewRun(KindRFM, "")
	other := NewRun(KindSentiment, "")
	for _, r := range []*Run{older, newer, other} {
		require.NoError(t, s.SaveRun(ctx, r))
	}

	runs, err := s.ListRuns(ctx, KindRFM)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)

	all, err := s.ListRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSaveArtifactLocal(t *testing.T) {
	s := newTestStorage(t)
	df, err := dataset.FromRecords([][]string{{"CustomerID", "Cluster"}, {"1", "0"}, {"2", "1"}})
	require.NoError(t, err)

	path, err := s.SaveArtifact(context.Background(), "run-1", "clusters", df)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CustomerID,Cluster\n1,0\n2,1\n", string(data))
}

type fakeDynamo struct {
	items []map[string]types.AttributeValue
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.items = append(f.items, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	var out []map[string]types.AttributeValue
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i]["PK"].(*types.AttributeValueMemberS).Value == pk {
			out = append(out, f.items[i])
		}
	}
	return &dynamodb.QueryOutput{Items: out}, nil
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestAWSStorage(t *testing.T) {
	db := &fakeDynamo{}
	objects := &fakeS3{objects: make(map[string][]byte)}
	s := NewWithAWS(config.StorageConfig{}, NewAWSStorageWithClients(db, objects, "analytics-runs", "analytics-bucket"))
	ctx := context.Background()

	run := NewRun(KindCampaignMetrics, "s3://exports/campaigns.csv")
	run.SetMetric("ctr", 0.05)
	require.NoError(t, s.SaveRun(ctx, run))

	assert.Contains(t, objects.objects, "analytics-bucket/runs/"+run.ID+".json")
	require.Len(t, db.items, 1)
	assert.Equal(t, "RUN#campaign_metrics", db.items[0]["PK"].(*types.AttributeValueMemberS).Value)

	runs, err := s.ListRuns(ctx, KindCampaignMetrics)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 0.05, runs[0].Metrics["ctr"])

	fresh := NewWithAWS(config.StorageConfig{}, NewAWSStorageWithClients(db, objects, "analytics-runs", "analytics-bucket"))
	got, err := fresh.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Source, got.Source)

	_, err = fresh.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	df, err := dataset.FromRecords([][]string{{"a"}, {"1"}})
	require.NoError(t, err)
	loc, err := s.SaveArtifact(ctx, run.ID, "metrics", df)
	require.NoError(t, err)
	assert.Equal(t, "s3://analytics-bucket/artifacts/"+run.ID+"/metrics.csv", loc)
	assert.Equal(t, "a\n1\n", string(objects.objects["analytics-bucket/artifacts/"+run.ID+"/metrics.csv"]))
}
