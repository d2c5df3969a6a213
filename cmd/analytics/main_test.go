package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func setup(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "storage:\n  type: local\n  local_path: "+filepath.Join(dir, "runs")+"\n")
	return dir
}

func TestRunCampaign(t *testing.T) {
	dir := setup(t)
	in := writeFile(t, dir, "campaigns.csv",
		"Campaign,Impressions,Clicks,Conversions,Cost,Revenue\nspring,1000,50,5,100,300\n")

	var out bytes.Buffer
	err := run(context.Background(), []string{"campaign", "-config", filepath.Join(dir, "config.yaml"), in}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "CTR")
	assert.Contains(t, out.String(), "# Campaign performance")
	assert.Contains(t, out.String(), "run: ")
}

func TestRunRFMToFile(t *testing.T) {
	dir := setup(t)
	in := writeFile(t, dir, "tx.csv",
		"CustomerID,InvoiceDate,Amount\n1,2024-01-01,10\n1,2024-01-05,5\n2,2024-01-03,7\n")
	dst := filepath.Join(dir, "rfm.csv")

	var out bytes.Buffer
	err := run(context.Background(), []string{"rfm", "-config", filepath.Join(dir, "config.yaml"), "-out", dst, in}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "wrote 2 rows")

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CustomerID,Recency,Frequency,Monetary")
}

var runLine = regexp.MustCompile(`(?m)^run: (\S+)$`)

// savedRun reopens the local run store and returns the run printed in out.
func savedRun(t *testing.T, dir, out string) *storage.Run {
	t.Helper()
	m := runLine.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	store, err := storage.New(config.StorageConfig{Type: "local", LocalPath: filepath.Join(dir, "runs")})
	require.NoError(t, err)
	r, err := store.GetRun(context.Background(), m[1])
	require.NoError(t, err)
	return r
}

func TestRunClusterSeedZero(t *testing.T) {
	dir := setup(t)
	in := writeFile(t, dir, "rfm.csv", "CustomerID,Recency,Frequency,Monetary\n"+
		"1,1,10,500\n2,2,12,520\n3,3,11,480\n4,90,1,10\n5,95,2,12\n6,99,1,8\n")
	cfg := filepath.Join(dir, "config.yaml")

	var out bytes.Buffer
	err := run(context.Background(), []string{"cluster", "-config", cfg, "-clusters", "2", "-seed", "0", in}, &out)
	require.NoError(t, err)
	r := savedRun(t, dir, out.String())
	assert.Equal(t, "0", r.Params["seed"])
	assert.Equal(t, "2", r.Params["clusters"])

	out.Reset()
	err = run(context.Background(), []string{"cluster", "-config", cfg, "-clusters", "2", in}, &out)
	require.NoError(t, err)
	assert.Equal(t, "42", savedRun(t, dir, out.String()).Params["seed"])
}

func TestRunErrors(t *testing.T) {
	dir := setup(t)
	cfg := filepath.Join(dir, "config.yaml")
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, run(ctx, nil, &out))
	assert.Error(t, run(ctx, []string{"forecast", "x.csv"}, &out))
	assert.Error(t, run(ctx, []string{"campaign", "-config", cfg}, &out))
	assert.Error(t, run(ctx, []string{"campaign", "-config", cfg, filepath.Join(dir, "missing.csv")}, &out))
	assert.Error(t, run(ctx, []string{"cluster", "-config", cfg, "-email", writeFile(t, dir, "rfm.csv", "CustomerID,Recency,Frequency,Monetary\n1,1,1,1\n2,2,2,2\n")}, &out))
}
