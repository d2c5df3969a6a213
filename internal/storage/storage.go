package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run kinds.
const (
	KindCampaignMetrics = "campaign_metrics"
	KindSentiment       = "sentiment"
	KindRFM             = "rfm"
	KindRFMCluster      = "rfm_cluster"
)

// Run is the persisted summary of one pipeline execution.
type Run struct {
	ID        string             `json:"id"`
	Kind      string             `json:"kind"`
	Source    string             `json:"source,omitempty"`
	Params    map[string]string  `json:"params,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Artifacts []string           `json:"artifacts,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewRun starts a run record of the given kind with a fresh id.
func NewRun(kind, source string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Kind:      kind,
		Source:    source,
		Params:    make(map[string]string),
		Metrics:   make(map[string]float64),
		CreatedAt: time.Now().UTC(),
	}
}

// SetMetric records a figure. Non-finite values (an undefined silhouette,
// a ratio over zero) are left out since JSON cannot carry them.
func (r *Run) SetMetric(name string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if r.Metrics == nil {
		r.Metrics = make(map[string]float64)
	}
	r.Metrics[name] = v
}

// Storage persists run summaries and CSV artifacts on local disk or AWS.
type Storage struct {
	config config.StorageConfig
	mu     sync.RWMutex

	// AWS storage (optional)
	aws *AWSStorage

	runs map[string]*Run
}

// New creates a new Storage instance
func New(cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{
		config: cfg,
		runs:   make(map[string]*Run),
	}

	switch cfg.Type {
	case "aws":
		awsStorage, err := NewAWSStorage(context.Background(), cfg.DynamoDBTable, cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage

	case "local":
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
		if err := s.loadFromDisk(); err != nil {
			// Not fatal - just log and continue
			logger.Warn("could not load existing runs", "path", cfg.LocalPath, "error", err)
		}

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	return s, nil
}

// NewWithAWS wires an already constructed AWS backend.
func NewWithAWS(cfg config.StorageConfig, a *AWSStorage) *Storage {
	cfg.Type = "aws"
	return &Storage{config: cfg, aws: a, runs: make(map[string]*Run)}
}

// SaveRun persists a run summary.
func (s *Storage) SaveRun(ctx context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.ID] = run

	switch s.config.Type {
	case "aws":
		if s.aws != nil {
			return s.aws.SaveRun(ctx, run)
		}
	case "local":
		return s.saveToFile("runs", run.ID, run)
	}
	return nil
}

// GetRun returns a run by id, or ErrRunNotFound.
func (s *Storage) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if ok {
		return run, nil
	}

	if s.aws != nil {
		run, err := s.aws.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.runs[id] = run
		s.mu.Unlock()
		return run, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// ListRuns returns runs of kind (all kinds when empty), newest first.
func (s *Storage) ListRuns(ctx context.Context, kind string) ([]Run, error) {
	if s.aws != nil && kind != "" {
		return s.aws.ListRuns(ctx, kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Run
	for _, r := range s.runs {
		if kind == "" || r.Kind == kind {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// SaveArtifact stores df as CSV under the run and returns its location.
func (s *Storage) SaveArtifact(ctx context.Context, runID, name string, df dataframe.DataFrame) (string, error) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, df); err != nil {
		return "", fmt.Errorf("encoding artifact %s: %w", name, err)
	}

	switch s.config.Type {
	case "aws":
		if s.aws != nil {
			return s.aws.SaveArtifact(ctx, runID, name, buf.Bytes())
		}
	case "local":
		dir := filepath.Join(s.config.LocalPath, "artifacts", filepath.Base(runID))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
		path := filepath.Join(dir, filepath.Base(name)+".csv")
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return "", err
		}
		return path, nil
	}
	return "", nil
}

// saveToFile saves data to a JSON file
func (s *Storage) saveToFile(category, key string, data interface{}) error {
	dir := filepath.Join(s.config.LocalPath, category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Sanitize key for filename
	safeKey := filepath.Base(key)
	path := filepath.Join(dir, safeKey+".json")

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// loadFromDisk loads existing run summaries from disk
func (s *Storage) loadFromDisk() error {
	runsDir := filepath.Join(s.config.LocalPath, "runs")
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(runsDir, entry.Name()))
		if err != nil {
			continue
		}
		var run Run
		if err := json.Unmarshal(data, &run); err == nil && run.ID != "" {
			s.runs[run.ID] = &run
		}
	}
	return nil
}

// GetCacheStats returns statistics about the in-memory run index
func (s *Storage) GetCacheStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKind := make(map[string]int)
	for _, r := range s.runs {
		byKind[r.Kind]++
	}
	return map[string]interface{}{
		"storage_type": s.config.Type,
		"runs_count":   len(s.runs),
		"runs_by_kind": byKind,
	}
}
