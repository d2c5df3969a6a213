package analytics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ignite/marketing-analytics/internal/cache"
	"github.com/ignite/marketing-analytics/internal/campaign"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/distlock"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
	"github.com/ignite/marketing-analytics/internal/report"
	"github.com/ignite/marketing-analytics/internal/segmentation"
	"github.com/ignite/marketing-analytics/internal/sentiment"
	"github.com/ignite/marketing-analytics/internal/storage"
)

// Service runs pipelines and their side effects. All public methods are
// safe for concurrent use if the collaborators are.
type Service struct {
	cfg      config.AnalyticsConfig
	runs     RunStore
	cache    ResultCache
	locks    Locker
	mailer   Mailer
	narrator Narrator
	renderer *report.Renderer
	out      io.Writer

	// models holds the most recently trained models by run id.
	models *lru.Cache[string, *sentiment.Model]
}

// Option configures a Service.
type Option func(*Service)

// WithRunStore persists every run.
func WithRunStore(r RunStore) Option { return func(s *Service) { s.runs = r } }

// WithCache caches clustering results.
func WithCache(c ResultCache) Option { return func(s *Service) { s.cache = c } }

// WithLocker serializes identical clustering runs.
func WithLocker(l Locker) Option { return func(s *Service) { s.locks = l } }

// WithMailer enables emailed reports.
func WithMailer(m Mailer) Option { return func(s *Service) { s.mailer = m } }

// WithNarrator appends a generated commentary to every report.
func WithNarrator(n Narrator) Option { return func(s *Service) { s.narrator = n } }

// WithOutput receives the sentiment evaluation printout. Defaults to
// io.Discard; the printout is also returned in SentimentResult.
func WithOutput(w io.Writer) Option { return func(s *Service) { s.out = w } }

// NewService creates an analytics service with pipeline defaults from cfg.
func NewService(cfg config.AnalyticsConfig, opts ...Option) (*Service, error) {
	renderer, err := report.NewRenderer()
	if err != nil {
		return nil, err
	}
	size := cfg.MaxModels
	if size <= 0 {
		size = 32
	}
	models, err := lru.New[string, *sentiment.Model](size)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		renderer: renderer,
		out:      io.Discard,
		models:   models,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locks == nil {
		s.locks = distlock.NewFactory(nil, nil, 0)
	}
	return s, nil
}

// Input is one pipeline request.
type Input struct {
	// Source labels the run and its report, e.g. a file name or s3 URI.
	Source string
	Table  dataframe.DataFrame
	// Email sends the rendered report through the configured mailer.
	Email bool
}

func (s *Service) check(in Input) error {
	if in.Table.Err != nil {
		return in.Table.Err
	}
	if in.Table.Nrow() == 0 {
		return ErrEmptyTable
	}
	if in.Email && s.mailer == nil {
		return ErrNoMailer
	}
	return nil
}

// persist saves df as artifact name (when non-empty) and then the run.
func (s *Service) persist(ctx context.Context, run *storage.Run, name string, df dataframe.DataFrame) error {
	if s.runs == nil {
		return nil
	}
	if name != "" {
		path, err := s.runs.SaveArtifact(ctx, run.ID, name, df)
		if err != nil {
			return fmt.Errorf("save %s artifact: %w", run.Kind, err)
		}
		run.Artifacts = append(run.Artifacts, path)
	}
	if err := s.runs.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("save %s run: %w", run.Kind, err)
	}
	return nil
}

// annotate appends the narrator's commentary to report. A narrator failure
// leaves the report as it is.
func (s *Service) annotate(ctx context.Context, report string) string {
	if s.narrator == nil {
		return report
	}
	text, err := s.narrator.Narrate(ctx, report)
	if err != nil {
		logger.Warn("report commentary skipped", "error", err.Error())
		return report
	}
	if text == "" {
		return report
	}
	return report + "\n## Commentary\n\n" + text + "\n"
}

func (s *Service) deliver(ctx context.Context, email bool, subject, body string) (string, error) {
	if !email {
		return "", nil
	}
	return s.mailer.Send(ctx, subject, body)
}

// GetRun returns a persisted run summary.
func (s *Service) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	if s.runs == nil {
		return nil, storage.ErrRunNotFound
	}
	return s.runs.GetRun(ctx, id)
}

// CampaignResult is the output of CampaignMetrics.
type CampaignResult struct {
	RunID     string
	Table     dataframe.DataFrame
	Summary   campaign.Summary
	Report    string
	MessageID string
}

// CampaignMetrics appends the performance ratios to the campaign table and
// summarizes it.
func (s *Service) CampaignMetrics(ctx context.Context, in Input) (*CampaignResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	table, err := campaign.ComputeMetrics(in.Table)
	if err != nil {
		return nil, err
	}
	summary, err := campaign.Summarize(in.Table)
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(storage.KindCampaignMetrics, in.Source)
	run.SetMetric("campaigns", float64(summary.Campaigns))
	run.SetMetric("ctr", summary.CTR)
	run.SetMetric("conversion_rate", summary.ConversionRate)
	run.SetMetric("cost_per_conversion", summary.CostPerConversion)
	run.SetMetric("roi", summary.ROI)
	if err := s.persist(ctx, run, "metrics", table); err != nil {
		return nil, err
	}

	res := &CampaignResult{RunID: run.ID, Table: table, Summary: summary}
	if res.Report, err = s.renderer.Campaign(in.Source, summary); err != nil {
		return nil, err
	}
	res.Report = s.annotate(ctx, res.Report)
	if res.MessageID, err = s.deliver(ctx, in.Email, "Campaign performance report", res.Report); err != nil {
		return nil, err
	}
	return res, nil
}

// SentimentOptions returns training options from configuration.
func (s *Service) SentimentOptions() sentiment.Options {
	return sentiment.Options{
		TextColumn:   s.cfg.TextColumn,
		RatingColumn: s.cfg.RatingColumn,
		Threshold:    float64(s.cfg.PositiveThreshold),
		TestSize:     s.cfg.TestSize,
		Seed:         s.cfg.RandomState,
		MaxIter:      s.cfg.MaxIter,
	}
}

// SentimentResult is the output of TrainSentiment.
type SentimentResult struct {
	// RunID also identifies the model for Predict.
	RunID string
	Model *sentiment.Model
	// Output is the accuracy line and classification report as printed.
	Output    string
	Report    string
	MessageID string
}

// TrainSentiment trains a model on a review table and registers it for
// prediction under the run id.
func (s *Service) TrainSentiment(ctx context.Context, in Input, opts sentiment.Options) (*SentimentResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	var printed bytes.Buffer
	opts.Out = io.MultiWriter(&printed, s.out)

	model, err := sentiment.Train(in.Table, opts)
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(storage.KindSentiment, in.Source)
	run.Params["text_column"] = opts.TextColumn
	run.Params["rating_column"] = opts.RatingColumn
	run.Params["threshold"] = strconv.FormatFloat(model.Threshold, 'f', -1, 64)
	run.Params["seed"] = strconv.FormatInt(model.Seed, 10)
	run.SetMetric("accuracy", model.Accuracy)
	run.SetMetric("train_rows", float64(model.TrainRows))
	run.SetMetric("test_rows", float64(model.TestRows))
	run.SetMetric("features", float64(model.Features))

	if err := s.persist(ctx, run, "", dataframe.DataFrame{}); err != nil {
		return nil, err
	}
	if evicted := s.models.Add(run.ID, model); evicted {
		logger.With("run_id", run.ID).Info("sentiment model evicted from registry", "capacity", s.models.Len())
	}

	res := &SentimentResult{RunID: run.ID, Model: model, Output: printed.String()}
	if res.Report, err = s.renderer.Sentiment(in.Source, model); err != nil {
		return nil, err
	}
	res.Report = s.annotate(ctx, res.Report)
	if res.MessageID, err = s.deliver(ctx, in.Email, "Sentiment model report", res.Report); err != nil {
		return nil, err
	}
	return res, nil
}

// Model returns a model trained by this process. Only the most recent
// MaxModels models are kept.
func (s *Service) Model(id string) (*sentiment.Model, error) {
	m, ok := s.models.Get(id)
	if !ok {
		return nil, ErrModelNotFound
	}
	return m, nil
}

// Prediction is the label of one text.
type Prediction struct {
	Text        string  `json:"text"`
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// Predict labels texts with a registered model.
func (s *Service) Predict(ctx context.Context, modelID string, texts []string) ([]Prediction, error) {
	m, err := s.Model(modelID)
	if err != nil {
		return nil, err
	}
	probs, err := m.PredictProba(texts)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(texts))
	for i, p := range probs {
		out[i] = Prediction{Text: texts[i], Probability: p}
		if p > 0.5 {
			out[i].Label = 1
		}
	}
	return out, nil
}

// RFMOptions returns aggregation options from configuration.
func (s *Service) RFMOptions() segmentation.RFMOptions {
	return segmentation.RFMOptions{
		CustomerColumn: s.cfg.CustomerColumn,
		DateColumn:     s.cfg.DateColumn,
		AmountColumn:   s.cfg.AmountColumn,
	}
}

// RFMResult is the output of ComputeRFM.
type RFMResult struct {
	RunID string
	Table dataframe.DataFrame
}

// ComputeRFM aggregates a transaction table per customer.
func (s *Service) ComputeRFM(ctx context.Context, in Input, opts segmentation.RFMOptions) (*RFMResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	table, err := segmentation.ComputeRFM(in.Table, opts)
	if err != nil {
		return nil, err
	}

	run := storage.NewRun(storage.KindRFM, in.Source)
	run.Params["customer_column"] = opts.CustomerColumn
	run.Params["reference_date"] = opts.ReferenceDate
	run.SetMetric("transactions", float64(in.Table.Nrow()))
	run.SetMetric("customers", float64(table.Nrow()))
	if err := s.persist(ctx, run, "rfm", table); err != nil {
		return nil, err
	}
	return &RFMResult{RunID: run.ID, Table: table}, nil
}

// ClusterOptions returns clustering options from configuration.
func (s *Service) ClusterOptions() segmentation.ClusterOptions {
	return segmentation.ClusterOptions{
		Clusters: s.cfg.Clusters,
		Seed:     s.cfg.RandomState,
		NInit:    s.cfg.KMeansInit,
	}
}

// ClusterResult is the output of ClusterRFM.
type ClusterResult struct {
	RunID string
	*segmentation.ClusterResult
	// Cached is set when the labels came from the result cache.
	Cached    bool
	Report    string
	MessageID string
}

// clusterEntry is the cached form of a clustering. Non-finite numbers are
// stored as null.
type clusterEntry struct {
	Labels   []int                  `json:"labels"`
	Score    *float64               `json:"score"`
	Inertia  *float64               `json:"inertia"`
	Profiles []segmentation.Profile `json:"profiles"`
}

func finitePtr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func fromPtr(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func clusterKey(rfm dataframe.DataFrame, opts segmentation.ClusterOptions) (string, error) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, rfm); err != nil {
		return "", err
	}
	params := fmt.Sprintf("k=%d seed=%d n_init=%d", opts.Clusters, opts.Seed, opts.NInit)
	return cache.Key(buf.Bytes(), []byte(params)), nil
}

// cached looks key up. Cache failures are logged and treated as misses.
func (s *Service) cached(ctx context.Context, key string, rfm dataframe.DataFrame) *segmentation.ClusterResult {
	if s.cache == nil {
		return nil
	}
	var e clusterEntry
	hit, err := s.cache.Get(ctx, key, &e)
	if err != nil {
		logger.Warn("cluster cache lookup failed", "error", err.Error())
		return nil
	}
	if !hit || len(e.Labels) != rfm.Nrow() {
		return nil
	}
	table := rfm.Copy().Mutate(dataset.IntSeries(segmentation.ColCluster, e.Labels))
	if table.Err != nil {
		return nil
	}
	return &segmentation.ClusterResult{
		Table:    table,
		Score:    fromPtr(e.Score),
		Labels:   e.Labels,
		Inertia:  fromPtr(e.Inertia),
		Profiles: e.Profiles,
	}
}

func (s *Service) store(ctx context.Context, key string, res *segmentation.ClusterResult) {
	if s.cache == nil {
		return
	}
	err := s.cache.Set(ctx, key, clusterEntry{
		Labels:   res.Labels,
		Score:    finitePtr(res.Score),
		Inertia:  finitePtr(res.Inertia),
		Profiles: res.Profiles,
	})
	if err != nil {
		logger.Warn("cluster cache store failed", "error", err.Error())
	}
}

// ClusterRFM clusters customers. The input is either an RFM table or a
// transaction table, which is aggregated with rfmOpts first. Identical
// requests are served from the cache, and one running at the same time
// as another identical request fails with ErrBusy.
func (s *Service) ClusterRFM(ctx context.Context, in Input, rfmOpts segmentation.RFMOptions, opts segmentation.ClusterOptions) (*ClusterResult, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if opts.Clusters == 0 {
		opts.Clusters = s.ClusterOptions().Clusters
	}
	if opts.NInit == 0 {
		opts.NInit = s.ClusterOptions().NInit
	}
	rfm := in.Table
	if dataset.Require(rfm, segmentation.RFMColumns...) != nil {
		var err error
		if rfm, err = segmentation.ComputeRFM(in.Table, rfmOpts); err != nil {
			return nil, err
		}
	}

	key, err := clusterKey(rfm, opts)
	if err != nil {
		return nil, err
	}

	res := s.cached(ctx, key, rfm)
	fromCache := res != nil
	if res == nil {
		err = distlock.Do(ctx, s.locks.Lock(distlock.RunKey(storage.KindRFMCluster, key)), func(ctx context.Context) error {
			if res = s.cached(ctx, key, rfm); res != nil {
				fromCache = true
				return nil
			}
			var err error
			if res, err = segmentation.ClusterRFM(rfm, opts); err != nil {
				return err
			}
			s.store(ctx, key, res)
			return nil
		})
		if errors.Is(err, distlock.ErrNotAcquired) {
			return nil, ErrBusy
		}
		if err != nil {
			return nil, err
		}
	}

	run := storage.NewRun(storage.KindRFMCluster, in.Source)
	run.Params["clusters"] = strconv.Itoa(opts.Clusters)
	run.Params["seed"] = strconv.FormatInt(opts.Seed, 10)
	run.Params["cached"] = strconv.FormatBool(fromCache)
	run.SetMetric("customers", float64(len(res.Labels)))
	run.SetMetric("silhouette", res.Score)
	run.SetMetric("inertia", res.Inertia)
	if err := s.persist(ctx, run, "clusters", res.Table); err != nil {
		return nil, err
	}

	out := &ClusterResult{RunID: run.ID, ClusterResult: res, Cached: fromCache}
	if out.Report, err = s.renderer.Segmentation(in.Source, res); err != nil {
		return nil, err
	}
	out.Report = s.annotate(ctx, out.Report)
	if out.MessageID, err = s.deliver(ctx, in.Email, "Customer segmentation report", out.Report); err != nil {
		return nil, err
	}
	return out, nil
}
