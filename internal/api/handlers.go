package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/marketing-analytics/internal/campaign"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/ignite/marketing-analytics/internal/pkg/httputil"
	"github.com/ignite/marketing-analytics/internal/pkg/logger"
	"github.com/ignite/marketing-analytics/internal/segmentation"
	"github.com/ignite/marketing-analytics/internal/sentiment"
	"github.com/ignite/marketing-analytics/internal/service/analytics"
	"github.com/ignite/marketing-analytics/internal/storage"
)

// Handlers serves the pipeline endpoints.
type Handlers struct {
	svc       *analytics.Service
	maxUpload int64
}

// NewHandlers creates handlers over svc. Request bodies are capped at
// maxUploadMB.
func NewHandlers(svc *analytics.Service, maxUploadMB int) *Handlers {
	return &Handlers{svc: svc, maxUpload: int64(maxUploadMB) << 20}
}

// inputErrors are caller mistakes, answered with 400.
var inputErrors = []error{
	errBadInput,
	dataset.ErrColumnNotFound,
	dataset.ErrNotNumeric,
	dataset.ErrBadDate,
	sentiment.ErrEmptyVocabulary,
	sentiment.ErrTooFewRows,
	segmentation.ErrTooFewSamples,
	segmentation.ErrLabelCount,
	analytics.ErrEmptyTable,
	analytics.ErrNoMailer,
}

func writeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		httputil.PayloadTooLarge(w, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
	case errors.Is(err, storage.ErrRunNotFound), errors.Is(err, analytics.ErrModelNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, analytics.ErrBusy):
		httputil.Conflict(w, err.Error())
	default:
		for _, target := range inputErrors {
			if errors.Is(err, target) {
				httputil.BadRequest(w, err.Error())
				return
			}
		}
		httputil.InternalError(w, err)
	}
}

// params reads optional query parameters, keeping the first parse error.
type params struct {
	url.Values
	err error
}

func (p *params) fail(name, value string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: invalid %s %q", errBadInput, name, value)
	}
}

func (p *params) str(name string, dst *string) {
	if v := p.Get(name); v != "" {
		*dst = v
	}
}

func (p *params) float(name string, dst *float64) {
	if v := p.Get(name); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(name, v)
			return
		}
		*dst = f
	}
}

func (p *params) int(name string, dst *int) {
	if v := p.Get(name); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(name, v)
			return
		}
		*dst = n
	}
}

func (p *params) int64(name string, dst *int64) {
	if v := p.Get(name); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail(name, v)
			return
		}
		*dst = n
	}
}

// input reads the table and the common source/email parameters. On failure
// it writes the error and returns false.
func (h *Handlers) input(w http.ResponseWriter, r *http.Request) (analytics.Input, *params, bool) {
	p := &params{Values: r.URL.Query()}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	df, err := readTable(r)
	if err != nil {
		writeError(w, err)
		return analytics.Input{}, nil, false
	}
	in := analytics.Input{
		Source: p.Get("source"),
		Table:  df,
		Email:  p.Get("email") == "true",
	}
	return in, p, true
}

type campaignResponse struct {
	RunID     string         `json:"run_id"`
	Summary   map[string]any `json:"summary"`
	Table     tableResponse  `json:"table"`
	Report    string         `json:"report"`
	MessageID string         `json:"message_id,omitempty"`
}

func summaryJSON(s campaign.Summary) map[string]any {
	return map[string]any{
		"campaigns":           s.Campaigns,
		"impressions":         jsonFloat(s.Impressions),
		"clicks":              jsonFloat(s.Clicks),
		"conversions":         jsonFloat(s.Conversions),
		"cost":                jsonFloat(s.Cost),
		"revenue":             jsonFloat(s.Revenue),
		"ctr":                 jsonFloat(s.CTR),
		"conversion_rate":     jsonFloat(s.ConversionRate),
		"cost_per_conversion": jsonFloat(s.CostPerConversion),
		"roi":                 jsonFloat(s.ROI),
	}
}

// CampaignMetrics appends CTR, ConversionRate, CostPerConversion and ROI.
//
//	POST /api/campaigns/metrics
func (h *Handlers) CampaignMetrics(w http.ResponseWriter, r *http.Request) {
	in, _, ok := h.input(w, r)
	if !ok {
		return
	}
	res, err := h.svc.CampaignMetrics(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	if wantsCSV(r) {
		if err := writeCSV(w, res.RunID, res.Table); err != nil {
			logger.Error("csv write failed", "error", err.Error())
		}
		return
	}
	httputil.OK(w, campaignResponse{
		RunID:     res.RunID,
		Summary:   summaryJSON(res.Summary),
		Table:     toTableResponse(res.Table),
		Report:    res.Report,
		MessageID: res.MessageID,
	})
}

type sentimentResponse struct {
	RunID     string           `json:"run_id"`
	ModelID   string           `json:"model_id"`
	Model     *sentiment.Model `json:"model"`
	Output    string           `json:"output"`
	Report    string           `json:"report"`
	MessageID string           `json:"message_id,omitempty"`
}

// TrainSentiment trains a review classifier.
//
//	POST /api/sentiment/train?threshold=4&test_size=0.2&seed=42
func (h *Handlers) TrainSentiment(w http.ResponseWriter, r *http.Request) {
	in, p, ok := h.input(w, r)
	if !ok {
		return
	}
	opts := h.svc.SentimentOptions()
	p.str("text_column", &opts.TextColumn)
	p.str("rating_column", &opts.RatingColumn)
	p.float("threshold", &opts.Threshold)
	p.float("test_size", &opts.TestSize)
	p.int64("seed", &opts.Seed)
	p.int("max_iter", &opts.MaxIter)
	if p.err == nil && (opts.TestSize <= 0 || opts.TestSize >= 1) {
		p.fail("test_size", p.Get("test_size"))
	}
	if p.err != nil {
		writeError(w, p.err)
		return
	}

	res, err := h.svc.TrainSentiment(r.Context(), in, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.Created(w, sentimentResponse{
		RunID:     res.RunID,
		ModelID:   res.RunID,
		Model:     res.Model,
		Output:    res.Output,
		Report:    res.Report,
		MessageID: res.MessageID,
	})
}

// GetModel returns a trained model's evaluation.
//
//	GET /api/sentiment/models/{id}
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Model(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, m)
}

type predictRequest struct {
	Texts []string `json:"texts"`
}

// PredictSentiment labels texts with a trained model.
//
//	POST /api/sentiment/models/{id}/predict
func (h *Handlers) PredictSentiment(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if !httputil.Decode(w, r, &req) {
		return
	}
	if len(req.Texts) == 0 {
		httputil.BadRequest(w, "texts is required")
		return
	}
	preds, err := h.svc.Predict(r.Context(), chi.URLParam(r, "id"), req.Texts)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"predictions": preds})
}

func (h *Handlers) rfmOptions(p *params) segmentation.RFMOptions {
	opts := h.svc.RFMOptions()
	p.str("customer_column", &opts.CustomerColumn)
	p.str("date_column", &opts.DateColumn)
	p.str("amount_column", &opts.AmountColumn)
	p.str("reference_date", &opts.ReferenceDate)
	return opts
}

// ComputeRFM aggregates transactions per customer.
//
//	POST /api/segments/rfm?reference_date=2011-12-10
func (h *Handlers) ComputeRFM(w http.ResponseWriter, r *http.Request) {
	in, p, ok := h.input(w, r)
	if !ok {
		return
	}
	opts := h.rfmOptions(p)

	res, err := h.svc.ComputeRFM(r.Context(), in, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if wantsCSV(r) {
		if err := writeCSV(w, res.RunID, res.Table); err != nil {
			logger.Error("csv write failed", "error", err.Error())
		}
		return
	}
	httputil.OK(w, map[string]any{
		"run_id": res.RunID,
		"table":  toTableResponse(res.Table),
	})
}

type clusterResponse struct {
	RunID      string                 `json:"run_id"`
	Cached     bool                   `json:"cached"`
	Silhouette *float64               `json:"silhouette"`
	Inertia    *float64               `json:"inertia"`
	Profiles   []segmentation.Profile `json:"profiles"`
	Table      tableResponse          `json:"table"`
	Report     string                 `json:"report"`
	MessageID  string                 `json:"message_id,omitempty"`
}

// ClusterRFM segments customers with k-means. The body is either an RFM
// table or raw transactions.
//
//	POST /api/segments/cluster?clusters=4&seed=42
func (h *Handlers) ClusterRFM(w http.ResponseWriter, r *http.Request) {
	in, p, ok := h.input(w, r)
	if !ok {
		return
	}
	rfmOpts := h.rfmOptions(p)
	opts := h.svc.ClusterOptions()
	p.int("clusters", &opts.Clusters)
	p.int64("seed", &opts.Seed)
	p.int("n_init", &opts.NInit)
	if p.err == nil && opts.Clusters < 1 {
		p.fail("clusters", p.Get("clusters"))
	}
	if p.err != nil {
		writeError(w, p.err)
		return
	}

	res, err := h.svc.ClusterRFM(r.Context(), in, rfmOpts, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if wantsCSV(r) {
		if err := writeCSV(w, res.RunID, res.Table); err != nil {
			logger.Error("csv write failed", "error", err.Error())
		}
		return
	}
	httputil.OK(w, clusterResponse{
		RunID:      res.RunID,
		Cached:     res.Cached,
		Silhouette: floatPtr(res.Score),
		Inertia:    floatPtr(res.Inertia),
		Profiles:   res.Profiles,
		Table:      toTableResponse(res.Table),
		Report:     res.Report,
		MessageID:  res.MessageID,
	})
}

// GetRun returns a persisted run summary.
//
//	GET /api/runs/{id}
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.OK(w, run)
}
