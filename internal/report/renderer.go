// Package report renders pipeline results as markdown summaries and mails
// them through SES.
package report

import (
	"fmt"
	"math"

	"github.com/ignite/marketing-analytics/internal/campaign"
	"github.com/ignite/marketing-analytics/internal/segmentation"
	"github.com/ignite/marketing-analytics/internal/sentiment"
	"github.com/osteele/liquid"
)

// Renderer turns results into markdown using precompiled liquid templates.
// It is safe for concurrent use.
type Renderer struct {
	campaign     *liquid.Template
	sentiment    *liquid.Template
	segmentation *liquid.Template
}

// NewRenderer compiles the report templates.
func NewRenderer() (*Renderer, error) {
	engine := liquid.NewEngine()
	registerFilters(engine)

	r := &Renderer{}
	for _, t := range []struct {
		name string
		src  string
		dst  **liquid.Template
	}{
		{"campaign", campaignTemplate, &r.campaign},
		{"sentiment", sentimentTemplate, &r.sentiment},
		{"segmentation", segmentationTemplate, &r.segmentation},
	} {
		tpl, err := engine.ParseString(t.src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", t.name, err)
		}
		*t.dst = tpl
	}
	return r, nil
}

// registerFilters adds number formatting. Missing or non-finite values
// print as "n/a".
func registerFilters(engine *liquid.Engine) {
	engine.RegisterFilter("num", func(v float64) string {
		if !finite(v) {
			return "n/a"
		}
		return fmt.Sprintf("%.2f", v)
	})
	engine.RegisterFilter("pct", func(v float64) string {
		if !finite(v) {
			return "n/a"
		}
		return fmt.Sprintf("%.2f%%", v*100)
	})
	engine.RegisterFilter("money", func(v float64) string {
		if !finite(v) {
			return "n/a"
		}
		return fmt.Sprintf("$%.2f", v)
	})
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func render(tpl *liquid.Template, b liquid.Bindings) (string, error) {
	out, err := tpl.RenderString(b)
	if err != nil {
		return "", err
	}
	return out, nil
}

// Campaign renders a campaign summary.
func (r *Renderer) Campaign(source string, s campaign.Summary) (string, error) {
	return render(r.campaign, liquid.Bindings{
		"source": source,
		"summary": map[string]interface{}{
			"campaigns":           s.Campaigns,
			"impressions":         s.Impressions,
			"clicks":              s.Clicks,
			"conversions":         s.Conversions,
			"cost":                s.Cost,
			"revenue":             s.Revenue,
			"ctr":                 s.CTR,
			"conversion_rate":     s.ConversionRate,
			"cost_per_conversion": s.CostPerConversion,
			"roi":                 s.ROI,
		},
	})
}

// Sentiment renders a trained model's held-out evaluation.
func (r *Renderer) Sentiment(source string, m *sentiment.Model) (string, error) {
	classes := make([]map[string]interface{}, len(m.Report.Classes))
	for i, c := range m.Report.Classes {
		classes[i] = scoreBindings(c.Precision, c.Recall, c.F1, c.Support)
		classes[i]["label"] = c.Label
	}
	rep := m.Report
	return render(r.sentiment, liquid.Bindings{
		"source": source,
		"model": map[string]interface{}{
			"accuracy":   m.Accuracy,
			"train_rows": m.TrainRows,
			"test_rows":  m.TestRows,
			"features":   m.Features,
			"threshold":  m.Threshold,
		},
		"classes":  classes,
		"macro":    scoreBindings(rep.MacroAvg.Precision, rep.MacroAvg.Recall, rep.MacroAvg.F1, rep.MacroAvg.Support),
		"weighted": scoreBindings(rep.WeightedAvg.Precision, rep.WeightedAvg.Recall, rep.WeightedAvg.F1, rep.WeightedAvg.Support),
	})
}

func scoreBindings(p, r, f1 float64, support int) map[string]interface{} {
	return map[string]interface{}{"precision": p, "recall": r, "f1": f1, "support": support}
}

// Segmentation renders cluster sizes and mean RFM values.
func (r *Renderer) Segmentation(source string, res *segmentation.ClusterResult) (string, error) {
	profiles := make([]map[string]interface{}, len(res.Profiles))
	for i, p := range res.Profiles {
		profiles[i] = map[string]interface{}{
			"cluster":   p.Cluster,
			"customers": p.Customers,
			"recency":   p.MeanRecency,
			"frequency": p.MeanFrequency,
			"monetary":  p.MeanMonetary,
		}
	}
	return render(r.segmentation, liquid.Bindings{
		"source":    source,
		"customers": len(res.Labels),
		"score":     res.Score,
		"profiles":  profiles,
	})
}
