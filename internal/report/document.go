package report

import (
	"time"

	"github.com/joeabbey/httptimer/internal/aws"
)

// summaryDoc is the serialized form of a Summary. Durations are float
// milliseconds.
type summaryDoc struct {
	URL        string             `json:"url" yaml:"url"`
	Iterations int                `json:"iterations" yaml:"iterations"`
	Successful int                `json:"successful" yaml:"successful"`
	Failed     int                `json:"failed" yaml:"failed"`
	Min        float64            `json:"min_ms" yaml:"min_ms"`
	Max        float64            `json:"max_ms" yaml:"max_ms"`
	Average    float64            `json:"average_ms" yaml:"average_ms"`
	Median     float64            `json:"median_ms" yaml:"median_ms"`
	P90        float64            `json:"p90_ms" yaml:"p90_ms"`
	P99        float64            `json:"p99_ms" yaml:"p99_ms"`
	Phases     map[string]float64 `json:"phases_ms,omitempty" yaml:"phases_ms,omitempty"`
	Samples    []sampleDoc        `json:"results,omitempty" yaml:"results,omitempty"`
}

type sampleDoc struct {
	Iteration  int                `json:"iteration" yaml:"iteration"`
	StatusCode int                `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
	Total      *float64           `json:"total_ms,omitempty" yaml:"total_ms,omitempty"`
	Phases     map[string]float64 `json:"phases_ms,omitempty" yaml:"phases_ms,omitempty"`
}

type regionDoc struct {
	Region  aws.Region `json:"region" yaml:"region"`
	Summary summaryDoc `json:"summary" yaml:"summary"`
}

// document converts report types to their serialized form and passes
// anything else through.
func document(v any) any {
	switch v := v.(type) {
	case Summary:
		return summaryDocument(v)
	case []Summary:
		docs := make([]summaryDoc, len(v))
		for i, s := range v {
			docs[i] = summaryDocument(s)
		}
		return docs
	case []RegionResult:
		docs := make([]regionDoc, len(v))
		for i, r := range v {
			docs[i] = regionDoc{Region: r.Region, Summary: summaryDocument(r.Summary)}
		}
		return docs
	default:
		return v
	}
}

func summaryDocument(s Summary) summaryDoc {
	doc := summaryDoc{
		URL:        s.URL,
		Iterations: s.Iterations,
		Successful: s.Successful,
		Failed:     s.Failed,
		Min:        millis(s.Min),
		Max:        millis(s.Max),
		Average:    millis(s.Average),
		Median:     millis(s.Median),
		P90:        millis(s.P90),
		P99:        millis(s.P99),
	}
	if len(s.Phases) > 0 {
		doc.Phases = make(map[string]float64, len(s.Phases))
		for name, d := range s.Phases {
			doc.Phases[name] = millis(d)
		}
	}
	for _, sample := range s.Samples {
		sd := sampleDoc{
			Iteration:  sample.Iteration,
			StatusCode: sample.StatusCode,
			Error:      sampleError(sample),
		}
		if total := sample.Record.Phases.Total; total != nil {
			v := millis(*total)
			sd.Total = &v
		}
		sample.Record.Phases.Each(func(name string, d time.Duration) {
			if sd.Phases == nil {
				sd.Phases = make(map[string]float64)
			}
			sd.Phases[name] = millis(d)
		})
		doc.Samples = append(doc.Samples, sd)
	}
	return doc
}
