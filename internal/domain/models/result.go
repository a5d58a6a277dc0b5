package models

// ResultStatus qualifies a derived value so callers can tell a computed
// zero from a zero that stands in for missing data.
type ResultStatus string

const (
	StatusOK               ResultStatus = "ok"
	StatusLowSample        ResultStatus = "low_sample"
	StatusInsufficientData ResultStatus = "insufficient_data"
	StatusNotApplicable    ResultStatus = "not_applicable"
	StatusConfigError      ResultStatus = "config_error"
)

// Reliable reports whether the value can drive threshold decisions.
func (s ResultStatus) Reliable() bool {
	return s == StatusOK || s == StatusLowSample
}

// Metric is a float result with its status flag.
type Metric struct {
	Value   float64      `json:"value"`
	Status  ResultStatus `json:"status"`
	Samples int          `json:"samples"`
}

// OK builds a metric with status ok.
func OK(v float64, samples int) Metric {
	return Metric{Value: v, Status: StatusOK, Samples: samples}
}

// Insufficient builds a zero metric flagged insufficient_data.
func Insufficient(samples int) Metric {
	return Metric{Value: 0, Status: StatusInsufficientData, Samples: samples}
}

// NotApplicable builds a zero metric flagged not_applicable.
func NotApplicable() Metric {
	return Metric{Status: StatusNotApplicable}
}
