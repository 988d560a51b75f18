package model

// MetricsSnapshot holds the validation metrics of the loaded model, already
// scaled to percentages. It is loaded once at startup and never changes.
type MetricsSnapshot struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	MAP50     float64 `json:"map50"`
}
