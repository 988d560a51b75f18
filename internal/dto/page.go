package dto

import "helmetweb/internal/model"

// IndexPage is the template data of the landing page.
type IndexPage struct {
	Metrics model.MetricsSnapshot
}

// ResultPage is the template data of the result page.
type ResultPage struct {
	Filename      string
	IsVideo       bool
	DetectionTime float64
	HelmetCount   int
	NoHelmetCount int
	Metrics       model.MetricsSnapshot
}
