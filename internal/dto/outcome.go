package dto

import "helmetweb/internal/model"

// Outcome is what the result page shows for one processed upload.
type Outcome struct {
	Upload        model.Upload
	Artifact      model.Artifact
	DetectionTime float64 // seconds, rounded to two decimals
	HelmetCount   int
	NoHelmetCount int
}
