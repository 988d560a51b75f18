package model

// Artifact is an annotated media file published to the output directory.
type Artifact struct {
	Filename string `json:"filename"`
	Format   string `json:"format"` // lower-case extension without the dot
}

var videoFormats = map[string]bool{
	"mp4": true,
	"avi": true,
	"mov": true,
}

// IsVideo reports whether the artifact should be rendered with a video element.
func (a Artifact) IsVideo() bool {
	return videoFormats[a.Format]
}
