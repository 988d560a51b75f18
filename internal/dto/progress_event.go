package dto

// Pipeline stages reported to progress subscribers.
const (
	StageUploaded    = "uploaded"
	StageDetecting   = "detecting"
	StageTranscoding = "transcoding"
	StageDone        = "done"
	StageFailed      = "failed"
)

// ProgressEvent is broadcast to WebSocket viewers while an upload is processed.
// Token scopes the event to the page that submitted the upload and is never
// sent over the wire.
type ProgressEvent struct {
	Token    string `json:"-"`
	ID       string `json:"id"`
	Stage    string `json:"stage"`
	Filename string `json:"filename,omitempty"`
	Error    string `json:"error,omitempty"`
}
