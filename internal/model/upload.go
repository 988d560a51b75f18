package model

// Upload is a file received through the upload form and stored under a
// collision-free name.
type Upload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"` // name as sent by the browser
	Path     string `json:"path"`
}
