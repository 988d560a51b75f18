package handler

import (
	"net/http"
	"os"

	"helmetweb/internal/logger"
	"helmetweb/internal/service/storage"

	"github.com/gorilla/mux"
)

// OutputHandler serves a published artifact from the output directory.
func OutputHandler(store *storage.FileStore, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename := mux.Vars(r)["filename"]

		filePath, err := store.OutputPath(filename)
		if err != nil {
			logger.Warning("Rejected output file name %q", filename)
			http.NotFound(w, r)
			return
		}

		info, err := os.Stat(filePath)
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}
