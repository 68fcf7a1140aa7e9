package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"verba/pkg/archive"
	"verba/pkg/config"
	"verba/pkg/export"
	"verba/pkg/log"
	"verba/pkg/storage"
)

// Server holds the handlers for the read-only transcript API. All
// per-request state (parsed filter, compiled predicate, archive buffer) is
// request-local; the only shared mutable state is the audio tunables, which
// the config watcher may swap at runtime.
type Server struct {
	store    storage.Store
	exporter *export.Exporter
	logger   *log.Logger

	mu    sync.RWMutex
	audio config.Audio
}

func NewServer(store storage.Store, audio config.Audio) *Server {
	return &Server{
		store:    store,
		exporter: export.NewExporter(store),
		logger:   log.ForService("api"),
		audio:    audio,
	}
}

// SetAudioSettings swaps the archiver tunables; applied to requests started
// after the call.
func (s *Server) SetAudioSettings(audio config.Audio) {
	s.mu.Lock()
	s.audio = audio
	s.mu.Unlock()
}

// newArchiver builds an archiver from the current audio settings.
func (s *Server) newArchiver() *archive.Archiver {
	s.mu.RLock()
	audio := s.audio
	s.mu.RUnlock()
	return archive.NewArchiver(audio.FetchTimeout.Duration, audio.Concurrency)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

// CorsMiddleware applies a permissive CORS policy for the read-only API.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
