package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /data", s.HandleData)
	mux.HandleFunc("GET /playlists", s.HandlePlaylists)
	mux.HandleFunc("GET /audio/{id}", s.HandleAudio)
	mux.HandleFunc("GET /download/csv", s.HandleDownloadCSV)
	mux.HandleFunc("GET /download/mp3zip", s.HandleDownloadArchive)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
