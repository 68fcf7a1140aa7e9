package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"time"

	"verba/pkg/core"
	"verba/pkg/query"
	"verba/pkg/storage"
	"verba/pkg/version"
)

// HandleData serves the paginated, filtered record listing. The predicate
// is compiled once and reused for both the count and the page fetch, so
// total and data always reflect the same filter.
func (s *Server) HandleData(w http.ResponseWriter, r *http.Request) {
	filter, err := core.ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	pred := query.Compile(filter.Text, filter.Playlists)

	total, err := s.store.Count(pred)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Count query failed", err.Error())
		return
	}

	records, err := s.store.FetchPage(pred, filter.Sort, filter.Direction, filter.Size, filter.Offset())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Data query failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, DataResponse{
		Total: total,
		Data:  records,
	})
}

// HandlePlaylists serves the sorted distinct playlist names.
func (s *Server) HandlePlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.store.Playlists()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Playlist query failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, playlists)
}

// HandleAudio resolves a record id to its audio URL. Missing rows and rows
// without audio both yield 404.
func (s *Server) HandleAudio(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Record id is required")
		return
	}

	audioURL, err := s.store.AudioURL(id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Audio not found", "No audio for record "+id)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Audio query failed", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, AudioResponse{AudioURL: audioURL})
}

// HandleDownloadCSV streams the full filtered result set as a CSV
// attachment. Rows stream directly from the store cursor; an error after
// the first row has been written can only be logged, since the status line
// is already on the wire.
func (s *Server) HandleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := core.ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	pred := query.Compile(filter.Text, filter.Playlists)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transcripts.csv"`)

	if err := s.exporter.Export(w, pred); err != nil {
		s.logger.Errorf("CSV export aborted: %v", err)
	}
}

// HandleDownloadArchive bundles the audio files of all matching records
// into a zip attachment. Individual download failures skip that entry only;
// the response still succeeds, with X-Archive-Entries and X-Archive-Skipped
// distinguishing an empty-but-matched archive from a filter that matched no
// audio at all (404). The zip is assembled before the response starts so
// the entry counts can be sent as headers.
func (s *Server) HandleDownloadArchive(w http.ResponseWriter, r *http.Request) {
	filter, err := core.ParseFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid parameters", err.Error())
		return
	}

	pred := query.Compile(filter.Text, filter.Playlists)

	urls, err := s.store.AudioURLs(pred)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Audio query failed", err.Error())
		return
	}
	if len(urls) == 0 {
		s.writeError(w, http.StatusNotFound, "No matching audio", "The filter matched no records with audio")
		return
	}

	var buf bytes.Buffer
	report, err := s.newArchiver().Archive(r.Context(), urls, &buf)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Archive failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="audio.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Archive-Entries", strconv.Itoa(len(report.Entries)))
	w.Header().Set("X-Archive-Skipped", strconv.Itoa(len(report.Skips)))

	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Errorf("writing archive response: %v", err)
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	}

	s.writeJSON(w, http.StatusOK, health)
}
