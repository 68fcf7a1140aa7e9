package api

import (
	"time"

	"verba/pkg/core"
)

// DataResponse is the paginated record listing: total is the match count
// for the whole filter, data the requested page.
type DataResponse struct {
	Total int           `json:"total"`
	Data  []core.Record `json:"data"`
}

type AudioResponse struct {
	AudioURL string `json:"audio_url"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
