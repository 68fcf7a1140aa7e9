package core

// Record is one transcript unit. Records are owned by the backing store and
// never mutated by this service; handlers only read, re-serialize or follow
// the audio URL.
type Record struct {
	ID       string `json:"id"`
	Playlist string `json:"playlist"`
	Title    string `json:"title"`
	// Timing is the clip offset in seconds. Some source datasets label the
	// column "timing (sec.)"; that is a display alias of this attribute,
	// not a second field.
	Timing     float64 `json:"timing"`
	Transcript string  `json:"transcript"`
	PosTags    string  `json:"pos_tags"`
	// Audio is a remote URL and may be empty. It is not guaranteed reachable.
	Audio string `json:"audio"`
}

// Columns is the canonical column order used by the JSON API, the CSV export
// and the sort allow-list.
var Columns = []string{"id", "playlist", "title", "timing", "transcript", "pos_tags", "audio"}
