package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"verba/pkg/config"
	"verba/pkg/core"
	"verba/pkg/storage"
)

func testAudio() config.Audio {
	return config.Audio{
		FetchTimeout: config.Duration{Duration: time.Second},
		Concurrency:  2,
	}
}

func newTestServer(t *testing.T, records []core.Record) (*Server, *httptest.Server) {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	if len(records) > 0 {
		if err := store.InsertRecords(records); err != nil {
			t.Fatalf("seeding records: %v", err)
		}
	}

	server := NewServer(store, testAudio())
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	ts := httptest.NewServer(CorsMiddleware(mux))
	t.Cleanup(ts.Close)
	return server, ts
}

func getJSON(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response from %s: %v", url, err)
		}
	}
	return resp
}

var apiFixtures = []core.Record{
	{ID: "r1", Playlist: "birds", Title: "flight", Timing: 1.5,
		Transcript: "the can  can fly", PosTags: "DT NN NN VB",
		Audio: "http://example.com/audio/r1.mp3"},
	{ID: "r2", Playlist: "dance", Title: "cabaret", Timing: 2,
		Transcript: "a cancan dancer", PosTags: "DT NN NN"},
	{ID: "r3", Playlist: "rivers", Title: "paddling", Timing: 3,
		Transcript: "I can canoe", PosTags: "PRP MD VB",
		Audio: "http://example.com/audio/r3.mp3"},
}

func TestDataDefaults(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	var body DataResponse
	resp := getJSON(t, ts.URL+"/data", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if body.Total != 3 {
		t.Errorf("expected total 3, got %d", body.Total)
	}
	if len(body.Data) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(body.Data))
	}
	if body.Data[0].ID != "r1" || body.Data[2].ID != "r3" {
		t.Errorf("expected id ascending order, got %s...%s", body.Data[0].ID, body.Data[2].ID)
	}
}

func TestDataTotalSpansAllPages(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	var body DataResponse
	getJSON(t, ts.URL+"/data?page=2&size=2", &body)

	// Total reflects the whole filter, not the page.
	if body.Total != 3 {
		t.Errorf("expected total 3, got %d", body.Total)
	}
	if len(body.Data) != 1 || body.Data[0].ID != "r3" {
		t.Errorf("expected page 2 to hold r3, got %+v", body.Data)
	}
}

func TestDataPhraseAndPlaylistAreANDed(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	var body DataResponse
	getJSON(t, ts.URL+"/data?text=can+can&playlists=dance", &body)
	if body.Total != 0 {
		t.Errorf("expected conjunction to match nothing, got %d", body.Total)
	}

	getJSON(t, ts.URL+"/data?text=can+can&playlists=birds", &body)
	if body.Total != 1 || body.Data[0].ID != "r1" {
		t.Errorf("expected only r1, got total=%d data=%+v", body.Total, body.Data)
	}
}

func TestDataHostileSortFallsBackSilently(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	var body DataResponse
	resp := getJSON(t, ts.URL+"/data?sort=DROP%20TABLE%20records&direction=sideways", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Total != 3 || body.Data[0].ID != "r1" {
		t.Errorf("expected default id asc ordering, got %+v", body.Data)
	}
}

func TestDataRejectsBadPagination(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	for _, q := range []string{"page=0", "page=abc", "size=0", "size=1001", "size=-3"} {
		resp := getJSON(t, ts.URL+"/data?"+q, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestPlaylists(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	var playlists []string
	getJSON(t, ts.URL+"/playlists", &playlists)

	want := []string{"birds", "dance", "rivers"}
	if len(playlists) != len(want) {
		t.Fatalf("expected %v, got %v", want, playlists)
	}
	for i := range want {
		if playlists[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, playlists)
		}
	}
}

func TestAudio(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	var body AudioResponse
	resp := getJSON(t, ts.URL+"/audio/r1", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.AudioURL != "http://example.com/audio/r1.mp3" {
		t.Errorf("unexpected audio url: %s", body.AudioURL)
	}

	// Missing record and record without audio both 404.
	for _, id := range []string{"nope", "r2"} {
		resp := getJSON(t, ts.URL+"/audio/"+id, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("id %q: expected 404, got %d", id, resp.StatusCode)
		}
	}
}

func TestDownloadCSV(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	resp, err := http.Get(ts.URL + "/download/csv?playlists=birds")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="transcripts.csv"` {
		t.Errorf("unexpected disposition: %s", cd)
	}

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parsing CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if len(rows[0]) != len(core.Columns) || rows[0][0] != "id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "r1" {
		t.Errorf("expected r1, got %v", rows[1])
	}
}

func TestDownloadArchive(t *testing.T) {
	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow.mp3" {
			time.Sleep(2 * time.Second)
		}
		_, _ = w.Write([]byte("data for " + r.URL.Path))
	}))
	defer audioSrv.Close()

	records := []core.Record{
		{ID: "a", Playlist: "p", Transcript: "x", Audio: audioSrv.URL + "/a.mp3"},
		{ID: "b", Playlist: "p", Transcript: "x", Audio: audioSrv.URL + "/b.mp3"},
		{ID: "c", Playlist: "p", Transcript: "x", Audio: audioSrv.URL + "/slow.mp3"},
	}
	server, ts := newTestServer(t, records)
	server.SetAudioSettings(config.Audio{
		FetchTimeout: config.Duration{Duration: 200 * time.Millisecond},
		Concurrency:  3,
	})

	resp, err := http.Get(ts.URL + "/download/mp3zip")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Errorf("unexpected content type: %s", ct)
	}
	if got := resp.Header.Get("X-Archive-Entries"); got != "2" {
		t.Errorf("expected 2 archived entries, got %s", got)
	}
	if got := resp.Header.Get("X-Archive-Skipped"); got != "1" {
		t.Errorf("expected 1 skipped entry, got %s", got)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("expected 2 zip entries, got %d", len(zr.File))
	}
	if zr.File[0].Name != "a.mp3" || zr.File[1].Name != "b.mp3" {
		t.Errorf("unexpected entries: %s, %s", zr.File[0].Name, zr.File[1].Name)
	}
}

func TestDownloadArchiveNoMatchingAudio(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	// Playlist dance matches only r2, which has no audio.
	resp := getJSON(t, ts.URL+"/download/mp3zip?playlists=dance", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	var body HealthResponse
	resp := getJSON(t, ts.URL+"/health", &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body.Status != "ok" || body.Version == "" {
		t.Errorf("unexpected health payload: %+v", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, apiFixtures)

	resp, err := http.Post(ts.URL+"/data", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestCorsHeaders(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp := getJSON(t, ts.URL+"/health", nil)
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/data", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	preflight, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	defer preflight.Body.Close()
	if preflight.StatusCode != http.StatusOK {
		t.Errorf("expected 200 preflight, got %d", preflight.StatusCode)
	}
}
