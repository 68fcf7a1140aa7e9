// Package archive downloads a set of remote audio files and bundles the
// successes into a single zip.
//
// The operation is best-effort: each URL is fetched independently
// with its own timeout, and a fetch that fails (timeout, non-2xx status,
// transport error) only skips that entry. The archive as a whole succeeds
// even when every fetch fails, yielding an empty zip; callers that need to
// distinguish "nothing matched" from "nothing was retrievable" inspect the
// Report.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zip"

	"verba/pkg/log"
)

// Archiver fetches audio URLs with bounded concurrency and writes a zip.
type Archiver struct {
	client      *http.Client
	concurrency int
	logger      *log.Logger
}

// Report describes what an Archive call did.
type Report struct {
	// Entries are the archive entry names written, in output order.
	Entries []string
	// Skips records every URL that was left out and why.
	Skips []Skip
}

// Skip is one URL that did not make it into the archive.
type Skip struct {
	URL    string
	Reason string
}

// fetchResult is the per-URL outcome: either a fully fetched body or a skip
// reason.
type fetchResult struct {
	url  string
	data []byte
	skip string
}

// NewArchiver creates an Archiver. timeout bounds each individual fetch;
// concurrency is the worker pool size. Zero values fall back to 5s and 4.
func NewArchiver(timeout time.Duration, concurrency int) *Archiver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Archiver{
		client:      &http.Client{Timeout: timeout},
		concurrency: concurrency,
		logger:      log.ForService("archive"),
	}
}

// Archive fetches every distinct URL and writes the successes to w as a zip.
// Entries are ordered by source URL so output is reproducible for a fixed
// set of successful fetches, and an entry is only written once its body has
// been fully fetched, so a dropped connection never leaves a truncated
// member behind. Duplicate derived filenames get a numeric suffix rather
// than clobbering earlier entries.
//
// The returned error covers archive assembly only; individual fetch
// failures are contained in the Report.
func (a *Archiver) Archive(ctx context.Context, urls []string, w io.Writer) (*Report, error) {
	urls = dedupe(urls)

	results := a.fetchAll(ctx, urls)

	// Deterministic output order for a fixed set of successes.
	sort.Slice(results, func(i, j int) bool { return results[i].url < results[j].url })

	report := &Report{}
	zw := zip.NewWriter(w)
	used := make(map[string]int)

	for _, res := range results {
		if res.skip != "" {
			a.logger.Warnf("skipping %s: %s", res.url, res.skip)
			report.Skips = append(report.Skips, Skip{URL: res.url, Reason: res.skip})
			continue
		}

		name := uniqueName(entryName(res.url), used)
		f, err := zw.Create(name)
		if err != nil {
			return report, fmt.Errorf("creating archive entry %s: %w", name, err)
		}
		if _, err := f.Write(res.data); err != nil {
			return report, fmt.Errorf("writing archive entry %s: %w", name, err)
		}
		report.Entries = append(report.Entries, name)
	}

	if err := zw.Close(); err != nil {
		return report, fmt.Errorf("finalizing archive: %w", err)
	}

	a.logger.Infof("archived %d entries, skipped %d", len(report.Entries), len(report.Skips))
	return report, nil
}

// fetchAll runs the worker pool. Each fetch is isolated: a failure neither
// cancels nor corrupts sibling fetches.
func (a *Archiver) fetchAll(ctx context.Context, urls []string) []fetchResult {
	jobs := make(chan string)
	results := make([]fetchResult, 0, len(urls))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < a.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobs {
				res := a.fetch(ctx, u)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, u := range urls {
		jobs <- u
	}
	close(jobs)
	wg.Wait()

	return results
}

func (a *Archiver) fetch(ctx context.Context, u string) fetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fetchResult{url: u, skip: fmt.Sprintf("building request: %v", err)}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fetchResult{url: u, skip: fmt.Sprintf("fetching: %v", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fetchResult{url: u, skip: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{url: u, skip: fmt.Sprintf("reading body: %v", err)}
	}

	return fetchResult{url: u, data: data}
}

// entryName derives an archive member name from the URL's path component,
// discarding any query string.
func entryName(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "audio"
	}
	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return "audio"
	}
	return name
}

// uniqueName suffixes duplicate names ("clip.mp3", "clip-2.mp3", ...) so a
// later entry never replaces an earlier one.
func uniqueName(name string, used map[string]int) string {
	used[name]++
	if used[name] == 1 {
		return name
	}

	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := fmt.Sprintf("%s-%d%s", base, used[name], ext)
	for used[candidate] > 0 {
		used[name]++
		candidate = fmt.Sprintf("%s-%d%s", base, used[name], ext)
	}
	used[candidate]++
	return candidate
}

// dedupe drops duplicate and empty URLs, preserving first-seen order.
func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
