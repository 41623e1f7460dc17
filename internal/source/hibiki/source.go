// Package hibiki fetches program metadata from the HiBiKi Radio Station
// web API and normalizes it into the canonical catalog schema.
package hibiki

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aircheck/internal/domain"
)

const (
	SourceID   = "hibiki-radio.jp"
	SourceName = "HiBiKi Radio Station"
)

// Config holds hibiki source configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements the catalog source adapter for hibiki-radio.jp.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new hibiki source.
func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchStations returns nil: hibiki has no multi-station concept.
func (s *Source) FetchStations(ctx context.Context) ([]domain.Station, error) {
	return nil, nil
}

// FetchPrograms fetches all currently listed programs. Entries without a
// published episode video are not yet retrievable and are skipped.
func (s *Source) FetchPrograms(ctx context.Context) ([]domain.Program, error) {
	raw, err := s.fetchJSON(ctx, "programs")
	if err != nil {
		return nil, err
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("programs payload is %T, want list", raw)
	}

	programs := make([]domain.Program, 0, len(entries))
	for _, entry := range entries {
		record, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if _, ok := dig(record, "episode", "video", "id"); !ok {
			continue
		}
		p, err := domain.ProgramFromMapping(toMapping(record))
		if err != nil {
			s.logger.Warn("skipping malformed program", "error", err)
			continue
		}
		programs = append(programs, p)
	}

	s.logger.Debug("fetched programs", "count", len(programs), "listed", len(entries))
	return programs, nil
}

// MediaPlaylistURL returns the playlist lookup endpoint for a fetched
// program, for use by an external media downloader.
func (s *Source) MediaPlaylistURL(p domain.Program) (string, error) {
	videoID, ok := dig(p.RawData, "episode", "video", "id")
	if !ok {
		return "", fmt.Errorf("program %d has no episode video", p.ID)
	}
	id, ok := videoID.(float64)
	if !ok {
		return "", fmt.Errorf("program %d video id is %T, want number", p.ID, videoID)
	}
	return s.baseURL + fmt.Sprintf("videos/play_check?video_id=%d", int64(id)), nil
}

// toMapping converts a hibiki payload entry into the canonical raw mapping
// consumed by the record model. Casts are comma-separated in one field;
// media_type 1 (or absent) means audio-only.
func toMapping(record map[string]any) map[string]any {
	m := map[string]any{
		"id":          record["access_id"],
		"station_id":  nil,
		"name":        record["name"],
		"url":         record["share_url"],
		"description": record["description"],
		"information": record["onair_information"],
		"copyright":   record["copyright"],
		"image_url":   record["pc_image_url"],
		"raw_data":    record,
	}
	if cast, ok := record["cast"].(string); ok && cast != "" {
		m["performers"] = strings.Split(cast, ", ")
	}
	if accessID, ok := record["access_id"].(float64); ok {
		m["ascii_name"] = fmt.Sprintf("%d", int64(accessID))
	} else if accessID, ok := record["access_id"].(string); ok {
		m["ascii_name"] = accessID
		m["id"] = record["id"]
	}
	if episode, ok := record["episode"].(map[string]any); ok {
		m["episode_id"] = episode["id"]
		m["episode_name"] = episode["name"]
		m["datetime"] = episode["updated_at"]
		if duration, ok := dig(episode, "video", "duration"); ok {
			m["duration"] = duration
		}
		mediaType := episode["media_type"]
		m["is_video"] = mediaType != nil && mediaType != float64(1)
	}
	return m
}

func (s *Source) fetchJSON(ctx context.Context, href string) (any, error) {
	endpoint, err := url.JoinPath(s.baseURL, href)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		v, err := s.doRequest(ctx, endpoint)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, lastErr)
}

func (s *Source) doRequest(ctx context.Context, endpoint string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var v any
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return v, nil
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

// dig walks nested mappings by key, reporting whether the full path exists.
func dig(m map[string]any, keys ...string) (any, bool) {
	var cur any = m
	for _, key := range keys {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
