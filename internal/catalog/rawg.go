// Package catalog looks games up in the RAWG video game database.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/simp-lee/gamelib/internal/domain"
)

// DefaultBaseURL is the public RAWG API root.
const DefaultBaseURL = "https://api.rawg.io/api"

const unavailableMessage = "game search is unavailable"

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a domain.SearchClient backed by the RAWG HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

var _ domain.SearchClient = (*Client)(nil)

// NewClient creates a Client. An empty base URL means DefaultBaseURL and a
// non-positive timeout means 10s.
func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type gamesResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ID              int    `json:"id"`
		Name            string `json:"name"`
		Slug            string `json:"slug"`
		BackgroundImage string `json:"background_image"`
		Platforms       []struct {
			Platform domain.Platform `json:"platform"`
		} `json:"platforms"`
	} `json:"results"`
}

// Search returns page (1-based) of games matching term.
func (c *Client) Search(ctx context.Context, term string, page int) (*domain.SearchPage, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "search term is required", nil)
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	q.Set("search", term)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(domain.SearchPageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/games?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeInternal, "failed to build catalog request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeUnavailable, unavailableMessage, err)
	}
	defer resp.Body.Close()

	c.log.DebugContext(ctx, "catalog search",
		slog.String("term", term),
		slog.Int("page", page),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// RAWG answers 404 for pages past the end.
		return &domain.SearchPage{Results: []domain.SearchResultItem{}}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.NewAppError(domain.CodeUnavailable, unavailableMessage,
			fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var body gamesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, domain.NewAppError(domain.CodeUnavailable, unavailableMessage, fmt.Errorf("decode catalog response: %w", err))
	}
	return body.toPage(), nil
}

func (r *gamesResponse) toPage() *domain.SearchPage {
	page := &domain.SearchPage{
		Results:    make([]domain.SearchResultItem, 0, len(r.Results)),
		TotalCount: max(r.Count, 0),
	}
	for _, g := range r.Results {
		item := domain.SearchResultItem{
			ID:              g.ID,
			Name:            g.Name,
			Slug:            g.Slug,
			BackgroundImage: g.BackgroundImage,
			Platforms:       make([]domain.Platform, 0, len(g.Platforms)),
		}
		for _, p := range g.Platforms {
			item.Platforms = append(item.Platforms, p.Platform)
		}
		page.Results = append(page.Results, item)
	}
	return page
}

