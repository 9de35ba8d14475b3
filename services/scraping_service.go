// services/scraping_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"bounty-hunter-agent/models"
)

// RawListing is one heterogeneous record as fetched from a platform,
// before normalization. Structured marks records that came from a real
// platform API (reward must be present); unstructured records came from
// content search and go through text extraction.
type RawListing struct {
	SourceID    string
	Title       string
	Description string
	Content     string // full page text for content-extraction sources
	Reward      float64
	RewardToken string
	Network     string
	Deadline    *time.Time
	Open        bool
	Done        bool
	Skills      []string
	URL         string
	Structured  bool
}

// ListingSource fetches raw listings for one platform. A failing platform
// must not block the others — the orchestrator isolates the error.
type ListingSource interface {
	FetchListings(ctx context.Context, platform models.Platform) ([]RawListing, error)
}

// HTTPListingSource talks to the real platform APIs / content feed.
type HTTPListingSource struct {
	GitcoinURL   string
	DeworkURL    string
	SearchURL    string // content-search feed for layer3/superteam
	SearchAPIKey string
	Client       *http.Client
}

func NewHTTPListingSource() *HTTPListingSource {
	return &HTTPListingSource{
		GitcoinURL:   envOr("GITCOIN_API_URL", "https://gitcoin.co/api/v1/bounties"),
		DeworkURL:    envOr("DEWORK_API_URL", "https://api.dework.xyz/graphql"),
		SearchURL:    os.Getenv("SEARCH_API_URL"),
		SearchAPIKey: os.Getenv("SEARCH_API_KEY"),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *HTTPListingSource) FetchListings(ctx context.Context, platform models.Platform) ([]RawListing, error) {
	switch platform {
	case models.PlatformGitcoin:
		return s.fetchGitcoin(ctx)
	case models.PlatformDework:
		return s.fetchDework(ctx)
	case models.PlatformLayer3:
		return s.fetchSearch(ctx, "site:layer3.xyz quests active rewards crypto")
	case models.PlatformSuperteam:
		return s.fetchSearch(ctx, "site:superteam.fun bounties solana crypto rewards")
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}
}

// gitcoinBounty mirrors the fields we read from the Gitcoin bounty API.
type gitcoinBounty struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ValueInUSDT string  `json:"value_in_usdt"`
	TokenName   string  `json:"token_name"`
	Network     string  `json:"network"`
	Status      string  `json:"status"`
	ExpiresDate *string `json:"expires_date"`
	GithubURL   string  `json:"github_url"`
	Keywords    string  `json:"keywords"`
}

func (s *HTTPListingSource) fetchGitcoin(ctx context.Context) ([]RawListing, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.GitcoinURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "BountyHunter-Agent/1.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gitcoin fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("gitcoin returned status %d: %s", resp.StatusCode, string(body))
	}

	var items []gitcoinBounty
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode gitcoin response: %w", err)
	}

	// Cap per fetch so one platform cannot flood a cycle
	if len(items) > 20 {
		items = items[:20]
	}

	listings := make([]RawListing, 0, len(items))
	for _, item := range items {
		raw := RawListing{
			SourceID:    fmt.Sprintf("%d", item.ID),
			Title:       item.Title,
			Description: item.Description,
			Reward:      parseAmount(item.ValueInUSDT),
			RewardToken: item.TokenName,
			Network:     item.Network,
			Open:        item.Status == "open",
			Done:        item.Status == "done",
			URL:         item.GithubURL,
			Structured:  true,
		}
		if item.ExpiresDate != nil {
			if t, err := time.Parse(time.RFC3339, *item.ExpiresDate); err == nil {
				raw.Deadline = &t
			}
		}
		listings = append(listings, raw)
	}
	return listings, nil
}

const deworkTasksQuery = `query GetTasks {
  tasks(filter: { status: TODO, sortBy: createdAt }) {
    id
    name
    description
    reward { amount token { symbol } }
    dueDate
    skills { name }
    permalink
  }
}`

func (s *HTTPListingSource) fetchDework(ctx context.Context) ([]RawListing, error) {
	payload, _ := json.Marshal(map[string]string{"query": deworkTasksQuery})

	req, err := http.NewRequestWithContext(ctx, "POST", s.DeworkURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "BountyHunter-Agent/1.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dework fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dework returned status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			Tasks []struct {
				ID          string  `json:"id"`
				Name        string  `json:"name"`
				Description string  `json:"description"`
				DueDate     *string `json:"dueDate"`
				Permalink   string  `json:"permalink"`
				Reward      *struct {
					Amount float64 `json:"amount"`
					Token  *struct {
						Symbol string `json:"symbol"`
					} `json:"token"`
				} `json:"reward"`
				Skills []struct {
					Name string `json:"name"`
				} `json:"skills"`
			} `json:"tasks"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode dework response: %w", err)
	}

	tasks := out.Data.Tasks
	if len(tasks) > 15 {
		tasks = tasks[:15]
	}

	listings := make([]RawListing, 0, len(tasks))
	for _, task := range tasks {
		raw := RawListing{
			SourceID:    task.ID,
			Title:       task.Name,
			Description: task.Description,
			URL:         task.Permalink,
			Open:        true,
			Structured:  true,
		}
		if task.Reward != nil {
			raw.Reward = task.Reward.Amount
			if task.Reward.Token != nil {
				raw.RewardToken = task.Reward.Token.Symbol
			}
		}
		for _, skill := range task.Skills {
			raw.Skills = append(raw.Skills, skill.Name)
		}
		if task.DueDate != nil {
			if t, err := time.Parse(time.RFC3339, *task.DueDate); err == nil {
				raw.Deadline = &t
			}
		}
		listings = append(listings, raw)
	}
	return listings, nil
}

// fetchSearch hits the content-search feed for platforms without a usable
// API. Results are unstructured page text handed to the normalizer's
// extraction path.
func (s *HTTPListingSource) fetchSearch(ctx context.Context, query string) ([]RawListing, error) {
	if s.SearchURL == "" {
		return nil, fmt.Errorf("SEARCH_API_URL not configured")
	}

	payload, _ := json.Marshal(map[string]any{
		"query":      query,
		"numResults": 25,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", s.SearchURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.SearchAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.SearchAPIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Printf("⚠️ Content search returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("content search returned status %d", resp.StatusCode)
	}

	var out struct {
		Results []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
			Text  string `json:"text"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	listings := make([]RawListing, 0, len(out.Results))
	for _, r := range out.Results {
		listings = append(listings, RawListing{
			Title:      r.Title,
			Content:    r.Text,
			URL:        r.URL,
			Open:       true,
			Structured: false,
		})
	}
	return listings, nil
}
