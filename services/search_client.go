package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SearchClient fetches web-search snippets used as extra context for question
// generation. Entirely optional: a failure here degrades the prompt, never
// the generation itself.
type SearchClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewSearchClient(baseURL, apiKey string) *SearchClient {
	return &SearchClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

const maxSearchSnippets = 5

// FetchContext queries for the company's business model and joins the top
// result snippets into a context block.
func (s *SearchClient) FetchContext(ctx context.Context, companyName string) (string, error) {
	if s.BaseURL == "" {
		return "", nil // search augmentation not configured
	}

	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid search API URL: %w", err)
	}
	q := u.Query()
	q.Set("engine", "google")
	q.Set("q", fmt.Sprintf("What is the business model of %s?", companyName))
	q.Set("api_key", s.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: search request failed: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: search API returned status %d", ErrUpstream, resp.StatusCode)
	}

	var out struct {
		OrganicResults []struct {
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode search response: %v", ErrUpstream, err)
	}

	var snippets []string
	for i, r := range out.OrganicResults {
		if i >= maxSearchSnippets {
			break
		}
		if r.Snippet != "" {
			snippets = append(snippets, r.Snippet)
		}
	}
	return strings.Join(snippets, "\n"), nil
}
