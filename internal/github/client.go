package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stacklok/toolhive-catalog/internal/httpclient"
)

const acceptHeader = "application/vnd.github.v3+json"

// Client implements API on top of httpclient.Client
type Client struct {
	http    httpclient.Client
	baseURL string
	token   string
}

var _ API = (*Client)(nil)

// NewClient creates a GitHub API client. An empty token is a configuration
// error and is rejected before any request is made.
func NewClient(httpClient httpclient.Client, baseURL, token string) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingCredential
	}
	if httpClient == nil {
		return nil, fmt.Errorf("http client cannot be nil")
	}
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}, nil
}

// SearchCode implements API
func (c *Client) SearchCode(ctx context.Context, query string, page, perPage int) (*SearchPage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	params.Set("page", fmt.Sprintf("%d", page))
	endpoint := c.baseURL + "/search/code?" + params.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsRateLimit() {
			return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("search %q page %d: %w", query, page, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("search %q page %d: invalid JSON response", query, page)
	}

	result := gjson.ParseBytes(body)
	searchPage := &SearchPage{
		TotalCount: int(result.Get("total_count").Int()),
	}
	result.Get("items").ForEach(func(_, item gjson.Result) bool {
		searchPage.Items = append(searchPage.Items, SearchItem{
			Repo:    item.Get("repository.full_name").String(),
			Path:    item.Get("path").String(),
			HTMLURL: item.Get("html_url").String(),
		})
		return true
	})

	return searchPage, nil
}

// contentResponse is the contents API payload for a single file
type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// GetContent implements API
func (c *Client) GetContent(ctx context.Context, repo, path, ref string) (ContentResult, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s",
		c.baseURL, escapePath(repo), escapePath(path), url.QueryEscape(ref))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if !errors.As(err, &httpErr) || httpErr.IsRateLimit() {
			return ContentResult{}, err
		}
		switch httpErr.StatusCode {
		case http.StatusNotFound:
			return ContentResult{Status: ContentNotFound}, nil
		case http.StatusUnauthorized, http.StatusUnavailableForLegalReasons:
			return ContentResult{Status: ContentInaccessible}, nil
		default:
			return ContentResult{}, err
		}
	}

	// Arrays are returned for directories
	var payload contentResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.Debug("Contents response is not a file", "repo", repo, "path", path, "ref", ref)
		return ContentResult{Status: ContentNotFound}, nil
	}
	if payload.Type != "file" {
		return ContentResult{Status: ContentNotFound}, nil
	}

	data, err := decodeContent(payload)
	if err != nil {
		return ContentResult{}, fmt.Errorf("decode %s/%s@%s: %w", repo, path, ref, err)
	}

	return Found(data), nil
}

// GetRepository implements API
func (c *Client) GetRepository(ctx context.Context, repo string) (*Repository, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/repos/%s", c.baseURL, escapePath(repo)))
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("repository %s: invalid JSON response", repo)
	}

	result := gjson.ParseBytes(body)
	return &Repository{
		FullName:    result.Get("full_name").String(),
		Description: result.Get("description").String(),
		Stars:       int(result.Get("stargazers_count").Int()),
		Private:     result.Get("private").Bool(),
		Archived:    result.Get("archived").Bool(),
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.http.Get(ctx, endpoint,
		httpclient.WithHeader("Accept", acceptHeader),
		httpclient.WithBearerToken(c.token),
	)
}

func decodeContent(payload contentResponse) ([]byte, error) {
	switch payload.Encoding {
	case "base64":
		cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(payload.Content)
		return base64.StdEncoding.DecodeString(cleaned)
	case "", "utf-8":
		return []byte(payload.Content), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", payload.Encoding)
	}
}

// escapePath escapes each segment of a slash separated path
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
