// Package registry queries an external release index for component
// versions.
//
// The index speaks the GitHub releases API; only listing and existence
// checks are consumed. Network failures are reported as TransportError so
// callers can distinguish "the index is unreachable" from "the version is
// not there".
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	perPage        = 50
)

type Client struct {
	client  *http.Client
	baseURL string
}

type release struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// NewClient creates a release index client. baseURL overrides the GitHub
// API endpoint; pass "" for the default.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// ListReleases returns the release tags of repo for the given page (1-based)
// in the index's ordering, newest first. Draft and pre-release entries are
// skipped; more reports whether further pages exist, judged on the raw page
// size so a page of nothing but pre-releases does not end pagination early.
func (c *Client) ListReleases(ctx context.Context, repo string, page int) (tags []string, more bool, err error) {
	if page < 1 {
		page = 1
	}
	url := fmt.Sprintf("%s/repos/%s/releases?per_page=%d&page=%d", c.baseURL, repo, perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, false, &TransportError{Op: "list releases", Repo: repo, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, false, &UnknownRepoError{Repo: repo}
	}
	if res.StatusCode != http.StatusOK {
		return nil, false, &TransportError{Op: "list releases", Repo: repo, Err: unexpectedStatus(res)}
	}

	var releases []release
	if err := json.NewDecoder(res.Body).Decode(&releases); err != nil {
		return nil, false, &TransportError{Op: "list releases", Repo: repo, Err: err}
	}

	tags = make([]string, 0, len(releases))
	for _, r := range releases {
		if r.Draft || r.Prerelease {
			continue
		}
		tags = append(tags, r.TagName)
	}
	return tags, len(releases) == perPage, nil
}

// ReleaseExists reports whether repo has a release tagged version.
func (c *Client) ReleaseExists(ctx context.Context, repo, version string) (bool, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.baseURL, repo, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := c.client.Do(req)
	if err != nil {
		return false, &TransportError{Op: "release exists", Repo: repo, Err: err}
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &TransportError{Op: "release exists", Repo: repo, Err: unexpectedStatus(res)}
	}
}

func unexpectedStatus(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("unexpected status %s: %s", res.Status, body)
}
