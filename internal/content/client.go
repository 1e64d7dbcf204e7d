// Package content talks to the content delivery REST API and downloads
// native renditions through an ETag cache.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iTrooz/ardemo/internal/cache"
)

const apiPath = "content/published/api/v1.1"

// Channel addresses a publishing channel on a content server
type Channel struct {
	Server *url.URL
	Token  string
}

func (ch Channel) endpoint(query url.Values, elem ...string) string {
	u := ch.Server.JoinPath(append([]string{apiPath}, elem...)...)
	if query == nil {
		query = url.Values{}
	}
	query.Set("channelToken", ch.Token)
	u.RawQuery = query.Encode()
	return u.String()
}

// StatusError is returned for unexpected HTTP statuses
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("content request to %s failed with status %d", e.URL, e.StatusCode)
}

// DownloadResult locates a downloaded file
type DownloadResult struct {
	Path      string `json:"path"`
	FromCache bool   `json:"fromCache"`
}

// Options configures a Client
type Options struct {
	Timeout     time.Duration
	ProxyURL    string
	DownloadDir string
}

// Client reads assets and downloads their native renditions
type Client struct {
	httpClient  *http.Client
	cache       cache.Provider
	downloadDir string
	fence       *fence
}

// New creates a client storing downloads in provider
func New(provider cache.Provider, opts Options) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.ProxyURL != "" {
		proxyURL, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	downloadDir := opts.DownloadDir
	if downloadDir == "" {
		downloadDir = os.TempDir()
	}
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		cache:       provider,
		downloadDir: downloadDir,
		fence:       newFence(),
	}, nil
}

// ReadAsset fetches an item; expandAll inlines referenced assets
func (c *Client) ReadAsset(ctx context.Context, ch Channel, id string, expandAll bool) (*Asset, error) {
	query := url.Values{}
	if expandAll {
		query.Set("expand", "all")
	}

	var asset Asset
	if err := c.getJSON(ctx, ch.endpoint(query, "items", id), &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListAssets fetches the first page of items matching q
func (c *Client) ListAssets(ctx context.Context, ch Channel, q string, limit int) (*Assets, error) {
	query := url.Values{}
	if q != "" {
		query.Set("q", q)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var assets Assets
	if err := c.getJSON(ctx, ch.endpoint(query, "items"), &assets); err != nil {
		return nil, err
	}
	return &assets, nil
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("content request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	logrus.Debugf("GET %s -> %d", redact(target), resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, URL: redact(target)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", redact(target), err)
	}
	return nil
}

// DownloadNative downloads an asset's native rendition, revalidating the
// copy cached under cacheKey
func (c *Client) DownloadNative(ctx context.Context, ch Channel, id, cacheKey string) (*DownloadResult, error) {
	ticket := c.fence.begin(cacheKey)
	defer c.fence.done(cacheKey, ticket)
	target := ch.endpoint(nil, "assets", id, "native")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for name, value := range c.cache.HeaderValues(cacheKey) {
		if value != "" {
			req.Header.Set(name, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download of %s failed: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	fields := logrus.Fields{"asset": id, "key": cacheKey, "status": resp.StatusCode}

	switch resp.StatusCode {
	case http.StatusNotModified:
		path, err := c.cache.CachedItem(cacheKey)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(fields).Debug("Serving download from cache")
		return &DownloadResult{Path: path, FromCache: true}, nil

	case http.StatusOK:
		tmp, err := c.saveBody(resp, id, cacheKey)
		if err != nil {
			return nil, err
		}

		if !c.fence.latest(cacheKey, ticket) {
			// A newer download for this key is in flight or done; keep its result
			if path, err := c.cache.CachedItem(cacheKey); err == nil {
				_ = os.Remove(tmp)
				logrus.WithFields(fields).Debug("Discarding superseded download")
				return &DownloadResult{Path: path, FromCache: true}, nil
			}
		}

		path, err := c.cache.Store(tmp, cacheKey, resp.Header)
		if err != nil {
			_ = os.Remove(tmp)
			return nil, err
		}
		logrus.WithFields(fields).Debug("Stored download in cache")
		return &DownloadResult{Path: path}, nil

	default:
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: redact(target)}
	}
}

// saveBody writes the response body to a new file in the download directory
func (c *Client) saveBody(resp *http.Response, id, cacheKey string) (string, error) {
	hash := sha256.Sum256([]byte(cacheKey))
	keyHash := hex.EncodeToString(hash[:])[:8]
	name := keyHash + "_" + uuid.NewString()[:8] + "_" + downloadName(resp, id)

	path := filepath.Join(c.downloadDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}

	_, err = io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save download of %s: %w", id, err)
	}
	return path, nil
}

// downloadName picks the file name announced by the server, falling back to id
func downloadName(resp *http.Response, id string) string {
	name := id
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if filename := params["filename"]; filename != "" {
			name = filename
		}
	}
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if name == "/" || name == "." || name == "" {
		name = "download"
	}
	return name
}

// redact hides the channel token in logged URLs
func redact(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	query := u.Query()
	if query.Has("channelToken") {
		query.Set("channelToken", "REDACTED")
		u.RawQuery = query.Encode()
	}
	return u.String()
}
