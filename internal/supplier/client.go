package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	xrimage "xray-cbt/internal/image"
	"xray-cbt/internal/item"
	"xray-cbt/internal/scoring"
)

// maxCachedImages bounds the decoded image cache. A batch usually carries
// a few dozen items, two images each.
const maxCachedImages = 96

// Client is the HTTP backend.
type Client struct {
	base       *url.URL
	token      string
	HTTPClient *http.Client

	mu    sync.Mutex
	cache map[string]image.Image
	order []string
}

// NewClient creates a client for baseURL. token, when set, is sent as a
// bearer credential with result submissions.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("failed to parse supplier URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("supplier URL %q must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:       u,
		token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
		cache:      make(map[string]image.Image),
	}, nil
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.base.JoinPath(escaped...).String()
}

// Categories fetches every threat category.
func (c *Client) Categories(ctx context.Context) ([]item.Category, error) {
	var wire []wireCategory
	if err := c.getJSON(ctx, c.endpoint("itemCategory"), &wire); err != nil {
		return nil, err
	}
	cats := make([]item.Category, 0, len(wire))
	for _, w := range wire {
		cats = append(cats, item.Category{ID: int(w.ID), Name: w.Name})
	}
	return cats, nil
}

// Items fetches a random batch for area, restricted to category unless it
// is "all" or empty.
func (c *Client) Items(ctx context.Context, area int, category string) ([]item.Baggage, error) {
	if category == "" {
		category = "all"
	}
	var wire []wireItem
	if err := c.getJSON(ctx, c.endpoint("cbt", "random", strconv.Itoa(area), category), &wire); err != nil {
		return nil, err
	}
	items := make([]item.Baggage, 0, len(wire))
	for _, w := range wire {
		items = append(items, w.baggage())
	}
	slog.Info("Fetched item batch", "area", area, "category", category, "count", len(items))
	return items, nil
}

// Submit posts one finished session.
func (c *Client) Submit(ctx context.Context, s scoring.Summary) error {
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: failed to encode summary: %v", ErrSubmission, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("training", "save"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmission, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: HTTP %d", ErrSubmission, resp.StatusCode)
	}
	slog.Info("Submitted session", "session", s.SessionID, "score", s.Score)
	return nil
}

// Image resolves ref and decodes it. Absolute http(s) URLs are fetched
// directly, file:// URLs and existing local paths are read from disk, and
// anything else is resolved against the base URL. Decoded images are
// cached by ref.
func (c *Client) Image(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty image reference", ErrImageLoad)
	}
	if img, ok := c.cached(ref); ok {
		return img, nil
	}

	img, err := c.loadImage(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrImageLoad, ref, err)
	}
	c.remember(ref, img)
	return img, nil
}

func (c *Client) loadImage(ctx context.Context, ref string) (image.Image, error) {
	u, err := url.Parse(ref)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return c.fetchImage(ctx, u.String())
		case "file":
			return xrimage.Load(u.Path)
		}
	}
	if _, statErr := os.Stat(ref); statErr == nil {
		return xrimage.Load(ref)
	}
	if err != nil {
		return nil, err
	}
	rel := &url.URL{Path: strings.TrimPrefix(path.Clean("/"+u.Path), "/"), RawQuery: u.RawQuery}
	return c.fetchImage(ctx, c.base.ResolveReference(rel).String())
}

func (c *Client) fetchImage(ctx context.Context, target string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	img, _, err := xrimage.Decode(resp.Body)
	return img, err
}

func (c *Client) cached(ref string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.cache[ref]
	return img, ok
}

func (c *Client) remember(ref string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cache[ref]; ok {
		return
	}
	if len(c.order) >= maxCachedImages {
		delete(c.cache, c.order[0])
		c.order = c.order[1:]
	}
	c.cache[ref] = img
	c.order = append(c.order, ref)
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSupplier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: HTTP %d", ErrSupplier, target, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: GET %s: empty body", ErrSupplier, target)
		}
		return fmt.Errorf("%w: GET %s: %v", ErrSupplier, target, err)
	}
	return nil
}
