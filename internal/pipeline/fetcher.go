package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ppiankov/covenant/internal/document"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/util"
	"github.com/rotisserie/eris"
)

// ErrRobotsDisallowed is returned when robots.txt forbids the download
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

const (
	fetchAttempts    = 3
	fetchMaxRedirect = 3
)

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

// extensionByType names downloads that carry no usable extension
var extensionByType = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"text/plain":    ".txt",
	"text/markdown": ".md",
}

// Fetcher downloads contracts published at a URL
type Fetcher struct {
	client    *http.Client
	robots    *util.RobotsChecker
	userAgent string
	maxBytes  int64
}

// FetchedDocument is a downloaded contract
type FetchedDocument struct {
	Name        string
	Data        []byte
	ContentType string
	FinalURL    string
}

// NewFetcher creates a fetcher. maxBytes bounds the body, 0 leaves it
// unbounded.
func NewFetcher(cfg model.FetchConfig, maxBytes int64, httpProxy, httpsProxy string) *Fetcher {
	client := util.NewHTTPClient(time.Duration(cfg.Timeout)*time.Second, httpProxy, httpsProxy)
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= fetchMaxRedirect {
			return fmt.Errorf("stopped after %d redirects", fetchMaxRedirect)
		}
		return nil
	}

	f := &Fetcher{client: client, userAgent: cfg.UserAgent, maxBytes: maxBytes}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, cfg.UserAgent)
	}
	return f
}

// Fetch downloads rawURL, retrying throttling and server errors with
// backoff. Other non-2xx statuses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchedDocument, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, eris.Errorf("not an http(s) URL: %q", rawURL)
	}

	if f.robots != nil {
		ok, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, eris.Wrapf(ErrRobotsDisallowed, "%s", rawURL)
		}
	}

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			fetchSleepFunc(time.Duration(1<<(attempt-1)) * 500 * time.Millisecond)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		doc, retry, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchedDocument, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/pdf,application/vnd.openxmlformats-officedocument.wordprocessingml.document,text/plain;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, eris.Wrapf(err, "fetch %s", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retry, eris.Errorf("unexpected status: %s", resp.Status)
	}

	body := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, true, eris.Wrap(err, "read body")
	}
	if f.maxBytes > 0 && int64(len(data)) > f.maxBytes {
		return nil, false, eris.Wrapf(document.ErrTooLarge, "%s exceeds %d bytes", rawURL, f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	return &FetchedDocument{
		Name:        documentName(resp.Request.URL, resp.Header.Get("Content-Disposition"), contentType),
		Data:        data,
		ContentType: contentType,
		FinalURL:    resp.Request.URL.String(),
	}, false, nil
}

// documentName prefers the server-supplied filename, then the last path
// segment, and appends an extension from the content type when neither has
// one
func documentName(u *url.URL, disposition, contentType string) string {
	name := ""
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		name = path.Base(params["filename"])
	}
	if name == "" || name == "." || name == "/" {
		name = path.Base(u.Path)
	}
	if name == "" || name == "." || name == "/" {
		name = u.Hostname()
	}

	if _, _, err := document.Classify(name); err == nil {
		return name
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if ext, ok := extensionByType[strings.ToLower(mediaType)]; ok {
		return name + ext
	}
	return name
}
