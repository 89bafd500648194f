package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/user/applicant-harvester/internal/entity"
	"github.com/user/applicant-harvester/pkg/metrics"
	"github.com/user/applicant-harvester/pkg/utils"
)

// CookieSource supplies the browser session cookies for a URL.
type CookieSource interface {
	Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error)
}

// Config of a Dispatcher. BaseURL resolves relative resume links.
type Config struct {
	Dir     string
	Workers int
	Timeout time.Duration
	BaseURL string
}

// Dispatcher saves resumes to <Dir>/resumes/<serial>/<file> on a bounded
// pool of background workers.
type Dispatcher struct {
	client  *http.Client
	cookies CookieSource
	dir     string
	base    *url.URL
	timeout time.Duration
	sem     *semaphore.Weighted
	logger  *zap.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	reserved map[string]bool
}

// NewDispatcher validates cfg. cookies and client may be nil.
func NewDispatcher(cfg Config, cookies CookieSource, client *http.Client, logger *zap.Logger) (*Dispatcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("download directory is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid download base url: %w", err)
		}
		base = u
	}
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		client:   client,
		cookies:  cookies,
		dir:      cfg.Dir,
		base:     base,
		timeout:  cfg.Timeout,
		sem:      semaphore.NewWeighted(int64(cfg.Workers)),
		logger:   logger,
		reserved: make(map[string]bool),
	}, nil
}

// Dispatch queues the resume download and names the file after the candidate.
func (d *Dispatcher) Dispatch(ctx context.Context, resumeURL string, serialNumber int, candidateName string) bool {
	return d.Submit(ctx, entity.DownloadRequest{
		URL:          resumeURL,
		SerialNumber: serialNumber,
		Filename:     utils.ResumeFilename(candidateName),
	})
}

// Submit reports whether the request was handed to a worker. It blocks while
// all workers are busy.
func (d *Dispatcher) Submit(ctx context.Context, req entity.DownloadRequest) bool {
	if req.URL == "" || req.URL == entity.ResumeUnavailable {
		return false
	}
	abs, err := utils.ToAbsoluteURL(d.base, req.URL)
	if err != nil {
		d.logger.Warn("invalid resume url", zap.String("url", req.URL), zap.Error(err))
		return false
	}
	if req.Filename == "" {
		req.Filename = utils.ResumeFilename("")
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.sem.Release(1)
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	req.URL = abs
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)

		path, err := d.fetch(req)
		if err != nil {
			d.logger.Warn("resume download failed",
				zap.Int("serial", req.SerialNumber),
				zap.String("url", req.URL),
				zap.Error(err),
			)
			metrics.ResumeDispatches.WithLabelValues("download_error").Inc()
			return
		}
		d.logger.Info("resume saved", zap.Int("serial", req.SerialNumber), zap.String("path", path))
		metrics.ResumeDispatches.WithLabelValues("saved").Inc()
	}()
	return true
}

func (d *Dispatcher) fetch(req entity.DownloadRequest) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if d.cookies != nil {
		cookies, err := d.cookies.Cookies(ctx, req.URL)
		if err != nil {
			d.logger.Warn("downloading without session cookies", zap.Error(err))
		}
		for _, c := range cookies {
			httpReq.AddCookie(c)
		}
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	dir := filepath.Join(d.dir, "resumes", strconv.Itoa(req.SerialNumber))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write body: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	path := d.reservePath(dir, req.Filename)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return path, nil
}

// reservePath returns a free path for name in dir, appending " (n)" before
// the extension on conflict.
func (d *Dispatcher) reservePath(dir, name string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dir, name)
	for n := 1; d.taken(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
	}
	d.reserved[candidate] = true
	return candidate
}

func (d *Dispatcher) taken(path string) bool {
	if d.reserved[path] {
		return true
	}
	_, err := os.Stat(path)
	return err == nil
}

// Close stops accepting requests and waits for in-flight downloads.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
