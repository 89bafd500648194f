package chromedp_page

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// SessionConfig selects how the browser is reached.
type SessionConfig struct {
	// DebugURL attaches to an already running, logged-in Chrome
	// (started with --remote-debugging-port). Empty launches a new browser.
	DebugURL string
	// UserDataDir keeps the launched browser's profile, and with it the login.
	UserDataDir string
	Headless    bool
	// StartURL is opened once the tab is ready. Empty leaves the tab as is.
	StartURL string
	// AttachHost picks an existing tab whose URL contains it when attaching.
	AttachHost string
}

// Session owns the browser tab every page operation runs in.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewSession starts or attaches to Chrome and returns a ready tab.
func NewSession(ctx context.Context, cfg SessionConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.DebugURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.DebugURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if cfg.UserDataDir != "" {
			opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.Sugar().Debugf))
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	tabCtx, tabCancel := browserCtx, context.CancelFunc(func() {})
	if cfg.DebugURL != "" {
		if id, ok := findTab(browserCtx, cfg.AttachHost, logger); ok {
			tabCtx, tabCancel = chromedp.NewContext(browserCtx, chromedp.WithTargetID(id))
			if err := chromedp.Run(tabCtx); err != nil {
				tabCancel()
				browserCancel()
				allocCancel()
				return nil, fmt.Errorf("failed to attach to tab: %w", err)
			}
		}
	}

	s := &Session{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			browserCancel()
			allocCancel()
		},
		logger: logger,
	}

	if cfg.StartURL != "" {
		if err := chromedp.Run(tabCtx, chromedp.Navigate(cfg.StartURL)); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open %s: %w", cfg.StartURL, err)
		}
		logger.Info("opened start page", zap.String("url", cfg.StartURL))
	}
	return s, nil
}

func findTab(browserCtx context.Context, host string, logger *zap.Logger) (target.ID, bool) {
	if host == "" {
		return "", false
	}
	infos, err := chromedp.Targets(browserCtx)
	if err != nil {
		logger.Warn("could not list browser tabs", zap.Error(err))
		return "", false
	}
	for _, info := range infos {
		if info.Type == "page" && strings.Contains(info.URL, host) {
			logger.Info("attaching to existing tab", zap.String("url", info.URL))
			return info.TargetID, true
		}
	}
	return "", false
}

// Close shuts the tab and, for launched browsers, the browser process.
func (s *Session) Close() {
	s.cancel()
}

// run executes actions in the tab while honouring the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Cookies exports the tab's cookies for rawURL so downloads can reuse the
// logged-in session outside the browser.
func (s *Session) Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, 10*time.Second, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().WithUrls([]string{rawURL}).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return toHTTPCookies(cookies), nil
}

func toHTTPCookies(in []*network.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(in))
	for _, c := range in {
		if c == nil {
			continue
		}
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}
