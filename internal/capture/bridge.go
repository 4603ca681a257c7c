// Package capture installs the third-party capture toolbar into the live page
// and proxies its upstream submissions through the host.
//
// The toolbar script is served with a CSP that blocks a plain <script src>
// load, so the bridge fetches it host-side and evaluates the body in the page.
// Its submissions are rerouted through __submitCapture by an idempotent fetch
// interposer, which lets the host observe claim URLs without touching the
// foreign code.
package capture

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/openclaw/walletbridge/internal/config"
	"github.com/openclaw/walletbridge/internal/logging"
)

//go:embed interposer.js
var interposerJS string

var figmaURLRe = regexp.MustCompile(`https?://(www\.)?figma\.com/[^\s"'<>]+`)

// Page is the slice of the browser runtime the bridge drives.
type Page interface {
	Evaluate(ctx context.Context, script string) error
}

// InjectResult reports a toolbar injection attempt to the workflow.
type InjectResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Bridge owns capture-side state for one session.
type Bridge struct {
	cfg       config.CaptureConfig
	captureID string
	submit    *resty.Client
	fetcher   *retryablehttp.Client
	events    *Emitter
	log       *logging.Logger

	mu         sync.Mutex
	seenPopups map[string]bool
}

// New builds a bridge for the session's capture id.
func New(cfg config.CaptureConfig, captureID string, log *logging.Logger) *Bridge {
	if log == nil {
		log = logging.NewNop()
	}

	fetcher := retryablehttp.NewClient()
	fetcher.RetryMax = 3
	fetcher.RetryWaitMin = 500 * time.Millisecond
	fetcher.RetryWaitMax = 5 * time.Second
	fetcher.Logger = nil

	return &Bridge{
		cfg:        cfg,
		captureID:  captureID,
		submit:     resty.New().SetTimeout(30 * time.Second),
		fetcher:    fetcher,
		events:     NewEmitter(),
		log:        log,
		seenPopups: make(map[string]bool),
	}
}

// Events exposes the bridge's event surface to the workflow.
func (b *Bridge) Events() *Emitter {
	return b.events
}

// Submit is the host side of __submitCapture: POST the body to the target URL
// with JSON content type, return the response text, and emit the derived
// events before returning.
func (b *Bridge) Submit(ctx context.Context, targetURL, body string) (string, error) {
	resp, err := b.submit.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(targetURL)
	if err != nil {
		b.log.Warn("capture submit failed", zap.String("url", targetURL), zap.Error(err))
		return "", fmt.Errorf("capture submit: %w", err)
	}

	text := string(resp.Body())
	b.events.Emit(EventSubmitted, text)
	b.parseSubmission(text)
	return text, nil
}

// parseSubmission best-effort extracts claimUrl and nextCaptureId from the
// upstream response. Non-JSON bodies are scanned for the first figma.com URL.
func (b *Bridge) parseSubmission(text string) {
	var parsed struct {
		ClaimURL      string `json:"claimUrl"`
		NextCaptureID string `json:"nextCaptureId"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		if parsed.ClaimURL != "" {
			b.events.Emit(EventClaimURL, parsed.ClaimURL)
		}
		if parsed.NextCaptureID != "" {
			b.events.Emit(EventNextID, parsed.NextCaptureID)
		}
		return
	}
	if match := figmaURLRe.FindString(text); match != "" {
		b.events.Emit(EventClaimURL, match)
	}
}

// ObservePopup is called by the browser runtime for every new target URL and
// every subsequent main-frame navigation. Each figma.com URL fires once.
func (b *Bridge) ObservePopup(url string) {
	if url == "" || url == "about:blank" {
		return
	}
	if !strings.Contains(url, "figma.com") {
		return
	}
	b.mu.Lock()
	seen := b.seenPopups[url]
	b.seenPopups[url] = true
	b.mu.Unlock()
	if seen {
		return
	}
	b.log.Info("figma popup detected", zap.String("url", url))
	b.events.Emit(EventFigmaURL, url)
}

// InjectToolbar performs the user-triggered stage: fetch the capture script,
// evaluate it in the page, give it a second to initialise, install the fetch
// interposer, and kick off the capture. In-page failures past the fetch are
// the toolbar's own problem and never disturb the page.
func (b *Bridge) InjectToolbar(ctx context.Context, page Page) InjectResult {
	script, err := b.fetchScript(ctx)
	if err != nil {
		b.log.Warn("capture script fetch failed", zap.Error(err))
		return InjectResult{Success: false, Error: fmt.Sprintf("script fetch failed: %v", err)}
	}

	if err := page.Evaluate(ctx, script); err != nil {
		return InjectResult{Success: false, Error: fmt.Sprintf("script injection failed: %v", err)}
	}

	// The toolbar registers its API asynchronously after evaluation; the
	// one-second pause is empirical.
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return InjectResult{Success: false, Error: ctx.Err().Error()}
	}

	if err := page.Evaluate(ctx, interposerJS); err != nil {
		return InjectResult{Success: false, Error: fmt.Sprintf("fetch interposer failed: %v", err)}
	}

	if err := page.Evaluate(ctx, b.invokeScript()); err != nil {
		b.log.Warn("captureForDesign invocation failed", zap.Error(err))
	}

	b.log.Info("capture toolbar injected", zap.String("captureId", b.captureID))
	return InjectResult{Success: true}
}

func (b *Bridge) fetchScript(ctx context.Context) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", b.cfg.ScriptURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.fetcher.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("%s returned status %d", b.cfg.ScriptURL, resp.StatusCode)
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// invokeScript renders the fire-and-forget captureForDesign call. Failures are
// swallowed in-page; the toolbar UI reports its own errors.
func (b *Bridge) invokeScript() string {
	return fmt.Sprintf(`(function () {
  try {
    var p = window.captureForDesign({ captureId: %q, endpoint: %q, selector: 'body' });
    if (p && typeof p.catch === 'function') { p.catch(function () {}); }
  } catch (e) {}
})();`, b.captureID, b.cfg.SubmitEndpoint(b.captureID))
}
