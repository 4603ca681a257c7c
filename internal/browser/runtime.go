// Package browser owns the headed Chrome instance and the page-to-host call
// plumbing the wallet provider and capture bridge ride on.
package browser

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/openclaw/walletbridge/internal/config"
	"github.com/openclaw/walletbridge/internal/logging"
)

// Runtime launches and owns one headed browser session.
type Runtime struct {
	cfg config.BrowserConfig
	log *logging.Logger

	handlers map[string]Handler
	onPopup  func(url string)

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	selfTarget  target.ID

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates an unstarted runtime.
func New(cfg config.BrowserConfig, log *logging.Logger) *Runtime {
	if log == nil {
		log = logging.NewNop()
	}
	return &Runtime{
		cfg:      cfg,
		log:      log,
		handlers: make(map[string]Handler),
		closed:   make(chan struct{}),
	}
}

// RegisterFunction exposes a host function to every page in the session.
// All registrations must happen before Start.
func (r *Runtime) RegisterFunction(name string, h Handler) {
	r.handlers[name] = h
}

// OnPopup installs the observer for new-target URLs, including their later
// navigations. Must be set before Start.
func (r *Runtime) OnPopup(fn func(url string)) {
	r.onPopup = fn
}

// Done closes when the browser is gone, whether the user closed the window or
// the host called Close.
func (r *Runtime) Done() <-chan struct{} {
	return r.closed
}

// Start launches the headed browser, wires bindings, popup observation, and
// the pre-document script, then opens the target URL. The init script applies
// to the session's pages and their subframes before any page script runs.
func (r *Runtime) Start(ctx context.Context, initScript, targetURL string) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.WindowSize(r.cfg.Width, r.cfg.Height),
	)
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}

	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	r.ctx, r.cancel = chromedp.NewContext(r.allocCtx)

	// Bring the browser and its first tab up before touching the target.
	if err := chromedp.Run(r.ctx); err != nil {
		r.Close()
		return fmt.Errorf("browser launch: %w", err)
	}

	if c := chromedp.FromContext(r.ctx); c != nil && c.Target != nil {
		r.selfTarget = c.Target.TargetID
	}

	// Host-callable surfaces and the popup observer are in place before the
	// first navigation, so no page ever races them.
	chromedp.ListenTarget(r.ctx, func(ev any) {
		if bc, ok := ev.(*cdpruntime.EventBindingCalled); ok {
			r.onBindingCalled(bc)
		}
	})
	chromedp.ListenBrowser(r.ctx, r.onBrowserEvent)

	err := chromedp.Run(r.ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return cdpruntime.AddBinding(dispatchBinding).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			script := shimScript(r.handlerNames()) + "\n" + initScript
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return target.SetDiscoverTargets(true).Do(ctx)
		}),
	)
	if err != nil {
		r.Close()
		return fmt.Errorf("browser setup: %w", err)
	}

	r.log.Info("opening page", zap.String("url", targetURL))
	if err := chromedp.Run(r.ctx, chromedp.Navigate(targetURL)); err != nil {
		r.Close()
		return fmt.Errorf("navigate: %w", err)
	}

	// The tab context ends when the user closes the window; turn that into
	// the session's terminal signal.
	go func() {
		<-r.ctx.Done()
		r.closeOnce.Do(func() { close(r.closed) })
	}()

	return nil
}

// Evaluate runs a script in the current page, surfacing in-page exceptions.
func (r *Runtime) Evaluate(ctx context.Context, script string) error {
	if r.ctx == nil {
		return fmt.Errorf("browser not started")
	}
	return chromedp.Run(r.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exception, err := cdpruntime.Evaluate(script).Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return exception
		}
		return nil
	}))
}

// Close tears the browser down. Idempotent; also fired by user window close.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
	if r.cancel != nil {
		r.cancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
}

// onBrowserEvent watches target lifecycle events for popups. Both creation and
// later navigations are reported; the observer filters what it cares about.
func (r *Runtime) onBrowserEvent(ev any) {
	if r.onPopup == nil {
		return
	}
	var info *target.Info
	switch e := ev.(type) {
	case *target.EventTargetCreated:
		info = e.TargetInfo
	case *target.EventTargetInfoChanged:
		info = e.TargetInfo
	default:
		return
	}
	if info == nil || info.Type != "page" || info.TargetID == r.selfTarget {
		return
	}
	r.onPopup(info.URL)
}

func (r *Runtime) handlerNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
