// Package browser opens the EAS dashboard in Chrome and watches its network
// traffic. GraphQL responses are fed to the interceptor registry, and every
// discovered build gets export buttons next to the page's "Install" control.
// Clicks are handled in Go by the action runner.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"easlog/src/actions"
	"easlog/src/intercept"
	"easlog/src/logger"
	"easlog/src/provider"
)

// RunFunc executes one action for a build.
type RunFunc func(ctx context.Context, rec *provider.BuildRecord, kind actions.Kind) (*actions.Result, error)

// Options configure the browser.
type Options struct {
	// ProfileDir is Chrome's user data directory. Reusing it keeps the
	// dashboard session between runs.
	ProfileDir string
	// Headless hides the window. The dashboard needs a signed-in session,
	// so this is mostly useful with a prepared profile.
	Headless bool
}

// Watcher drives one Chrome tab.
type Watcher struct {
	registry *intercept.Registry
	run      RunFunc
	logger   logger.Logger
	opts     Options

	mu      sync.Mutex
	tabCtx  context.Context
	pending map[network.RequestID]string
	builds  map[string]*provider.BuildRecord
	latest  string
	closed  bool

	wg sync.WaitGroup
}

// NewWatcher creates a watcher. Records are taken from registry, so every
// other subscriber sees the builds the page loads too.
func NewWatcher(registry *intercept.Registry, run RunFunc, log logger.Logger, opts Options) *Watcher {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Watcher{
		registry: registry,
		run:      run,
		logger:   log,
		opts:     opts,
		pending:  make(map[network.RequestID]string),
		builds:   make(map[string]*provider.BuildRecord),
	}
}

// Run opens pageURL and blocks until ctx is cancelled or the browser exits.
func (w *Watcher) Run(ctx context.Context, pageURL string) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", w.opts.Headless),
	)
	if w.opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(w.opts.ProfileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		w.logger.Debug("[Browser] "+format, args...)
	}))
	defer tabCancel()

	w.mu.Lock()
	w.tabCtx = tabCtx
	w.mu.Unlock()

	unsubscribe := w.registry.Subscribe(w.onBuild)
	defer unsubscribe()

	chromedp.ListenTarget(tabCtx, w.handleEvent)

	if err := chromedp.Run(tabCtx,
		network.Enable(),
		runtime.AddBinding(BindingName),
		chromedp.Navigate(pageURL),
	); err != nil {
		return fmt.Errorf("failed to open %s: %w", pageURL, err)
	}
	w.logger.Info("[Browser] Watching %s", pageURL)

	<-tabCtx.Done()
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil
	}
	return errors.New("browser closed")
}

// handleEvent runs on chromedp's event goroutine; anything that talks back
// to the browser is moved to its own goroutine.
func (w *Watcher) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *network.EventResponseReceived:
		w.noteResponse(ev.RequestID, ev.Response.URL)

	case *network.EventLoadingFinished:
		if url, ok := w.finished(ev.RequestID); ok {
			w.goTab(func(ctx context.Context) { w.captureBody(ctx, ev.RequestID, url) })
		}

	case *network.EventLoadingFailed:
		w.finished(ev.RequestID)

	case *runtime.EventBindingCalled:
		if ev.Name != BindingName {
			return
		}
		payload := ev.Payload
		w.goTab(func(ctx context.Context) { w.click(ctx, payload) })
	}
}

// noteResponse remembers responses from the build endpoint until their body
// has fully arrived.
func (w *Watcher) noteResponse(id network.RequestID, url string) {
	if !w.registry.Matches(url) {
		return
	}
	w.mu.Lock()
	w.pending[id] = url
	w.mu.Unlock()
}

// finished forgets a request and reports whether it was tracked.
func (w *Watcher) finished(id network.RequestID) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	url, ok := w.pending[id]
	delete(w.pending, id)
	return url, ok
}

// goTab runs fn against the tab on a tracked goroutine. It is a no-op
// before Run opens the tab and once Run has started waiting for shutdown.
func (w *Watcher) goTab(fn func(ctx context.Context)) {
	w.mu.Lock()
	ctx := w.tabCtx
	if ctx == nil || w.closed || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	go func() {
		defer w.wg.Done()
		fn(ctx)
	}()
}

func (w *Watcher) captureBody(ctx context.Context, id network.RequestID, url string) {
	var body []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		w.logger.Debug("[Browser] Response body for %s unavailable: %v", url, err)
		return
	}
	w.registry.Observe(url, body)
}

// onBuild is the registry subscriber.
func (w *Watcher) onBuild(rec *provider.BuildRecord) {
	w.mu.Lock()
	w.builds[rec.ID] = rec
	w.latest = rec.ID
	w.mu.Unlock()

	w.goTab(func(ctx context.Context) { w.inject(ctx, rec) })
}

func (w *Watcher) inject(ctx context.Context, rec *provider.BuildRecord) {
	w.mu.Lock()
	stale := w.latest != rec.ID
	w.mu.Unlock()
	if stale {
		return
	}

	var placed bool
	if err := chromedp.Run(ctx, chromedp.Evaluate(InjectScript(rec), &placed)); err != nil {
		w.logger.Error("[Browser] Failed to add buttons for build %s: %v", rec.ID, err)
		return
	}
	if !placed {
		w.logger.Error("[Browser] Build %s: %v", rec.ID, actions.ErrAnchorMissing)
		return
	}
	w.logger.Info("[Browser] Added %d buttons for build %s", len(actions.For(rec)), rec.ID)
}

func (w *Watcher) click(ctx context.Context, payload string) {
	c, kind, err := ParseClick(payload)
	if err != nil {
		w.logger.Error("[Browser] %v", err)
		return
	}

	w.mu.Lock()
	rec := w.builds[c.Build]
	w.mu.Unlock()
	if rec == nil {
		w.logger.Error("[Browser] Click for unknown build %s", c.Build)
		return
	}

	w.status(ctx, rec.ID, kind, "Saving...", false)
	res, err := w.run(ctx, rec, kind)
	switch {
	case err != nil:
		w.status(ctx, rec.ID, kind, err.Error(), true)
	case res != nil:
		w.status(ctx, rec.ID, kind, "Saved to "+res.Path, false)
	}
}

func (w *Watcher) status(ctx context.Context, buildID string, kind actions.Kind, text string, failed bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := chromedp.Run(ctx, chromedp.Evaluate(StatusScript(buildID, kind, text, failed), nil)); err != nil {
		w.logger.Debug("[Browser] Failed to update button: %v", err)
	}
}
