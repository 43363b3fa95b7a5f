package scraper

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Page is one open browser tab
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	HTML(ctx context.Context) (string, error)
	ReplaceNames(ctx context.Context, mapping map[string]string, container string) ([]string, error)
	Names(ctx context.Context) ([]string, error)
	AddStyle(ctx context.Context, css string) error
	Screenshot(ctx context.Context, selector string) ([]byte, error)
	Close() error
}

type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

type ChromeOptions struct {
	ExecPath string
	Headless bool
	Width    int
	Height   int
}

// ChromeLauncher starts a fresh headless Chrome for every session
type ChromeLauncher struct {
	options ChromeOptions
	logger  *logrus.Logger
}

func NewChromeLauncher(options ChromeOptions, logger *logrus.Logger) *ChromeLauncher {
	return &ChromeLauncher{
		options: options,
		logger:  logger,
	}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(l.options.Width, l.options.Height),
		chromedp.Flag("headless", l.options.Headless),
	)
	if l.options.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.options.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(l.logger.Debugf),
		chromedp.WithErrorf(l.logger.Debugf),
	)

	// an empty run starts the browser so launch failures surface here
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("could not start browser: %w", err)
	}

	return &chromePage{
		ctx:     browserCtx,
		width:   int64(l.options.Width),
		height:  int64(l.options.Height),
		cancels: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}, nil
}

type chromePage struct {
	ctx     context.Context
	width   int64
	height  int64
	cancels []context.CancelFunc
}

// run executes actions in the tab, bounded by the caller's context
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx,
		chromedp.EmulateViewport(p.width, p.height),
		chromedp.Navigate(url),
	)
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string) error {
	return p.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var document string
	err := p.run(ctx, chromedp.OuterHTML("html", &document, chromedp.ByQuery))

	return document, err
}

func (p *chromePage) ReplaceNames(ctx context.Context, mapping map[string]string, container string) ([]string, error) {
	args, err := jsArgs(mapping, container)
	if err != nil {
		return nil, err
	}

	var names []string
	err = p.run(ctx, chromedp.Evaluate(fmt.Sprintf("(%s)(%s)", replaceNamesScript, args), &names))

	return names, err
}

func (p *chromePage) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := p.run(ctx, chromedp.Evaluate(labelNamesScript, &names))

	return names, err
}

func (p *chromePage) AddStyle(ctx context.Context, css string) error {
	args, err := jsArgs(css)
	if err != nil {
		return err
	}

	var added bool
	return p.run(ctx, chromedp.Evaluate(fmt.Sprintf("(%s)(%s)", addStyleScript, args), &added))
}

func (p *chromePage) Screenshot(ctx context.Context, selector string) ([]byte, error) {
	var image []byte
	err := p.run(ctx, chromedp.Screenshot(selector, &image, chromedp.NodeVisible, chromedp.ByQuery))

	return image, err
}

// Close shuts the browser down, safe to call more than once
func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil

	return err
}

// jsArgs encodes values as a JavaScript argument list
func jsArgs(values ...any) (string, error) {
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("could not encode script arguments: %w", err)
	}

	// strip the array brackets
	return string(encoded[1 : len(encoded)-1]), nil
}
