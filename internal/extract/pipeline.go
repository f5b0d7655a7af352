// Package extract runs perspective extraction off the interaction goroutine
// and hands back generation-tagged results.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"textractor/internal/warp"
	"textractor/pkg/geometry"
)

// DefaultPreviewSize is the preview raster's maximum dimension.
const DefaultPreviewSize = 500

// ErrExtraction wraps every failure reported by the pipeline.
var ErrExtraction = errors.New("extraction failed")

// Warper is a perspective warp engine. Orient applies the flip and rotate
// options to a delivered texture and must not modify img.
type Warper interface {
	Name() string
	Warp(ctx context.Context, src image.Image, quad geometry.Quad, w, h int) (*image.RGBA, error)
	Preview(img *image.RGBA, maxDim int) (*image.RGBA, error)
	Orient(img *image.RGBA, opts warp.Options) (*image.RGBA, error)
}

// Request describes one extraction.
type Request struct {
	Source     *image.RGBA
	Quad       geometry.Quad
	Ratio      float64
	Resolution Resolution
	// MaxDim caps the derived size; zero uses the source's longer side.
	MaxDim int
	// PreviewSize caps the preview; zero uses DefaultPreviewSize.
	PreviewSize int
}

// Texture is an extracted raster and its preview. Both are owned by the
// receiver once delivered.
type Texture struct {
	Full    *image.RGBA
	Preview *image.RGBA
}

// Size returns the full raster's dimensions.
func (t *Texture) Size() (int, int) {
	if t == nil || t.Full == nil {
		return 0, 0
	}
	b := t.Full.Bounds()
	return b.Dx(), b.Dy()
}

// Result is what a worker reports back: a texture or an error, tagged with
// the generation that produced it.
type Result struct {
	ID      uint64
	Texture *Texture
	Err     error
	Elapsed time.Duration
}

// Run performs a request synchronously.
func Run(ctx context.Context, w Warper, req Request) (*Texture, error) {
	if req.Source == nil {
		return nil, fmt.Errorf("%w: no source image", ErrExtraction)
	}
	for i, p := range req.Quad {
		if !p.IsFinite() {
			return nil, fmt.Errorf("%w: corner %d is not finite", ErrExtraction, i+1)
		}
	}

	maxDim := req.MaxDim
	if maxDim <= 0 {
		b := req.Source.Bounds()
		maxDim = max(b.Dx(), b.Dy())
	}
	width, height, err := OutputSize(req.Quad, req.Ratio, maxDim, req.Resolution)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	full, err := w.Warp(ctx, req.Source, req.Quad, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	previewSize := req.PreviewSize
	if previewSize <= 0 {
		previewSize = DefaultPreviewSize
	}
	preview, err := w.Preview(full, previewSize)
	if err != nil {
		return nil, fmt.Errorf("%w: preview: %w", ErrExtraction, err)
	}
	return &Texture{Full: full, Preview: preview}, nil
}

// Pipeline runs at most one current extraction. Starting a new one cancels
// the previous worker and bumps the generation; results from older
// generations are dropped by Poll.
type Pipeline struct {
	warper  Warper
	logger  *slog.Logger
	results chan Result

	mu      sync.Mutex
	gen     uint64
	pending bool
	cancel  context.CancelFunc
	closed  bool

	wg sync.WaitGroup
}

// New creates a pipeline using w. A nil logger discards output.
func New(w Warper, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		warper:  w,
		logger:  logger,
		results: make(chan Result, 8),
	}
}

// Engine returns the warp engine's name.
func (p *Pipeline) Engine() string {
	return p.warper.Name()
}

// Orient applies opts to img with the pipeline's engine.
func (p *Pipeline) Orient(img *image.RGBA, opts warp.Options) (*image.RGBA, error) {
	return p.warper.Orient(img, opts)
}

// Start launches a worker for req and returns its generation id. It never
// blocks on the worker.
func (p *Pipeline) Start(req Request) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	id := p.gen
	if p.closed {
		return id
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.pending = true

	p.wg.Add(1)
	go p.work(ctx, id, req)
	return id
}

func (p *Pipeline) work(ctx context.Context, id uint64, req Request) {
	defer p.wg.Done()
	start := time.Now()

	res := Result{ID: id}
	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Texture = nil
				res.Err = fmt.Errorf("%w: worker panic: %v", ErrExtraction, r)
			}
		}()
		res.Texture, res.Err = Run(ctx, p.warper, req)
	}()
	res.Elapsed = time.Since(start)

	select {
	case p.results <- res:
	case <-ctx.Done():
		p.logger.Debug("extraction superseded", "id", id, "elapsed", res.Elapsed)
	}
}

// Invalidate discards interest in any in-flight extraction.
func (p *Pipeline) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
	p.pending = false
}

// Pending reports whether the latest extraction has not been delivered yet.
func (p *Pipeline) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Poll returns the latest generation's result if it has arrived. It never
// blocks; stale results found in the channel are discarded.
func (p *Pipeline) Poll() (Result, bool) {
	var (
		latest Result
		found  bool
	)
	for {
		select {
		case res := <-p.results:
			if p.accept(res) {
				latest, found = res, true
			}
		default:
			return latest, found
		}
	}
}

func (p *Pipeline) accept(res Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if res.ID != p.gen {
		p.logger.Debug("discarding stale extraction", "id", res.ID, "latest", p.gen)
		return false
	}
	p.pending = false
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	return true
}

// Close cancels the in-flight worker and waits for it to exit.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.pending = false
	p.mu.Unlock()
	p.wg.Wait()
}
