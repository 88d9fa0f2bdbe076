// Package browser manages a pool of headless browser instances used to
// render pages for the crawl engine. Callers Acquire a Permit, use its
// Page, and Release it back to the pool; the pool resizes itself on a
// background timer to track demand.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"github.com/cdoc/crawldoc/internal/config"
)

// instance wraps one launched browser process.
type instance struct {
	id      int
	browser *rod.Browser
	launch  *launcher.Launcher
}

// Permit is a scoped capability to use one browser instance; it must be
// released exactly once, typically via a deferred Release.
type Permit struct {
	pool     *Pool
	instance *instance
	released bool
}

// Browser returns the underlying rod.Browser for the permit's instance.
func (p *Permit) Browser() *rod.Browser {
	return p.instance.browser
}

// Page opens a new page on the permit's browser instance. When stealth mode
// is configured, the page is created with anti-fingerprinting scripts
// injected via go-rod/stealth.
func (p *Permit) Page() (*rod.Page, error) {
	if p.pool.cfg.StealthMode() {
		return stealth.Page(p.instance.browser)
	}
	return p.instance.browser.Page(proto.TargetCreateTarget{})
}

// Release returns the instance to the pool, or destroys it if the pool is
// presently over its target size.
func (p *Permit) Release() {
	if p.released {
		return
	}
	p.released = true
	p.pool.release(p.instance)
}

// Pool manages a dynamically-sized set of browser instances.
type Pool struct {
	cfg config.Config

	mu        sync.Mutex
	instances []*instance
	inUse     int
	nextID    int
	closed    bool

	available chan *instance

	stopResize chan struct{}
	resizeDone chan struct{}
}

// NewPool constructs an unstarted pool. Call Start to launch the minimum
// number of instances and begin the background resize loop.
func NewPool(cfg config.Config) *Pool {
	maxSize := cfg.BrowserPoolMaxSize()
	if maxSize < 1 {
		maxSize = 1
	}
	return &Pool{
		cfg:        cfg,
		available:  make(chan *instance, maxSize),
		stopResize: make(chan struct{}),
		resizeDone: make(chan struct{}),
	}
}

// Start launches the configured minimum number of instances and begins the
// periodic resize loop.
func (p *Pool) Start() error {
	minSize := p.cfg.BrowserPoolMinSize()
	if minSize < 1 {
		minSize = 1
	}
	for i := 0; i < minSize; i++ {
		inst, err := p.launch()
		if err != nil {
			return fmt.Errorf("launch initial browser instance: %w", err)
		}
		p.mu.Lock()
		p.instances = append(p.instances, inst)
		p.mu.Unlock()
		p.available <- inst
	}

	interval := p.cfg.BrowserPoolResizeInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	go p.resizeLoop(interval)
	return nil
}

func (p *Pool) launch() (*instance, error) {
	l := launcher.New().Headless(p.cfg.Headless())
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.mu.Unlock()

	log.Debug().Int("instance", id).Msg("browser pool: launched instance")
	return &instance{id: id, browser: b, launch: l}, nil
}

// Acquire blocks until a browser instance is available, launching a new one
// if the pool is under its max size and none are idle.
func (p *Pool) Acquire(ctx context.Context) (*Permit, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("browser pool is closed")
	}
	p.mu.Unlock()

	select {
	case inst := <-p.available:
		p.mu.Lock()
		p.inUse++
		p.mu.Unlock()
		return &Permit{pool: p, instance: inst}, nil
	default:
	}

	p.mu.Lock()
	currentSize := len(p.instances)
	maxSize := p.cfg.BrowserPoolMaxSize()
	if maxSize < 1 {
		maxSize = 1
	}
	p.mu.Unlock()

	if currentSize < maxSize {
		inst, err := p.launch()
		if err != nil {
			log.Error().Err(err).Msg("browser pool: failed to launch on demand, waiting for a release instead")
		} else {
			p.mu.Lock()
			p.instances = append(p.instances, inst)
			p.inUse++
			p.mu.Unlock()
			return &Permit{pool: p, instance: inst}, nil
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case inst := <-p.available:
		p.mu.Lock()
		p.inUse++
		p.mu.Unlock()
		return &Permit{pool: p, instance: inst}, nil
	}
}

func (p *Pool) release(inst *instance) {
	p.mu.Lock()
	p.inUse--
	target := p.targetSizeLocked()
	currentSize := len(p.instances)
	over := currentSize > target
	if over {
		p.removeLocked(inst)
	}
	p.mu.Unlock()

	if over {
		p.closeInstance(inst)
		return
	}

	select {
	case p.available <- inst:
	default:
		// available buffer is sized to max instances, so this should not
		// happen; destroy defensively rather than leak.
		p.mu.Lock()
		p.removeLocked(inst)
		p.mu.Unlock()
		p.closeInstance(inst)
	}
}

// targetSizeLocked computes max(in_use + warm_spare, min_size), capped by
// max_size. Caller must hold p.mu.
func (p *Pool) targetSizeLocked() int {
	minSize := p.cfg.BrowserPoolMinSize()
	if minSize < 1 {
		minSize = 1
	}
	maxSize := p.cfg.BrowserPoolMaxSize()
	if maxSize < minSize {
		maxSize = minSize
	}
	warmSpare := p.cfg.BrowserPoolWarmSpare()

	target := p.inUse + warmSpare
	if target < minSize {
		target = minSize
	}
	if target > maxSize {
		target = maxSize
	}
	return target
}

func (p *Pool) removeLocked(inst *instance) {
	for i, existing := range p.instances {
		if existing == inst {
			p.instances = append(p.instances[:i], p.instances[i+1:]...)
			return
		}
	}
}

func (p *Pool) closeInstance(inst *instance) {
	if err := inst.browser.Close(); err != nil {
		log.Warn().Err(err).Int("instance", inst.id).Msg("browser pool: error closing instance")
	}
	if inst.launch != nil {
		inst.launch.Cleanup()
	}
}

func (p *Pool) resizeLoop(interval time.Duration) {
	defer close(p.resizeDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stopResize:
			return
		case <-ticker.C:
			p.resizeOnce()
		}
	}
}

func (p *Pool) resizeOnce() {
	p.mu.Lock()
	target := p.targetSizeLocked()
	currentSize := len(p.instances)
	toLaunch := target - currentSize
	p.mu.Unlock()

	for i := 0; i < toLaunch; i++ {
		inst, err := p.launch()
		if err != nil {
			log.Warn().Err(err).Msg("browser pool: background resize failed to launch instance")
			return
		}
		p.mu.Lock()
		p.instances = append(p.instances, inst)
		p.mu.Unlock()
		p.available <- inst
	}
}

// CurrentSize reports how many instances the pool currently holds.
func (p *Pool) CurrentSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}

// InUse reports how many instances are currently checked out.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Close terminates idle instances immediately, then waits up to grace for
// in-use instances to be released before forcing termination of whatever
// remains.
func (p *Pool) Close(grace time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stopResize)
	<-p.resizeDone

	deadline := time.Now().Add(grace)
	for {
		p.mu.Lock()
		remaining := p.inUse
		p.mu.Unlock()
		if remaining == 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	p.mu.Lock()
	instances := p.instances
	p.instances = nil
	p.mu.Unlock()

	for _, inst := range instances {
		p.closeInstance(inst)
	}
	return nil
}
