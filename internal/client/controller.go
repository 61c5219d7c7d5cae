package client

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"

	"github.com/awidyan/homeboard/internal/models"
)

// State is the controller's sync state.
type State int

const (
	// StateLoading is the initial blocking load.
	StateLoading State = iota
	// StateSynced means local state matches the last known server state.
	StateSynced
	// StateSyncing means a push is in flight.
	StateSyncing
	// StateOffline means the last network operation failed; local state is
	// served from the best available copy and operations retry on the next
	// cycle.
	StateOffline
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSynced:
		return "synced"
	case StateSyncing:
		return "syncing"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Options tunes the controller's timers and fallback cache.
type Options struct {
	// DebounceWindow coalesces rapid successive edits into one write.
	DebounceWindow time.Duration
	// PollInterval is the background change-detection cadence.
	PollInterval time.Duration
	// FallbackPath, when set, is a local cache of the last good document
	// used when the server is unreachable at startup.
	FallbackPath string
}

const (
	defaultDebounceWindow = 500 * time.Millisecond
	defaultPollInterval   = 5 * time.Second
)

// Controller reconciles optimistic local edits with the
// server-authoritative document. Edits are applied in memory immediately
// and pushed after a debounce window; a background poll pulls foreign
// changes. Last writer wins: an unpushed local edit can be overwritten by
// a pull, which is the accepted behavior, not a defect.
//
// All document access is serialized by one mutex; the debounce and poll
// timers live on a single run goroutine, so a push in flight inherently
// suppresses poll-triggered pulls.
type Controller struct {
	api  *API
	opts Options

	mu     sync.Mutex
	doc    *models.Dashboard
	marker int64
	state  State
	dirty  bool
	gen    uint64

	edits chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

// NewController creates a controller for the given API. Zero option fields
// get the defaults (500ms debounce, 5s poll).
func NewController(api *API, opts Options) *Controller {
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = defaultDebounceWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Controller{
		api:   api,
		opts:  opts,
		state: StateLoading,
		edits: make(chan struct{}, 1),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start performs the blocking initial load and launches the debounce/poll
// loop. When the server is unreachable it falls back to the local cache
// copy (if any) and starts in StateOffline, still rendering with
// best-available data.
func (c *Controller) Start(ctx context.Context) error {
	doc, marker, err := c.api.FetchConfig(ctx)
	if err != nil {
		log.Printf("initial load failed, trying local fallback: %v", err)
		fallback := c.readFallback()
		if fallback == nil {
			fallback = models.DefaultDashboard()
		}
		c.mu.Lock()
		c.doc = fallback
		c.state = StateOffline
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.doc = doc
		c.marker = marker
		c.state = StateSynced
		c.mu.Unlock()
		c.writeFallback(doc)
	}

	go c.run()
	return nil
}

// Stop flushes a pending edit if one is waiting and terminates the loop.
func (c *Controller) Stop() {
	close(c.stop)
	<-c.done
}

// Apply runs a mutation against the in-memory document immediately
// (optimistic), stamps lastModified, and schedules a debounced push.
func (c *Controller) Apply(mutate func(*models.Dashboard)) {
	c.mu.Lock()
	mutate(c.doc)
	c.doc.Metadata.LastModified = time.Now().UTC().Format(time.RFC3339)
	c.dirty = true
	c.gen++
	c.mu.Unlock()

	select {
	case c.edits <- struct{}{}:
	default:
	}
}

// Snapshot returns a deep copy of the current document.
func (c *Controller) Snapshot() *models.Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyDoc(c.doc)
}

// State returns the current sync state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Marker returns the last server marker this controller observed.
func (c *Controller) Marker() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marker
}

// run is the controller's single event loop: every edit arms the debounce
// timer, the timer firing drains the queued edits into one push, and the
// poll ticker checks for foreign changes when nothing is being pushed.
func (c *Controller) run() {
	defer close(c.done)

	debounce := time.NewTimer(c.opts.DebounceWindow)
	if !debounce.Stop() {
		<-debounce.C
	}

	poll := time.NewTicker(c.opts.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-c.edits:
			// A newer edit supersedes the pending timer.
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(c.opts.DebounceWindow)

		case <-debounce.C:
			c.push()

		case <-poll.C:
			c.mu.Lock()
			dirty := c.dirty
			c.mu.Unlock()
			if dirty {
				// A failed push retries here rather than waiting for the
				// next edit.
				c.push()
				continue
			}
			c.poll()

		case <-c.stop:
			c.mu.Lock()
			dirty := c.dirty
			c.mu.Unlock()
			if dirty {
				c.push()
			}
			return
		}
	}
}

func (c *Controller) push() {
	c.mu.Lock()
	snapshot := copyDoc(c.doc)
	gen := c.gen
	c.state = StateSyncing
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	marker, err := c.api.SaveConfig(ctx, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		log.Printf("push failed, staying offline until next cycle: %v", err)
		c.state = StateOffline
		return
	}

	c.marker = marker
	if c.gen == gen {
		c.dirty = false
	}
	c.state = StateSynced
	c.writeFallback(snapshot)
}

func (c *Controller) poll() {
	c.mu.Lock()
	since := c.marker
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	changed, marker, err := c.api.CheckChanges(ctx, since)
	if err != nil {
		c.mu.Lock()
		c.state = StateOffline
		c.mu.Unlock()
		return
	}

	if !changed {
		c.mu.Lock()
		if c.state == StateOffline {
			c.state = StateSynced
		}
		c.mu.Unlock()
		return
	}

	doc, fetchedMarker, err := c.api.FetchConfig(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateOffline
		c.mu.Unlock()
		return
	}

	// Replace wholesale: the server is authoritative and last writer wins.
	c.mu.Lock()
	c.doc = doc
	c.marker = fetchedMarker
	if c.marker < marker {
		c.marker = marker
	}
	c.dirty = false
	c.state = StateSynced
	c.mu.Unlock()
	c.writeFallback(doc)
}

func (c *Controller) readFallback() *models.Dashboard {
	if c.opts.FallbackPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.opts.FallbackPath)
	if err != nil {
		return nil
	}
	doc := models.DefaultDashboard()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil
	}
	return doc
}

func (c *Controller) writeFallback(doc *models.Dashboard) {
	if c.opts.FallbackPath == "" {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.opts.FallbackPath, data, 0640); err != nil {
		log.Printf("failed to write fallback cache: %v", err)
	}
}

func copyDoc(doc *models.Dashboard) *models.Dashboard {
	if doc == nil {
		return nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return doc
	}
	clone := &models.Dashboard{}
	if err := json.Unmarshal(data, clone); err != nil {
		return doc
	}
	return clone
}
