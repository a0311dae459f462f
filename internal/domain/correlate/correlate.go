// Package correlate tracks which query context is currently relevant, from
// observed API requests and from page navigation.
package correlate

import (
	"context"
	"sync"
	"time"

	"github.com/okian/saberlens/internal/domain/model"
	"github.com/okian/saberlens/pkg/logger"
	"github.com/okian/saberlens/pkg/metrics"
)

const defaultNavigationDelay = time.Second

// Trigger is called when a navigation settles on a context that has not
// been enriched yet.
type Trigger func(ctx context.Context, qc model.QueryContext)

// Correlator holds the current location and the last context requested or
// triggered. It is safe for concurrent use.
type Correlator struct {
	ctx     context.Context
	delay   time.Duration
	trigger Trigger
	logger  logger.Logger

	mu          sync.Mutex
	location    model.QueryContext
	hasLocation bool
	last        model.QueryContext
	hasLast     bool
	timer       *time.Timer
}

// New creates a Correlator. ctx bounds the lifetime of triggered work.
func New(ctx context.Context, opts ...Option) *Correlator {
	c := &Correlator{
		ctx:     ctx,
		delay:   defaultNavigationDelay,
		trigger: func(context.Context, model.QueryContext) {},
		logger:  logger.Get().Named("correlate"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ObserveRequest records the context of an outgoing scores API request.
func (c *Correlator) ObserveRequest(rawURL string) (model.QueryContext, bool) {
	qc, ok := ParseAPIURL(rawURL)
	if !ok {
		return qc, false
	}

	c.mu.Lock()
	c.last, c.hasLast = qc, true
	c.mu.Unlock()

	metrics.RecordPayloadObserved("request")
	return qc, true
}

// ObserveNavigation records a location change and arms the settle timer.
// Repeated navigations within the delay restart the timer; when it fires,
// the trigger runs only if the location differs from the last context.
func (c *Correlator) ObserveNavigation(rawURL string) (model.QueryContext, bool) {
	qc, ok := ParseSiteURL(rawURL)
	if !ok {
		return qc, false
	}

	c.mu.Lock()
	c.location, c.hasLocation = qc, true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.fire)
	c.mu.Unlock()

	metrics.RecordPayloadObserved("navigation")
	return qc, true
}

func (c *Correlator) fire() {
	c.mu.Lock()
	qc := c.location
	if c.hasLast && c.last == qc {
		c.mu.Unlock()
		metrics.RecordNavigationTrigger("suppressed")
		c.logger.Debug(c.ctx, "navigation settled on current context", logger.String("context", qc.Key()))
		return
	}
	c.last, c.hasLast = qc, true
	c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	metrics.RecordNavigationTrigger("fired")
	c.logger.Debug(c.ctx, "navigation trigger", logger.String("context", qc.Key()))
	c.trigger(c.ctx, qc)
}

// Active returns the context results should be surfaced for: the current
// location, or the last requested context before any navigation.
func (c *Correlator) Active() (model.QueryContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasLocation {
		return c.location, true
	}
	return c.last, c.hasLast
}

// IsActive reports whether qc is the active context.
func (c *Correlator) IsActive(qc model.QueryContext) bool {
	active, ok := c.Active()
	return ok && active == qc
}

// Last returns the last requested or triggered context.
func (c *Correlator) Last() (model.QueryContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.hasLast
}

// Close stops a pending navigation timer.
func (c *Correlator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
}
