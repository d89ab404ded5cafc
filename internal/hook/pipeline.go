// internal/hook/pipeline.go
//
// Lifecycle tags.
//
// Context
// -------
// Four global tags fire around every request, whatever the transport:
//
//	app_init → dispatch → app_begin → action_init → exec → app_end
//
// A tag may carry any number of handlers.  They run in registration order
// and each one returns before the next starts.  The first error stops the
// tag and, through the engine, the rest of the request.  A tag without
// handlers returns nil immediately.  Cancellation of ctx does not stop a
// tag; a handler that cares checks ctx itself.
//
// Registration
// ------------
// Modules register in init() through the package-level Register, the same
// way controllers register with controller.Register.  NewPipeline
// snapshots those registrations; the engine owns its Pipeline and may add
// more with Pipeline.Register.
package hook

import (
	"context"
	"fmt"
	"sync"

	"github.com/yanizio/conductor/internal/core"
)

// Tag names a lifecycle point.
type Tag string

const (
	AppInit    Tag = "app_init"
	AppBegin   Tag = "app_begin"
	ActionInit Tag = "action_init"
	AppEnd     Tag = "app_end"
)

// Tags lists the global tags in firing order.
var Tags = []Tag{AppInit, AppBegin, ActionInit, AppEnd}

// Handler runs at a tag.  It may block; the pipeline waits for it.
type Handler func(ctx context.Context, rc *core.Context) error

// Pipeline holds handlers per tag.  Safe for concurrent use.
type Pipeline struct {
	mu       sync.RWMutex
	handlers map[Tag][]Handler
}

var (
	regMu      sync.Mutex
	registered = map[Tag][]Handler{}
)

// Register adds h to the init()-time set picked up by NewPipeline.
func Register(tag Tag, h Handler) {
	regMu.Lock()
	registered[tag] = append(registered[tag], h)
	regMu.Unlock()
}

// NewPipeline returns a Pipeline seeded with package-level registrations.
func NewPipeline() *Pipeline {
	p := Empty()
	regMu.Lock()
	for tag, hs := range registered {
		p.handlers[tag] = append([]Handler(nil), hs...)
	}
	regMu.Unlock()
	return p
}

// Empty returns a Pipeline with no handlers.
func Empty() *Pipeline {
	return &Pipeline{handlers: map[Tag][]Handler{}}
}

// Register appends h to tag.
func (p *Pipeline) Register(tag Tag, h Handler) {
	p.mu.Lock()
	p.handlers[tag] = append(p.handlers[tag], h)
	p.mu.Unlock()
}

// Len reports how many handlers tag carries.
func (p *Pipeline) Len(tag Tag) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers[tag])
}

// Run executes tag's handlers in order and stops at the first error.
func (p *Pipeline) Run(ctx context.Context, tag Tag, rc *core.Context) error {
	p.mu.RLock()
	hs := p.handlers[tag]
	p.mu.RUnlock()

	for i, h := range hs {
		if err := h(ctx, rc); err != nil {
			return fmt.Errorf("tag %s handler %d: %w", tag, i, err)
		}
	}
	return nil
}
