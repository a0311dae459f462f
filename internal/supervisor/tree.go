// Package supervisor runs the long-lived services under a suture tree.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/okian/saberlens/pkg/logger"
)

const (
	defaultFailureThreshold = 5.0
	defaultFailureDecay     = 30.0
	defaultFailureBackoff   = 15 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
)

// Tree is a root supervisor with a messaging layer (the stream hub) and an
// API layer (the HTTP server). A crash in one layer restarts only that layer.
type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	logger    logger.Logger
}

// NewTree creates the supervisor tree.
func NewTree(opts ...Option) *Tree {
	t := &Tree{logger: logger.Get().Named("supervisor")}
	cfg := config{
		failureThreshold: defaultFailureThreshold,
		failureDecay:     defaultFailureDecay,
		failureBackoff:   defaultFailureBackoff,
		shutdownTimeout:  defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(t, &cfg)
	}

	child := suture.Spec{
		FailureThreshold: cfg.failureThreshold,
		FailureDecay:     cfg.failureDecay,
		FailureBackoff:   cfg.failureBackoff,
		Timeout:          cfg.shutdownTimeout,
	}
	root := child
	root.EventHook = t.onEvent

	t.root = suture.New("saberlens", root)
	t.messaging = suture.New("messaging-layer", child)
	t.api = suture.New("api-layer", child)
	t.root.Add(t.messaging)
	t.root.Add(t.api)
	return t
}

// AddMessagingService adds a service to the messaging layer.
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds a service to the API layer.
func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is done.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel yields the
// result of Serve.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

func (t *Tree) onEvent(e suture.Event) {
	ctx := context.Background()
	switch e.Type() {
	case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
		t.logger.Error(ctx, e.String(), logger.Any("event", e.Map()))
	case suture.EventTypeBackoff, suture.EventTypeStopTimeout:
		t.logger.Warn(ctx, e.String(), logger.Any("event", e.Map()))
	default:
		t.logger.Info(ctx, e.String(), logger.Any("event", e.Map()))
	}
}
