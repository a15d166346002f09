package testutil

import (
	"context"
	"sync"

	"github.com/vendorgraph/vendorgraph/internal/types"
	webhookPublisher "github.com/vendorgraph/vendorgraph/internal/webhook/publisher"
)

// InMemoryWebhookPublisher captures published webhook events for assertions
type InMemoryWebhookPublisher struct {
	mu     sync.RWMutex
	events []*types.WebhookEvent
}

var _ webhookPublisher.WebhookPublisher = (*InMemoryWebhookPublisher)(nil)

func NewInMemoryWebhookPublisher() *InMemoryWebhookPublisher {
	return &InMemoryWebhookPublisher{}
}

func (p *InMemoryWebhookPublisher) PublishWebhook(ctx context.Context, event *types.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryWebhookPublisher) Close() error {
	return nil
}

// Events returns the captured events in publish order
func (p *InMemoryWebhookPublisher) Events() []*types.WebhookEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.WebhookEvent, len(p.events))
	copy(out, p.events)
	return out
}

// EventsByName filters the captured events by event name
func (p *InMemoryWebhookPublisher) EventsByName(name string) []*types.WebhookEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*types.WebhookEvent
	for _, e := range p.events {
		if e.EventName == name {
			out = append(out, e)
		}
	}
	return out
}

func (p *InMemoryWebhookPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
