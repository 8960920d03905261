package pushworker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hray3182/taskreminder/internal/models"
)

// Navigation records one click outcome on a MemoryPlatform.
type Navigation struct {
	SubscriptionID string
	ClientID       string // empty when a new window was opened
	URL            string
}

// MemoryPlatform is an in-process Platform. It keeps at most one
// notification per (subscription, tag).
type MemoryPlatform struct {
	mu            sync.Mutex
	notifications map[string]map[string]NotificationIntent
	clients       map[string][]Client
	navigations   []Navigation
}

func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{
		notifications: make(map[string]map[string]NotificationIntent),
		clients:       make(map[string][]Client),
	}
}

func (p *MemoryPlatform) ShowNotification(ctx context.Context, sub *models.Subscription, n *NotificationIntent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	byTag, ok := p.notifications[sub.ID]
	if !ok {
		byTag = make(map[string]NotificationIntent)
		p.notifications[sub.ID] = byTag
	}
	byTag[n.Tag] = *n
	return nil
}

func (p *MemoryPlatform) NotificationData(ctx context.Context, sub *models.Subscription, tag string) (*NotificationData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.notifications[sub.ID][tag]
	if !ok {
		return nil, nil
	}
	data := n.Data
	return &data, nil
}

func (p *MemoryPlatform) CloseNotification(ctx context.Context, sub *models.Subscription, tag string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.notifications[sub.ID], tag)
	return nil
}

func (p *MemoryPlatform) Clients(ctx context.Context, sub *models.Subscription) ([]Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Client(nil), p.clients[sub.ID]...), nil
}

func (p *MemoryPlatform) Navigate(ctx context.Context, sub *models.Subscription, clientID, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, c := range p.clients[sub.ID] {
		if c.ID == clientID {
			p.clients[sub.ID][i].URL = url
			p.navigations = append(p.navigations, Navigation{SubscriptionID: sub.ID, ClientID: clientID, URL: url})
			return nil
		}
	}
	return fmt.Errorf("client %s not found", clientID)
}

func (p *MemoryPlatform) OpenWindow(ctx context.Context, sub *models.Subscription, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := fmt.Sprintf("window-%d", len(p.clients[sub.ID])+1)
	p.clients[sub.ID] = append(p.clients[sub.ID], Client{ID: id, URL: url})
	p.navigations = append(p.navigations, Navigation{SubscriptionID: sub.ID, URL: url})
	return nil
}

// AddClient registers an open window for sub.
func (p *MemoryPlatform) AddClient(subscriptionID string, c Client) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clients[subscriptionID] = append(p.clients[subscriptionID], c)
}

// Notifications returns the notifications shown for a subscription, sorted
// by tag.
func (p *MemoryPlatform) Notifications(subscriptionID string) []NotificationIntent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]NotificationIntent, 0, len(p.notifications[subscriptionID]))
	for _, n := range p.notifications[subscriptionID] {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func (p *MemoryPlatform) Navigations() []Navigation {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Navigation(nil), p.navigations...)
}
