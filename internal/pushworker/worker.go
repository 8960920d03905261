package pushworker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/hray3182/taskreminder/internal/models"
)

// Platform is the notification surface behind a subscription. Showing a
// notification with a tag already shown replaces it.
type Platform interface {
	ShowNotification(ctx context.Context, sub *models.Subscription, n *NotificationIntent) error
	// NotificationData returns nil when no notification with tag is shown.
	NotificationData(ctx context.Context, sub *models.Subscription, tag string) (*NotificationData, error)
	CloseNotification(ctx context.Context, sub *models.Subscription, tag string) error
	Clients(ctx context.Context, sub *models.Subscription) ([]Client, error)
	// Navigate points an existing client at url and brings it to the foreground.
	Navigate(ctx context.Context, sub *models.Subscription, clientID, url string) error
	OpenWindow(ctx context.Context, sub *models.Subscription, url string) error
}

type eventKind int

const (
	pushEvent eventKind = iota
	clickEvent
)

type event struct {
	kind    eventKind
	sub     *models.Subscription
	payload []byte
	tag     string
}

const eventBuffer = 64

// Worker runs push and click events against a Platform. Each event is
// handled on its own goroutine; no state is shared between events except
// what the platform stores.
type Worker struct {
	handlers Handlers
	platform Platform
	events   chan event
	wg       sync.WaitGroup
}

func NewWorker(handlers Handlers, platform Platform) *Worker {
	return &Worker{
		handlers: handlers,
		platform: platform,
		events:   make(chan event, eventBuffer),
	}
}

// Start processes events until ctx is cancelled, then waits for in-flight
// handlers.
func (w *Worker) Start(ctx context.Context) {
	log.Println("Push worker started")
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			log.Println("Push worker stopped")
			return
		case ev := <-w.events:
			w.wg.Add(1)
			go w.dispatch(ctx, ev)
		}
	}
}

// Push queues a push payload for sub.
func (w *Worker) Push(ctx context.Context, sub *models.Subscription, payload []byte) error {
	return w.enqueue(ctx, event{kind: pushEvent, sub: sub, payload: payload})
}

// Click queues a click on the notification tagged tag.
func (w *Worker) Click(ctx context.Context, sub *models.Subscription, tag string) error {
	return w.enqueue(ctx, event{kind: clickEvent, sub: sub, tag: tag})
}

func (w *Worker) enqueue(ctx context.Context, ev event) error {
	select {
	case w.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) dispatch(ctx context.Context, ev event) {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in push worker: %v", r)
		}
	}()

	var err error
	switch ev.kind {
	case pushEvent:
		err = w.HandlePush(ctx, ev.sub, ev.payload)
	case clickEvent:
		err = w.HandleClick(ctx, ev.sub, ev.tag)
	}

	switch {
	case errors.Is(err, ErrMalformedPushPayload):
		log.Printf("Discarding push for subscription %s: %v", ev.sub.ID, err)
	case err != nil:
		log.Printf("Failed to handle push event for subscription %s: %v", ev.sub.ID, err)
	}
}

// HandlePush shows the notification for payload. A malformed payload shows
// nothing and returns an error wrapping ErrMalformedPushPayload.
func (w *Worker) HandlePush(ctx context.Context, sub *models.Subscription, payload []byte) error {
	intent, err := w.handlers.OnPush(payload)
	if err != nil {
		return err
	}
	if err := w.platform.ShowNotification(ctx, sub, intent); err != nil {
		return fmt.Errorf("failed to show notification %s: %w", intent.Tag, err)
	}
	return nil
}

// HandleClick closes the notification and focuses or opens the task view.
// Data comes from the stored notification, not the original payload.
func (w *Worker) HandleClick(ctx context.Context, sub *models.Subscription, tag string) error {
	data, err := w.platform.NotificationData(ctx, sub, tag)
	if err != nil {
		return fmt.Errorf("failed to read notification %s: %w", tag, err)
	}
	if err := w.platform.CloseNotification(ctx, sub, tag); err != nil {
		return fmt.Errorf("failed to close notification %s: %w", tag, err)
	}
	if data == nil {
		return nil
	}

	clients, err := w.platform.Clients(ctx, sub)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	nav := w.handlers.OnClick(*data, clients)
	if nav == nil {
		return nil
	}
	if nav.OpensWindow() {
		return w.platform.OpenWindow(ctx, sub, nav.URL)
	}
	return w.platform.Navigate(ctx, sub, nav.ClientID, nav.URL)
}
