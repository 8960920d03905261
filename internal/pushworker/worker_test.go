package pushworker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hray3182/taskreminder/internal/models"
)

var testSub = &models.Subscription{ID: "sub-1", UserID: "user-1", OrganizationID: "org-1", Channel: "memory"}

func pushBytes(t *testing.T, deliveryID, taskID, title string) []byte {
	t.Helper()
	data, err := Payload{Type: PayloadType, DeliveryID: deliveryID, TaskID: taskID, TaskTitle: title}.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestDuplicatePushCollapsesByTag(t *testing.T) {
	platform := NewMemoryPlatform()
	w := NewWorker(testHandlers(), platform)
	ctx := context.Background()

	if err := w.HandlePush(ctx, testSub, pushBytes(t, "d-1", "t-1", "First")); err != nil {
		t.Fatalf("HandlePush failed: %v", err)
	}
	if err := w.HandlePush(ctx, testSub, pushBytes(t, "d-1", "t-1", "Second")); err != nil {
		t.Fatalf("HandlePush failed: %v", err)
	}

	shown := platform.Notifications(testSub.ID)
	if len(shown) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(shown))
	}
	if shown[0].Title != "Second" {
		t.Errorf("Expected second push to replace the first, got %q", shown[0].Title)
	}

	if err := w.HandlePush(ctx, testSub, pushBytes(t, "d-2", "t-2", "Other")); err != nil {
		t.Fatalf("HandlePush failed: %v", err)
	}
	if got := len(platform.Notifications(testSub.ID)); got != 2 {
		t.Errorf("Expected distinct deliveries to stack, got %d", got)
	}
}

func TestMalformedPushShowsNothing(t *testing.T) {
	platform := NewMemoryPlatform()
	w := NewWorker(testHandlers(), platform)

	err := w.HandlePush(context.Background(), testSub, []byte(`{"type":"task-reminder"}`))
	if !errors.Is(err, ErrMalformedPushPayload) {
		t.Errorf("Expected ErrMalformedPushPayload, got %v", err)
	}
	if got := len(platform.Notifications(testSub.ID)); got != 0 {
		t.Errorf("Expected no notification, got %d", got)
	}
}

func TestClickFocusesMatchingClient(t *testing.T) {
	platform := NewMemoryPlatform()
	platform.AddClient(testSub.ID, Client{ID: "tab-1", URL: "https://app.example.com/inbox"})
	w := NewWorker(testHandlers(), platform)
	ctx := context.Background()

	if err := w.HandlePush(ctx, testSub, pushBytes(t, "d-1", "t-1", "Title")); err != nil {
		t.Fatalf("HandlePush failed: %v", err)
	}
	if err := w.HandleClick(ctx, testSub, "d-1"); err != nil {
		t.Fatalf("HandleClick failed: %v", err)
	}

	navs := platform.Navigations()
	if len(navs) != 1 {
		t.Fatalf("Expected exactly one navigation, got %d", len(navs))
	}
	if navs[0].ClientID != "tab-1" || navs[0].URL != "https://app.example.com/tasks/t-1?reminder=d-1" {
		t.Errorf("Unexpected navigation %+v", navs[0])
	}
	if got := len(platform.Notifications(testSub.ID)); got != 0 {
		t.Errorf("Expected notification closed, got %d", got)
	}
}

func TestClickOpensWindowWithoutClients(t *testing.T) {
	platform := NewMemoryPlatform()
	w := NewWorker(testHandlers(), platform)
	ctx := context.Background()

	if err := w.HandlePush(ctx, testSub, pushBytes(t, "d-1", "t-1", "Title")); err != nil {
		t.Fatalf("HandlePush failed: %v", err)
	}
	if err := w.HandleClick(ctx, testSub, "d-1"); err != nil {
		t.Fatalf("HandleClick failed: %v", err)
	}

	navs := platform.Navigations()
	if len(navs) != 1 || navs[0].ClientID != "" {
		t.Fatalf("Expected one new window, got %+v", navs)
	}
}

func TestClickOnUnknownTagDoesNothing(t *testing.T) {
	platform := NewMemoryPlatform()
	w := NewWorker(testHandlers(), platform)

	if err := w.HandleClick(context.Background(), testSub, "missing"); err != nil {
		t.Fatalf("HandleClick failed: %v", err)
	}
	if got := len(platform.Navigations()); got != 0 {
		t.Errorf("Expected no navigation, got %d", got)
	}
}

type panickingPlatform struct {
	*MemoryPlatform
}

func (p panickingPlatform) ShowNotification(ctx context.Context, sub *models.Subscription, n *NotificationIntent) error {
	if n.Tag == "boom" {
		panic("platform exploded")
	}
	return p.MemoryPlatform.ShowNotification(ctx, sub, n)
}

func TestWorkerLoopSurvivesBadEvents(t *testing.T) {
	platform := NewMemoryPlatform()
	w := NewWorker(testHandlers(), panickingPlatform{platform})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	for _, payload := range [][]byte{
		[]byte("garbage"),
		pushBytes(t, "boom", "t-0", "Panics"),
		pushBytes(t, "d-1", "t-1", "Survives"),
	} {
		if err := w.Push(ctx, testSub, payload); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(platform.Notifications(testSub.ID)) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done

	shown := platform.Notifications(testSub.ID)
	if len(shown) != 1 || shown[0].Tag != "d-1" {
		t.Errorf("Expected only the valid push to be shown, got %+v", shown)
	}
}
