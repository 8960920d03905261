// Package pushworker turns reminder pushes into notifications and
// notification clicks into navigation, independent of any open page.
package pushworker

import (
	"net/url"
	"strings"
	"time"
)

const (
	fallbackTitle = "Task due"
	dueSoonBody   = "Due soon"
)

// NotificationData is what a shown notification carries for its click
// handler. Only this survives a worker restart.
type NotificationData struct {
	TaskID     string `json:"taskId"`
	DeliveryID string `json:"deliveryId"`
}

// NotificationIntent is a notification to show. Showing another intent
// with the same Tag replaces the first.
type NotificationIntent struct {
	Title string
	Body  string
	Tag   string
	Data  NotificationData
}

// Client is an open application window.
type Client struct {
	ID  string
	URL string
}

// NavigationIntent is the single action a click produces: either focus and
// navigate ClientID, or open a new window when ClientID is empty.
type NavigationIntent struct {
	URL      string
	ClientID string
}

func (n *NavigationIntent) OpensWindow() bool {
	return n.ClientID == ""
}

// Handlers holds the pure push and click decisions.
type Handlers struct {
	Origin   string // e.g. https://app.example.com
	TaskPath string // path prefix of the task detail view, e.g. /tasks/
	Location *time.Location
}

// OnPush renders a notification for a valid payload. Malformed payloads
// return ErrMalformedPushPayload and must be dropped.
func (h Handlers) OnPush(data []byte) (*NotificationIntent, error) {
	p, err := ParsePayload(data)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(p.TaskTitle)
	if title == "" {
		title = fallbackTitle
	}

	body := dueSoonBody
	if due, ok := p.DueAt(); ok {
		body = "Due " + due.In(h.location()).Format("Mon Jan 2, 15:04")
	}

	return &NotificationIntent{
		Title: title,
		Body:  body,
		Tag:   p.DeliveryID,
		Data:  NotificationData{TaskID: p.TaskID, DeliveryID: p.DeliveryID},
	}, nil
}

// OnClick decides where a click on a notification leads. It returns nil when
// the notification carries no task.
func (h Handlers) OnClick(data NotificationData, clients []Client) *NavigationIntent {
	if data.TaskID == "" {
		return nil
	}

	target := h.TargetURL(data)
	for _, c := range clients {
		if h.sameOrigin(c.URL) {
			return &NavigationIntent{URL: target, ClientID: c.ID}
		}
	}
	return &NavigationIntent{URL: target}
}

// TargetURL is the task detail URL with the delivery attached, so the page
// can acknowledge exactly that delivery.
func (h Handlers) TargetURL(data NotificationData) string {
	path := h.TaskPath
	if path == "" {
		path = "/tasks/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	target := strings.TrimRight(h.Origin, "/") + path + url.PathEscape(data.TaskID)
	if data.DeliveryID != "" {
		target += "?" + url.Values{"reminder": {data.DeliveryID}}.Encode()
	}
	return target
}

func (h Handlers) sameOrigin(raw string) bool {
	want, err := url.Parse(h.Origin)
	if err != nil || want.Host == "" {
		return false
	}
	got, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(got.Scheme, want.Scheme) && strings.EqualFold(got.Host, want.Host)
}

func (h Handlers) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}
