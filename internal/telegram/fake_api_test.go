package telegram

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type apiCall struct {
	Method string
	Params url.Values
}

// fakeTelegram is a minimal Bot API server that records every call.
type fakeTelegram struct {
	mu            sync.Mutex
	calls         []apiCall
	nextMessageID int
}

func newFakeTelegram(t *testing.T) (*fakeTelegram, *tgbotapi.BotAPI) {
	t.Helper()

	f := &fakeTelegram{nextMessageID: 100}
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)

	api, err := tgbotapi.NewBotAPIWithClient("test-token", server.URL+"/bot%s/%s", server.Client())
	if err != nil {
		t.Fatalf("creating bot api: %v", err)
	}
	return f, api
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Params: r.Form})
	var result interface{} = true
	switch method {
	case "getMe":
		result = map[string]interface{}{"id": 1, "is_bot": true, "first_name": "Reminders", "username": "reminder_bot"}
	case "sendMessage":
		f.nextMessageID++
		chatID, _ := strconv.ParseInt(r.Form.Get("chat_id"), 10, 64)
		result = map[string]interface{}{
			"message_id": f.nextMessageID,
			"date":       time.Now().Unix(),
			"chat":       map[string]interface{}{"id": chatID, "type": "private"},
			"text":       r.Form.Get("text"),
		}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "result": result})
}

func (f *fakeTelegram) callsTo(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) waitFor(t *testing.T, method string, n int) []apiCall {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		calls := f.callsTo(method)
		if len(calls) >= n {
			return calls
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d %s calls, got %d", n, method, len(calls))
		}
		time.Sleep(10 * time.Millisecond)
	}
}
