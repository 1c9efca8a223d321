package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mavrykpremium/orderbot/internal/models"
)

func TestLoadTopics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "topics.yaml")
	content := `
renewals:
  chat_id: -1001234567890
  thread_id: 12
supply:
  chat_id: -1009876543210
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	topics, err := LoadTopics(path)
	if err != nil {
		t.Fatal(err)
	}
	if topics.Renewals.ChatID != -1001234567890 || topics.Renewals.ThreadID != 12 {
		t.Errorf("renewals = %+v", topics.Renewals)
	}
	if topics.Supply.ChatID != -1009876543210 {
		t.Errorf("supply = %+v", topics.Supply)
	}
	// Unset categories fall back to the renewals thread.
	if topics.Orders != topics.Renewals || topics.Alerts != topics.Renewals {
		t.Errorf("fallbacks: orders=%+v alerts=%+v", topics.Orders, topics.Alerts)
	}
}

func TestLoadTopicsRequiresRenewals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(path, []byte("orders:\n  chat_id: 5\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTopics(path); err == nil {
		t.Fatal("missing renewals chat must fail")
	}
}

func newTestTelegram(t *testing.T, handler http.HandlerFunc) (*Telegram, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tg := NewTelegram("test-token", &Topics{
		Renewals: Topic{ChatID: -100, ThreadID: 7},
		Supply:   Topic{ChatID: -200},
		Alerts:   Topic{ChatID: -300},
		Orders:   Topic{ChatID: -400},
	}, slog.New(slog.DiscardHandler))
	tg.baseURL = srv.URL
	return tg, srv
}

func TestRenewalSucceededMessage(t *testing.T) {
	var got sendMessageRequest
	tg, _ := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottest-token/sendMessage") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	err := tg.RenewalSucceeded(context.Background(), &models.RenewedOrder{
		Code:         "MAVL1234567",
		Product:      "Netflix--1m",
		RegisteredOn: "11/03/2025",
		ExpiresOn:    "10/04/2025",
		SalePrice:    132000,
	}, 132000)
	if err != nil {
		t.Fatal(err)
	}

	if got.ChatID != -100 || got.MessageThreadID != 7 {
		t.Errorf("routed to chat %d thread %d", got.ChatID, got.MessageThreadID)
	}
	if !strings.Contains(got.Text, "MAVL1234567") || !strings.Contains(got.Text, "132.000đ") {
		t.Errorf("text = %q", got.Text)
	}
	if !strings.Contains(got.Text, "10/04/2025") {
		t.Errorf("text %q misses expiry", got.Text)
	}
}

func TestSendSurfacesAPIError(t *testing.T) {
	tg, _ := newTestTelegram(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	})

	err := tg.RenewalSkipped(context.Background(), "MAVL0000001", "còn 10 ngày")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestFormatVND(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0đ"},
		{999, "999đ"},
		{1000, "1.000đ"},
		{132000, "132.000đ"},
		{1250000, "1.250.000đ"},
		{-45000, "-45.000đ"},
	}
	for _, tt := range tests {
		if got := formatVND(tt.in); got != tt.want {
			t.Errorf("formatVND(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
