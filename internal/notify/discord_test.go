package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duyhung112/crypto-insights/internal/config"
)

func TestSendDeliversPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("Bad payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(config.NotifyConfig{WebhookURL: srv.URL})
	if !d.Send(context.Background(), "hello") {
		t.Fatal("Expected delivery to succeed")
	}
	if got.Content != "hello" {
		t.Errorf("Expected content carried, got %q", got.Content)
	}
	if got.Username != defaultUsername {
		t.Errorf("Expected default username, got %q", got.Username)
	}
}

func TestSendCustomUsername(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := NewDiscord(config.NotifyConfig{WebhookURL: srv.URL, Username: "Alert Bot"})
	d.Send(context.Background(), "hi")
	if got.Username != "Alert Bot" {
		t.Errorf("Expected configured username, got %q", got.Username)
	}
}

func TestSendErrorStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDiscord(config.NotifyConfig{WebhookURL: srv.URL})
	if d.Send(context.Background(), "hello") {
		t.Error("Expected delivery to fail on 400")
	}
}

func TestSendWithoutWebhookURL(t *testing.T) {
	d := NewDiscord(config.NotifyConfig{})
	if d.Send(context.Background(), "hello") {
		t.Error("Expected false without a webhook URL")
	}
}
