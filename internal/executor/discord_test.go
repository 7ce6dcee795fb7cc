package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/secrets"
	"github.com/shaiso/conveyor/internal/stepengine"
)

func discordDeps(t *testing.T, webhookURL string) (Deps, uuid.UUID) {
	t.Helper()

	credentialID := uuid.New()
	secretStore := secrets.NewMemoryStore()
	if err := secretStore.Upsert(context.Background(), "webhook-ref", webhookURL); err != nil {
		t.Fatalf("seed secret: %v", err)
	}

	deps := Deps{
		Credentials: &fakeCredentials{credentials: map[uuid.UUID]*domain.Credential{
			credentialID: {
				ID:        credentialID,
				UserID:    "user-1",
				Type:      domain.CredentialTypeDiscord,
				Name:      "team webhook",
				SecretRef: "webhook-ref",
				CreatedAt: time.Now(),
			},
		}},
		Secrets: secretStore,
	}
	return deps, credentialID
}

func TestDiscordExecutor_Success(t *testing.T) {
	var gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotContent = payload["content"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	deps, credentialID := discordDeps(t, server.URL)
	executor := NewDiscordExecutor(deps)

	recorder := &statusRecorder{}
	ctx := engine.NewContext(map[string]any{
		"summary": map[string]any{"aiResponse": "All good"},
	})

	out, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "notify",
		"content":      "Report: {{summary.aiResponse}}",
		"credentialId": credentialID.String(),
	}, ctx, recorder))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotContent != "Report: All good" {
		t.Errorf("content = %q", gotContent)
	}

	value, ok := out.Get("notify")
	if !ok {
		t.Fatalf("context missing variable notify")
	}
	if value.(map[string]any)["delivered"] != true {
		t.Errorf("delivered = %v", value)
	}
	expectStatuses(t, recorder, domain.NodeStatusLoading, domain.NodeStatusSuccess)
}

func TestDiscordExecutor_ContentTruncated(t *testing.T) {
	var gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotContent = payload["content"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	deps, credentialID := discordDeps(t, server.URL)
	executor := NewDiscordExecutor(deps)

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "notify",
		"content":      strings.Repeat("x", 3000),
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(gotContent) != discordContentLimit {
		t.Errorf("content length = %d, want %d", len(gotContent), discordContentLimit)
	}
}

func TestDiscordExecutor_TruncationKeepsRuneBoundary(t *testing.T) {
	var gotContent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotContent = payload["content"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	deps, credentialID := discordDeps(t, server.URL)
	executor := NewDiscordExecutor(deps)

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "notify",
		"content":      strings.Repeat("é", 2500),
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Лимит считается в символах, а не байтах, и усечение не должно
	// разрезать многобайтовый символ.
	if got := utf8.RuneCountInString(gotContent); got != discordContentLimit {
		t.Errorf("content runes = %d, want %d", got, discordContentLimit)
	}
	if !utf8.ValidString(gotContent) {
		t.Errorf("truncated content is not valid UTF-8")
	}
}

func TestDiscordExecutor_CredentialTypeMismatch(t *testing.T) {
	credentialID := uuid.New()
	deps := Deps{
		Credentials: &fakeCredentials{credentials: map[uuid.UUID]*domain.Credential{
			credentialID: {
				ID:        credentialID,
				UserID:    "user-1",
				Type:      domain.CredentialTypeOpenAI,
				SecretRef: "ref",
			},
		}},
		Secrets: secrets.NewMemoryStore(),
	}
	executor := NewDiscordExecutor(deps)

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "notify",
		"content":      "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))

	if !errors.Is(err, ErrCredential) {
		t.Fatalf("err = %v, want ErrCredential", err)
	}
	if !stepengine.IsNonRetriable(err) {
		t.Errorf("type mismatch must be non-retriable")
	}
	expectStatuses(t, recorder, domain.NodeStatusLoading, domain.NodeStatusError)
}

func TestDiscordExecutor_WebhookErrorIsRetriableOn5xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "discord down", http.StatusInternalServerError)
	}))
	defer server.Close()

	deps, credentialID := discordDeps(t, server.URL)
	executor := NewDiscordExecutor(deps)

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "notify",
		"content":      "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))

	if err == nil {
		t.Fatalf("expected error for status 500")
	}
	if stepengine.IsNonRetriable(err) {
		t.Errorf("5xx must stay retriable, got: %v", err)
	}
}
