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

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
	"github.com/shaiso/conveyor/internal/engine"
	"github.com/shaiso/conveyor/internal/secrets"
	"github.com/shaiso/conveyor/internal/stepengine"
)

func aiDeps(t *testing.T, credentialType domain.CredentialType) (Deps, uuid.UUID) {
	t.Helper()

	credentialID := uuid.New()
	secretStore := secrets.NewMemoryStore()
	if err := secretStore.Upsert(context.Background(), "secret-ref-1", "sk-test-key"); err != nil {
		t.Fatalf("seed secret: %v", err)
	}

	deps := Deps{
		Credentials: &fakeCredentials{credentials: map[uuid.UUID]*domain.Credential{
			credentialID: {
				ID:        credentialID,
				UserID:    "user-1",
				Type:      credentialType,
				Name:      "test key",
				SecretRef: "secret-ref-1",
				CreatedAt: time.Now(),
			},
		}},
		Secrets: secretStore,
	}
	return deps, credentialID
}

func TestOpenAIExecutor_Success(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello, Ann!"}},
			},
		})
	}))
	defer server.Close()

	deps, credentialID := aiDeps(t, domain.CredentialTypeOpenAI)
	executor := NewOpenAIExecutor(deps).(*aiExecutor)
	executor.baseURL = server.URL

	recorder := &statusRecorder{}
	ctx := engine.NewContext(map[string]any{
		"form": map[string]any{"name": "Ann"},
	})

	out, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "greeting",
		"userPrompt":   "Greet {{form.name}}",
		"credentialId": credentialID.String(),
	}, ctx, recorder))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotAuth != "Bearer sk-test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPayload["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want default", gotPayload["model"])
	}
	messages := gotPayload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	if user := messages[1].(map[string]any); user["content"] != "Greet Ann" {
		t.Errorf("user prompt = %v, want rendered template", user["content"])
	}

	value, ok := out.Get("greeting")
	if !ok {
		t.Fatalf("context missing variable greeting")
	}
	if value.(map[string]any)["aiResponse"] != "Hello, Ann!" {
		t.Errorf("aiResponse = %v", value)
	}
	expectStatuses(t, recorder, domain.NodeStatusLoading, domain.NodeStatusSuccess)
}

func TestAnthropicExecutor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "sk-test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("anthropic-version header missing")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "pong"}},
		})
	}))
	defer server.Close()

	deps, credentialID := aiDeps(t, domain.CredentialTypeAnthropic)
	executor := NewAnthropicExecutor(deps).(*aiExecutor)
	executor.baseURL = server.URL

	recorder := &statusRecorder{}
	out, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "answer",
		"userPrompt":   "ping",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	value, _ := out.Get("answer")
	if value.(map[string]any)["aiResponse"] != "pong" {
		t.Errorf("aiResponse = %v", value)
	}
}

func TestGeminiExecutor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "sk-test-key" {
			t.Errorf("x-goog-api-key = %q", r.Header.Get("x-goog-api-key"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]any{{"text": "gemini says hi"}},
				}},
			},
		})
	}))
	defer server.Close()

	deps, credentialID := aiDeps(t, domain.CredentialTypeGemini)
	executor := NewGeminiExecutor(deps).(*aiExecutor)
	executor.baseURL = server.URL

	recorder := &statusRecorder{}
	out, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "answer",
		"userPrompt":   "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	value, _ := out.Get("answer")
	if value.(map[string]any)["aiResponse"] != "gemini says hi" {
		t.Errorf("aiResponse = %v", value)
	}
}

func TestAIExecutor_ForeignCredentialRejected(t *testing.T) {
	deps, credentialID := aiDeps(t, domain.CredentialTypeOpenAI)
	executor := NewOpenAIExecutor(deps).(*aiExecutor)

	recorder := &statusRecorder{}
	in := newInput(map[string]any{
		"variableName": "answer",
		"userPrompt":   "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder)
	in.UserID = "someone-else"

	_, err := executor.Execute(context.Background(), in)
	if !errors.Is(err, ErrCredential) {
		t.Fatalf("err = %v, want ErrCredential", err)
	}
	if !stepengine.IsNonRetriable(err) {
		t.Errorf("credential error must be non-retriable")
	}
	expectStatuses(t, recorder, domain.NodeStatusLoading, domain.NodeStatusError)
}

func TestAIExecutor_CredentialTypeMismatch(t *testing.T) {
	deps, credentialID := aiDeps(t, domain.CredentialTypeOpenAI)
	executor := NewAnthropicExecutor(deps).(*aiExecutor)

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "answer",
		"userPrompt":   "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))

	if !errors.Is(err, ErrCredential) {
		t.Fatalf("err = %v, want ErrCredential", err)
	}
	if !stepengine.IsNonRetriable(err) {
		t.Errorf("type mismatch must be non-retriable")
	}
}

func TestAIExecutor_UnauthorizedIsNonRetriable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	deps, credentialID := aiDeps(t, domain.CredentialTypeOpenAI)
	executor := NewOpenAIExecutor(deps).(*aiExecutor)
	executor.baseURL = server.URL

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "answer",
		"userPrompt":   "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))

	if err == nil {
		t.Fatalf("expected error for status 401")
	}
	if !stepengine.IsNonRetriable(err) {
		t.Errorf("401 must be non-retriable, got: %v", err)
	}
}

func TestAIExecutor_RateLimitIsRetriable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	deps, credentialID := aiDeps(t, domain.CredentialTypeOpenAI)
	executor := NewOpenAIExecutor(deps).(*aiExecutor)
	executor.baseURL = server.URL

	recorder := &statusRecorder{}
	_, err := executor.Execute(context.Background(), newInput(map[string]any{
		"variableName": "answer",
		"userPrompt":   "hi",
		"credentialId": credentialID.String(),
	}, engine.NewContext(nil), recorder))

	if err == nil {
		t.Fatalf("expected error for status 429")
	}
	if stepengine.IsNonRetriable(err) {
		t.Errorf("429 must stay retriable, got: %v", err)
	}
}

func TestAIExecutor_SecretNeverCheckpointed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "ok"}},
			},
		})
	}))
	defer server.Close()

	deps, credentialID := aiDeps(t, domain.CredentialTypeOpenAI)
	executor := NewOpenAIExecutor(deps).(*aiExecutor)
	executor.baseURL = server.URL

	store := stepengine.NewMemoryStore()
	stepEngine := stepengine.New(store, stepengine.RetryPolicy{MaxAttempts: 1}, nil)

	recorder := &statusRecorder{}
	err := stepEngine.Execute(context.Background(), "exec-1", func(ctx context.Context, steps stepengine.Runner) error {
		in := newInput(map[string]any{
			"variableName": "answer",
			"userPrompt":   "hi",
			"credentialId": credentialID.String(),
		}, engine.NewContext(nil), recorder)
		in.Steps = steps

		_, err := executor.Execute(ctx, in)
		return err
	}, nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	for _, name := range []string{"get-credential", "openai-generate-text"} {
		raw, ok, _ := store.Get(context.Background(), "exec-1", name)
		if !ok {
			t.Fatalf("checkpoint %q missing", name)
		}
		if strings.Contains(string(raw), "sk-test-key") {
			t.Errorf("checkpoint %q contains the secret value: %s", name, raw)
		}
	}
}
