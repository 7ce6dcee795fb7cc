package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/conveyor/internal/domain"
)

// userID извлекает идентификатор пользователя из запроса.
// Аутентификация живёт на внешнем gateway; сюда приходит уже
// проверенный X-User-Id.
func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

// ListCredentials возвращает credentials пользователя (без секретов).
// GET /api/v1/credentials
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		BadRequest(w, "missing X-User-Id header")
		return
	}

	credentials, err := h.credentialRepo.ListByUser(r.Context(), user)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]CredentialResponse, len(credentials))
	for i, credential := range credentials {
		result[i] = CredentialFromDomain(credential)
	}

	List(w, result, len(result))
}

// CreateCredential создаёт credential и сохраняет секрет.
// POST /api/v1/credentials
//
// Секрет уходит в secret-хранилище под свежей непрозрачной ссылкой;
// в таблицу credentials попадают только метаданные.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		BadRequest(w, "missing X-User-Id header")
		return
	}

	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	credentialType := domain.CredentialType(strings.ToUpper(req.Type))
	if !credentialType.IsValid() {
		BadRequest(w, "unsupported credential type: "+req.Type)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		BadRequest(w, "name is required")
		return
	}
	if req.Secret == "" {
		BadRequest(w, "secret is required")
		return
	}

	credential := &domain.Credential{
		ID:        uuid.New(),
		UserID:    user,
		Type:      credentialType,
		Name:      req.Name,
		SecretRef: uuid.New().String(),
		CreatedAt: time.Now(),
	}

	if err := h.secrets.Upsert(r.Context(), credential.SecretRef, req.Secret); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if err := h.credentialRepo.Create(r.Context(), credential); err != nil {
		// Откатываем секрет, чтобы не оставлять сироту.
		if derr := h.secrets.Delete(r.Context(), credential.SecretRef); derr != nil {
			h.logger.Error("failed to clean up orphaned secret",
				"secret_ref", credential.SecretRef,
				"error", derr,
			)
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, CredentialFromDomain(*credential))
}

// DeleteCredential удаляет credential вместе с секретом.
// DELETE /api/v1/credentials/{id}
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		BadRequest(w, "missing X-User-Id header")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid credential id")
		return
	}

	credential, err := h.credentialRepo.GetCredential(r.Context(), id, user)
	if HandleRepoError(w, h.logger, err, "credential not found") {
		return
	}

	if err := h.credentialRepo.Delete(r.Context(), id, user); HandleRepoError(w, h.logger, err, "credential not found") {
		return
	}

	if err := h.secrets.Delete(r.Context(), credential.SecretRef); err != nil {
		h.logger.Error("failed to delete secret",
			"secret_ref", credential.SecretRef,
			"error", err,
		)
	}

	NoContent(w)
}
