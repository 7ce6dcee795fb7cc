package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Triggers
	mux.Handle("POST /api/v1/workflows/{id}/trigger", chain(http.HandlerFunc(h.TriggerWorkflow)))
	mux.Handle("POST /api/v1/webhooks/forms/{workflowId}", chain(http.HandlerFunc(h.FormWebhook)))

	// Executions
	mux.Handle("GET /api/v1/executions", chain(http.HandlerFunc(h.ListExecutions)))
	mux.Handle("GET /api/v1/executions/{id}", chain(http.HandlerFunc(h.GetExecution)))

	// Credentials
	mux.Handle("GET /api/v1/credentials", chain(http.HandlerFunc(h.ListCredentials)))
	mux.Handle("POST /api/v1/credentials", chain(http.HandlerFunc(h.CreateCredential)))
	mux.Handle("DELETE /api/v1/credentials/{id}", chain(http.HandlerFunc(h.DeleteCredential)))
}
