package telemetry

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithIDHelpersAttachAttributes(t *testing.T) {
	tests := []struct {
		name string
		with func(*slog.Logger) *slog.Logger
		want string
	}{
		{"execution", func(l *slog.Logger) *slog.Logger { return WithExecutionID(l, "exec-1") }, `"execution_id":"exec-1"`},
		{"node", func(l *slog.Logger) *slog.Logger { return WithNodeID(l, "node-1") }, `"node_id":"node-1"`},
		{"workflow", func(l *slog.Logger) *slog.Logger { return WithWorkflowID(l, "wf-1") }, `"workflow_id":"wf-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			tt.with(logger).Info("message")

			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log output %q missing %s", buf.String(), tt.want)
			}
		})
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(t.Context()) == nil {
		t.Fatal("FromContext returned nil for empty context")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithLogger(t.Context(), logger)

	FromContext(ctx).Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("context logger not used: %q", buf.String())
	}
}
