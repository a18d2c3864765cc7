package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/harborline/backoffice/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogSink_Record(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	sink.Record(context.Background(), model.AuditEvent{
		Action:  model.AuditRoleProvisioned,
		Actor:   "operator:ops",
		Target:  "pat@acme.example",
		Details: map[string]string{"role": "client", "organization": "acme"},
		At:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit event", line["msg"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "role.provisioned", line["audit_action"])
	assert.Equal(t, "operator:ops", line["actor"])
	assert.Equal(t, "pat@acme.example", line["target"])
	assert.Equal(t, map[string]any{"role": "client", "organization": "acme"}, line["details"])
}
