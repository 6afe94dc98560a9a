package store_test

import (
	"context"
	"testing"

	"github.com/Ducksans/gg-real-sub001/internal/audit"
	"github.com/Ducksans/gg-real-sub001/internal/audit/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoop_Save(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	noop := store.NewNoop(zap.New(core))

	event := audit.NewEvent(audit.TopicSessionCreated, "user-1").With("role", "viewer")

	require.NoError(t, noop.Save(context.Background(), event))

	entries := logs.FilterMessage("audit event received").All()
	require.Len(t, entries, 1)
	assert.Equal(t, event.ID, entries[0].ContextMap()["id"])
	assert.Equal(t, "user-1", entries[0].ContextMap()["subject"])
}
