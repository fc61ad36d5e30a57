package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/pkg/logging"
)

func TestNew_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "", "bogus"} {
		log, err := New(level, "json")
		require.NoError(t, err, level)
		assert.NotNil(t, log)
	}

	log, err := New("info", "console")
	require.NoError(t, err)
	assert.NotNil(t, log.Named("queue"))
}

func TestSugaredLogger_ContextFields(t *testing.T) {
	l := &SugaredLogger{SugaredLogger: NopLogger().(*SugaredLogger).SugaredLogger}
	l.SetServiceName("conduit")

	ctx := logging.WithMessageID(context.Background(), "m-1")
	fields := l.contextFields(ctx)

	assert.Equal(t, []interface{}{"message_id", "m-1", "service_name", "conduit"}, fields)
}
