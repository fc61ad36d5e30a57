package monitoring

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/pkg/models"
)

func TestEventLog_WrapsPastCapacity(t *testing.T) {
	const capacity = 100
	l := newEventLog(capacity, 24*time.Hour)

	total := capacity*3 + 17
	for i := 0; i < total; i++ {
		l.append(models.Event{ID: strconv.Itoa(i), Timestamp: t0.Add(time.Duration(i) * time.Millisecond)}, t0)
	}
	assert.Equal(t, capacity, l.len())
	assert.Len(t, l.buf, capacity)

	events := l.window(t0, t0.Add(time.Hour), nil)
	require.Len(t, events, capacity)
	for i, e := range events {
		assert.Equal(t, strconv.Itoa(total-capacity+i), e.ID)
	}
}

func TestEventLog_RetentionDropsOldestAcrossWrap(t *testing.T) {
	l := newEventLog(10, time.Minute)

	for i := 0; i < 25; i++ {
		l.append(models.Event{ID: strconv.Itoa(i), Timestamp: t0.Add(time.Duration(i) * 10 * time.Second)}, t0)
	}
	require.Equal(t, 10, l.len())

	// Only events at or after now-1m survive: ids 19..24 at 190s..240s.
	now := t0.Add(250 * time.Second)
	l.append(models.Event{ID: "last", Timestamp: now}, now)

	events := l.window(t0, now.Add(time.Second), nil)
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"19", "20", "21", "22", "23", "24", "last"}, ids)
}

func TestEventLog_UnboundedGrows(t *testing.T) {
	l := newEventLog(0, 0)
	for i := 0; i < minLogCapacity*4+1; i++ {
		l.append(models.Event{ID: strconv.Itoa(i), Timestamp: t0}, t0)
	}
	assert.Equal(t, minLogCapacity*4+1, l.len())
	events := l.window(t0, t0.Add(time.Second), nil)
	assert.Equal(t, "0", events[0].ID)
	assert.Equal(t, strconv.Itoa(minLogCapacity*4), events[len(events)-1].ID)
}
