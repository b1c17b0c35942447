package event

import (
	"context"
	"testing"
	"time"

	"github.com/garmentflow/backend/internal/domain/shared"
	"github.com/garmentflow/backend/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testEventType = "TestEvent"

func newTestSerializer() *EventSerializer {
	s := NewRegisteredSerializer()
	Register[testutil.TestEvent](s, testEventType)
	return s
}

// seedEntry writes one outbox entry for a fresh test event and returns it
func seedEntry(t *testing.T, db *gorm.DB, mutate func(e *shared.OutboxEntry)) *shared.OutboxEntry {
	t.Helper()

	ev := testutil.NewTestEvent(testEventType)
	payload, err := newTestSerializer().Serialize(ev)
	require.NoError(t, err)

	entry := shared.NewOutboxEntry(ev, payload)
	if mutate != nil {
		mutate(entry)
	}
	require.NoError(t, NewGormOutboxRepository(db).Save(context.Background(), entry))
	return entry
}

func past(d time.Duration) *time.Time {
	ts := time.Now().Add(-d)
	return &ts
}
