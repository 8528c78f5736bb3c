package feed

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fieldboss/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestDecodeNotification(t *testing.T) {
	id := uuid.New()
	payload := `{"op":"INSERT","row":{"id":"` + id.String() + `","boss":"Jiangshi","channel":7,"type":"Boss Dead","end_time":1772395500000,"created_at":"2026-03-01T20:00:00Z"}}`

	ev, err := DecodeNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, models.ChangeOpInsert, ev.Op)
	assert.Equal(t, id, ev.RowID)
	assert.Equal(t, models.ResourceJiangshi, ev.Resource)
	assert.Equal(t, 7, ev.Channel)
	assert.Equal(t, models.KindBossDead, ev.Kind)
	assert.Equal(t, int64(1772395500000), models.ToMillis(ev.ExpiresAt))
}

func TestDecodeNotificationRejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"op":"INSERT"}`,
		`{"op":"TRUNCATE","row":{"id":"` + uuid.NewString() + `"}}`,
	} {
		_, err := DecodeNotification(payload)
		assert.Error(t, err, payload)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ev := models.ChangeEvent{
		Op:        models.ChangeOpUpdate,
		RowID:     uuid.New(),
		Resource:  models.ResourceGigantura,
		Channel:   42,
		Kind:      models.KindVariantSpawning,
		ExpiresAt: t0.Add(120 * time.Second),
	}

	data, err := EncodeEnvelope(ev, t0)
	require.NoError(t, err)

	got, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, ev.RowID, got.RowID)
	assert.Equal(t, ev.Op, got.Op)
	assert.Equal(t, ev.Channel, got.Channel)
	assert.True(t, ev.ExpiresAt.Equal(got.ExpiresAt))

	_, err = DecodeEnvelope([]byte(`{"eventId":"x","payload":{}}`))
	assert.Error(t, err)
}

func TestEventIDStableAcrossRedelivery(t *testing.T) {
	ev := models.ChangeEvent{Op: models.ChangeOpInsert, RowID: uuid.New(), ExpiresAt: t0}
	assert.Equal(t, EventID(ev), EventID(ev))

	other := ev
	other.Op = models.ChangeOpDelete
	assert.NotEqual(t, EventID(ev), EventID(other))
}
