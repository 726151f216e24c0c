package notify_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/powermon/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPayload(t *testing.T) {
	event := notify.RestoreEvent{
		Timestamp:  time.Date(2025, time.March, 1, 12, 30, 0, 0, time.UTC),
		Outage:     200 * time.Second,
		FirstBoot:  false,
		ClockValid: true,
	}

	data, err := notify.FormatPayload(event)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"power": {
			"timestamp": "2025-03-01T12:30:00Z",
			"event": "RESTORE",
			"outage_sec": 200,
			"clock_valid": true
		}
	}`, string(data))
}

func TestFormatPayloadFirstBoot(t *testing.T) {
	event := notify.RestoreEvent{
		Timestamp: time.Date(2025, time.March, 1, 12, 30, 0, 0, time.UTC),
		FirstBoot: true,
	}

	data, err := notify.FormatPayload(event)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"first_boot":true`)
	assert.Contains(t, string(data), `"outage_sec":0`)
}

func TestFakePublisherRecords(t *testing.T) {
	pub := &notify.FakePublisher{}

	err := pub.PublishRestore(notify.RestoreEvent{Outage: time.Minute})
	require.NoError(t, err)
	require.Len(t, pub.Restores, 1)
	assert.Equal(t, time.Minute, pub.Restores[0].Outage)

	require.NoError(t, pub.Close())
	assert.True(t, pub.Closed)
}
