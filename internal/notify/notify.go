// Package notify publishes power transition events to MQTT so other
// systems can react to restores and outages. Publishing is best-effort:
// a failed publish is logged and never blocks the lifecycle.
package notify

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for power transition events.
const Topic = "power/monitor/events"

// Publisher publishes power events to a broker.
type Publisher interface {
	// PublishRestore announces a power restore, including the inferred
	// outage that preceded it (zero on first boot).
	PublishRestore(event RestoreEvent) error

	// Close disconnects from the broker.
	Close() error
}

// RestoreEvent describes a power-on with its preceding outage.
type RestoreEvent struct {
	Timestamp  time.Time
	Outage     time.Duration
	FirstBoot  bool
	ClockValid bool
}

// Payload is the published JSON message.
type Payload struct {
	Power PowerPayload `json:"power"`
}

// PowerPayload contains the restore details.
type PowerPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	OutageSec  int64  `json:"outage_sec"`
	FirstBoot  bool   `json:"first_boot,omitempty"`
	ClockValid bool   `json:"clock_valid"`
}

// FormatPayload creates the JSON payload for a restore event.
func FormatPayload(event RestoreEvent) ([]byte, error) {
	payload := Payload{
		Power: PowerPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      "RESTORE",
			OutageSec:  int64(event.Outage.Seconds()),
			FirstBoot:  event.FirstBoot,
			ClockValid: event.ClockValid,
		},
	}

	return json.Marshal(payload)
}
