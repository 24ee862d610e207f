package commands

import (
	"encoding/json"
	"time"

	"plenum/contexts/assembly-governance/session-service/ports"
)

func newSessionEnvelope(
	eventID string,
	eventType string,
	meetingID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Audit events are partitioned by meeting so per-meeting consumers see a
	// stable order.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "session-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "meeting_id",
		PartitionKey:     meetingID,
		Data:             payload,
	}, nil
}
