package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// SnapshotSyncMessage announces that a ledger reached a new version. It
// carries no ledger data; the worker loads the snapshot from storage.
type SnapshotSyncMessage struct {
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSnapshotSyncMessage creates a message stamped with the current time
func NewSnapshotSyncMessage(key string, version int64) *SnapshotSyncMessage {
	return &SnapshotSyncMessage{
		Key:       key,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SnapshotSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotSyncMessageFromJSON decodes and checks a message body
func SnapshotSyncMessageFromJSON(data []byte) (*SnapshotSyncMessage, error) {
	var msg SnapshotSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, errors.New("sync message without ledger key")
	}
	if msg.Version < 1 {
		return nil, errors.New("sync message without version")
	}
	return &msg, nil
}
