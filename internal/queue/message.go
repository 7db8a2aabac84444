package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is bumped on incompatible payload changes.
const MessageVersion = 1

// TypeSourcePublished announces a published upload and its records.
const TypeSourcePublished = "source.published"

// Message is the payload sent to downstream queue consumers.
type Message struct {
	Type         string   `json:"type"`
	SourceID     string   `json:"sourceId"`
	UserID       string   `json:"userId"`
	InsightIDs   []string `json:"insightIds,omitempty"`
	InsightCount int      `json:"insightCount"`
	StoragePath  string   `json:"storagePath"`
	RequestID    string   `json:"requestId,omitempty"`
	EnqueuedAt   string   `json:"enqueuedAt"`
	Version      int      `json:"version"`
}

// NewSourcePublished builds a source.published message stamped with now.
func NewSourcePublished(sourceID, userID, storagePath, requestID string, insightIDs []string, now time.Time) Message {
	return Message{
		Type:         TypeSourcePublished,
		SourceID:     sourceID,
		UserID:       userID,
		InsightIDs:   insightIDs,
		InsightCount: len(insightIDs),
		StoragePath:  storagePath,
		RequestID:    requestID,
		EnqueuedAt:   now.UTC().Format(time.RFC3339),
		Version:      MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
