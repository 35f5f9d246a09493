package matrix

import "time"

// Room event types used by the case protocol.
const (
	EventTypeCase        = "care.amp.case"
	EventTypePatient     = "care.amp.patient"
	EventTypeObservation = "care.amp.observation"
	EventTypeDone        = "care.amp.done"

	EventTypeEncrypted = "m.room.encrypted"
	EventTypeMessage   = "m.room.message"

	// Case and patient records are state events anchored on a fixed state key.
	StateKeyCase    = "care.amp.case"
	StateKeyPatient = "care.amp.patient"
)

// Message content types (msgtype field of m.room.message).
const (
	MsgTypeText         = "m.text"
	MsgTypeImage        = "m.image"
	MsgTypeFile         = "m.file"
	MsgTypeAudio        = "m.audio"
	MsgTypeVideo        = "m.video"
	MsgTypeBadEncrypted = "m.bad.encrypted"
)

// Event is one entry of a room timeline as delivered by the sync layer.
//
// For an encrypted envelope (Type == m.room.encrypted) the crypto layer
// fills ClearType/ClearContent once decryption succeeds; until then both
// stay empty and the event is pending. A decryption failure surfaces as
// ClearType m.room.message with msgtype m.bad.encrypted, matching what
// the substrate delivers.
type Event struct {
	ID             string                 `json:"event_id"`
	Type           string                 `json:"type"`
	StateKey       string                 `json:"state_key,omitempty"`
	Sender         string                 `json:"sender,omitempty"`
	SenderName     string                 `json:"sender_name,omitempty"`
	OriginServerTS int64                  `json:"origin_server_ts"`
	Content        map[string]interface{} `json:"content"`

	ClearType    string                 `json:"clear_type,omitempty"`
	ClearContent map[string]interface{} `json:"clear_content,omitempty"`

	// LocalEcho marks a client-originated event not yet acknowledged by
	// the homeserver. Classification treats it like any other event.
	LocalEcho bool `json:"local_echo,omitempty"`
}

// IsEncryptedEnvelope reports whether the outer event is an encryption
// envelope whose usable content lives in the clear fields.
func (e *Event) IsEncryptedEnvelope() bool {
	return e.Type == EventTypeEncrypted
}

// Pending reports whether the plaintext of an encrypted envelope is not
// available yet.
func (e *Event) Pending() bool {
	return e.IsEncryptedEnvelope() && e.ClearType == ""
}

// Plaintext returns the usable type and content: the inner pair for a
// decrypted envelope, the outer pair otherwise. ok is false while the
// event is still pending decryption.
func (e *Event) Plaintext() (eventType string, content map[string]interface{}, ok bool) {
	if e.IsEncryptedEnvelope() {
		if e.ClearType == "" {
			return "", nil, false
		}
		return e.ClearType, e.ClearContent, true
	}
	return e.Type, e.Content, true
}

// Timestamp converts the origin server timestamp (milliseconds) to time.Time.
func (e *Event) Timestamp() time.Time {
	return time.UnixMilli(e.OriginServerTS).UTC()
}

// DisplayName returns the sender's display name, falling back to the
// sender's user id.
func (e *Event) DisplayName() string {
	if e.SenderName != "" {
		return e.SenderName
	}
	return e.Sender
}
