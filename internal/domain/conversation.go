package domain

import "errors"

// ErrSessionNotFound is returned by stores and services for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session whose ID is taken.
var ErrSessionExists = errors.New("session already exists")

// Turn is one entry of a conversation history (user or assistant)
type Turn struct {
	Speaker   Role      `json:"speaker"`
	Text      string    `json:"text"`
	CreatedAt Timestamp `json:"created_at"`
}

// Session groups the history of a single conversation with the assistant
type Session struct {
	ID        SessionID
	Title     string
	CreatedAt Timestamp
	UpdatedAt Timestamp
}
