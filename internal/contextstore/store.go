// Package contextstore provides conversation context storage with
// time-based expiry. Two backends implement the same interface: a
// process-local map for single-instance deployments and a shared Redis
// cache for deployments where queue workers do not share memory with
// the listener.
package contextstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Message is a single turn of a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Store maps a conversation id to its accumulated message history.
// Every Set resets that key's expiry to now + the store's max age.
//
// Concurrent Set calls for the same conversation are last-writer-wins;
// there is no transactional guard around read-modify-write, so two
// workers racing on one conversation may drop each other's turn.
type Store interface {
	// Get returns the stored history, or nil for a missing or expired key.
	// A missing key is not an error.
	Get(ctx context.Context, conversationID string) ([]Message, error)

	// Set stores the history and refreshes the key's expiry.
	Set(ctx context.Context, conversationID string, messages []Message) error

	// Delete removes a conversation.
	Delete(ctx context.Context, conversationID string) error

	// PurgeExpired drops every key past its max age. Backends that expire
	// keys natively may make this a no-op.
	PurgeExpired(ctx context.Context) error
}

// PersonaKey derives a stable storage namespace from a persona string,
// so distinct bot personalities sharing one backend cannot read each
// other's context. Identical persona text always yields the same key.
func PersonaKey(persona string) string {
	sum := sha256.Sum256([]byte(persona))
	return hex.EncodeToString(sum[:8])
}
