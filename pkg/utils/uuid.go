package utils

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewOpaqueID returns a time-ordered (v7) UUID in its 32 character hex form.
// The dashless form keeps callback payloads short and URL-safe.
func NewOpaqueID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(id[:]), nil
}

// MustOpaqueID is NewOpaqueID for callers that cannot handle a failing
// random source.
func MustOpaqueID() string {
	id, err := NewOpaqueID()
	if err != nil {
		panic("failed to generate id: " + err.Error())
	}
	return id
}
