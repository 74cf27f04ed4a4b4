package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID (a bare UUID, as returned to API callers)
func NewJobID() string {
	return uuid.New().String()
}
