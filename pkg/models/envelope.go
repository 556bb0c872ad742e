package models

import "time"

// Envelope is the response shape shared by the backend and the webhook.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Reason returns the most specific failure text carried by the envelope.
func (e Envelope[T]) Reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// User is the locally persisted account record.
type User struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}
