package models

import "time"

// StoredValue is one entry of the persisted key-value store.
type StoredValue struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}
