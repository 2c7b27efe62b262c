package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap is a custom type for JSONB columns holding structured payloads
// (signal evidence, raw platform data, audit details). The core never
// interprets platform-specific keys; only adapters do.
type JSONMap map[string]interface{}

// Scan implements sql.Scanner for JSONMap.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*m = JSONMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer for JSONMap.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil || len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// IntArray is a custom type for JSONB integer arrays (activity histograms).
type IntArray []int64

// Scan implements sql.Scanner for IntArray.
func (a *IntArray) Scan(value interface{}) error {
	if value == nil {
		*a = IntArray{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	if len(bytes) == 0 {
		*a = IntArray{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Value implements driver.Valuer for IntArray.
func (a IntArray) Value() (driver.Value, error) {
	if a == nil || len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}
