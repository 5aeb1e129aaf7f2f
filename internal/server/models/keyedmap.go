package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// KeyedMap is a string-to-string map persisted as a JSONB object. It backs
// project picture slots (slot -> URL) and likes (account id -> email).
type KeyedMap map[string]string

// Put inserts or replaces the value under key.
func (m KeyedMap) Put(key, value string) {
	m[key] = value
}

// Delete removes key. Removing an absent key is a no-op.
func (m KeyedMap) Delete(key string) {
	delete(m, key)
}

func (m KeyedMap) Len() int {
	return len(m)
}

// Value implements driver.Valuer. A nil map is stored as an empty object.
func (m KeyedMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]string(m))
}

// Scan implements sql.Scanner for JSON text or bytes.
func (m *KeyedMap) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = KeyedMap{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("keyed map: unsupported source %T", src)
	}

	out := map[string]string{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return fmt.Errorf("keyed map: %w", err)
		}
	}
	*m = out
	return nil
}
