package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringSet is a small set of strings persisted as a comma-joined text
// column. gorm's postgres driver here is pgx-based, not lib/pq, so we don't
// get a ready-made array scanner; a comma-joined column is the simplest
// thing that round-trips through AutoMigrate without another dependency.
type StringSet map[string]struct{}

// NewStringSet builds a StringSet from a slice of symbols/instrument classes.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

func (s StringSet) Slice() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}

func (s StringSet) Value() (driver.Value, error) {
	return strings.Join(s.Slice(), ","), nil
}

func (s *StringSet) Scan(value interface{}) error {
	if value == nil {
		*s = StringSet{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("model: cannot scan %T into StringSet", value)
	}

	set := StringSet{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			set[part] = struct{}{}
		}
	}
	*s = set
	return nil
}

// JSONColumn persists an arbitrary struct as a JSON text column. gorm has no
// built-in portable JSON type across the postgres/sqlite drivers this module
// targets, so DecisionRecord's nested snapshot and result payloads go through
// this rather than a driver-specific jsonb type.
type JSONColumn[T any] struct {
	Val T
	set bool
}

func NewJSONColumn[T any](v T) JSONColumn[T] {
	return JSONColumn[T]{Val: v, set: true}
}

func (c JSONColumn[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Val)
}

func (c *JSONColumn[T]) UnmarshalJSON(data []byte) error {
	c.set = true
	return json.Unmarshal(data, &c.Val)
}

func (c JSONColumn[T]) Value() (driver.Value, error) {
	if !c.set {
		return nil, nil
	}
	b, err := json.Marshal(c.Val)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *JSONColumn[T]) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("model: cannot scan %T into JSONColumn", value)
	}
	if len(raw) == 0 {
		return nil
	}
	c.set = true
	return json.Unmarshal(raw, &c.Val)
}
