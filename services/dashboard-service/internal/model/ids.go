package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an opaque identifier assigned by the backend. The backend currently
// hands out sequential integers, but callers only ever forward the value.
type ID string

// String returns the identifier as given
func (id ID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both JSON numbers and JSON strings
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// FlexInt decodes counts the backend sometimes serialises as numeric strings
// (queued runs report their configured history count verbatim).
type FlexInt int64

// UnmarshalJSON accepts a number, a numeric string or null
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, err := n.Int64(); err == nil {
		*f = FlexInt(v)
		return nil
	}
	v, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", data, err)
	}
	*f = FlexInt(int64(v))
	return nil
}
