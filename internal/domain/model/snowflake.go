package model

import (
	"bytes"
	"fmt"
	"strconv"
)

// Snowflake is a 64-bit platform identifier.
//
// [WIRE_FORMAT]
// Always travels as a decimal string. Bare JSON numbers are accepted only when
// they are plain unsigned integers, so a value never passes through float64.
type Snowflake uint64

// ParseSnowflake parses a decimal identifier.
func ParseSnowflake(s string) (Snowflake, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid snowflake %q: %w", s, err)
	}
	return Snowflake(v), nil
}

// SnowflakePtr parses s and returns nil when it is empty or not an identifier.
func SnowflakePtr(s string) *Snowflake {
	if s == "" {
		return nil
	}
	v, err := ParseSnowflake(s)
	if err != nil {
		return nil
	}
	return &v
}

func (s Snowflake) String() string { return strconv.FormatUint(uint64(s), 10) }

func (s Snowflake) IsZero() bool { return s == 0 }

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return strconv.AppendQuote(nil, s.String()), nil
}

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		unq, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("%w: snowflake: %v", ErrMalformed, err)
		}
		raw = unq
	}

	v, err := ParseSnowflake(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	*s = v
	return nil
}
