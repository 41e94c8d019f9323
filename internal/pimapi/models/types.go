package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString принимает из JSON как строку, так и число.
// PIM отдает идентификаторы то числом, то строкой.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// FlexFloat принимает число, числовую строку или null. Пустая строка - 0.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
		if v == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexFloat(n)
	return nil
}

func (f FlexFloat) Float64() float64 {
	return float64(f)
}

// FlexBool принимает true/false, 0/1, "Y"/"N".
type FlexBool bool

func (v *FlexBool) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch strings.ToLower(strings.Trim(string(b), `"`)) {
	case "true", "1", "y", "yes":
		*v = true
	default:
		*v = false
	}
	return nil
}
