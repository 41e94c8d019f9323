package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt CS-Cart отдает числа то строкой, то числом
type FlexInt int

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*i = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*i = FlexInt(n)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*i = FlexInt(int(f))
	return nil
}

func (i FlexInt) Int() int {
	return int(i)
}
