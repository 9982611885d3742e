package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/go-querystring/query"
)

// URLValues encodes a struct tagged with `url:"..."`.
func URLValues(params interface{}) (url.Values, error) {
	v, err := query.Values(params)
	if err != nil {
		return nil, fmt.Errorf("encode url params: %w", err)
	}
	return v, nil
}

func EncodeURLParams(params interface{}) (string, error) {
	v, err := URLValues(params)
	if err != nil {
		return "", err
	}
	return v.Encode(), nil
}

// BeautifyJSON indents data for the file log, keeping key order. Non-JSON
// input is returned unchanged.
func BeautifyJSON(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

// TruncateForLog cuts value to at most length runes.
func TruncateForLog(value string, length int) string {
	if length <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= length {
		return value
	}
	return string(runes[:length])
}
