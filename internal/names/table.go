// Package names turns raw action identifiers into display names.
package names

import (
	"encoding/json"
	"fmt"
	"os"
)

type Entry struct {
	ID int    `json:"id"`
	EN string `json:"en"`
	ZH string `json:"zh"`
}

// Table maps an action identifier (raw or cleaned) to its display names.
type Table map[string]Entry

func LoadJSON(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}
	return ParseJSON(b)
}

func ParseJSON(b []byte) (Table, error) {
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse names: %w", err)
	}
	if t == nil {
		t = Table{}
	}
	return t, nil
}

// Text picks the entry text for lang, falling back to the other language.
func (e Entry) Text(lang string) string {
	primary, other := e.ZH, e.EN
	if lang == LangEN {
		primary, other = e.EN, e.ZH
	}
	if primary != "" {
		return primary
	}
	return other
}
