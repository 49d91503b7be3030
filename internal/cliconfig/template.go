package cliconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bft-labs/indexcheck/internal/domain"
)

// LoadTemplate reads a JSON object from path for use as the record payload.
func LoadTemplate(path string) (domain.Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tmpl domain.Template
	if err := json.Unmarshal(b, &tmpl); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if tmpl == nil {
		return nil, errors.New("template must be a JSON object")
	}
	return tmpl, nil
}
