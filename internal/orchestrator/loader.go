package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LoadObjects reads objects from a JSON or YAML file. The file holds either
// a list of objects or a single object.
func LoadObjects(fs afero.Fs, path string) ([]*paraclient.Object, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAMLObjects(data)
	default:
		return ParseJSONObjects(data)
	}
}

// ParseJSONObjects decodes a JSON array of objects or a single object.
func ParseJSONObjects(data []byte) ([]*paraclient.Object, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []*paraclient.Object{}, nil
	}
	if data[0] == '[' {
		var objects []*paraclient.Object
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, fmt.Errorf("failed to parse objects: %w", err)
		}
		return objects, nil
	}
	var obj paraclient.Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse object: %w", err)
	}
	return []*paraclient.Object{&obj}, nil
}

// ParseYAMLObjects decodes YAML by converting it to JSON first so both
// formats share the same field mapping.
func ParseYAMLObjects(data []byte) ([]*paraclient.Object, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	if doc == nil {
		return []*paraclient.Object{}, nil
	}
	switch doc.(type) {
	case []any, map[string]any:
	default:
		return nil, fmt.Errorf("yaml must hold an object or a list of objects")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert yaml: %w", err)
	}
	return ParseJSONObjects(raw)
}
