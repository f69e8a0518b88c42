package orchestrator

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/google/uuid"
)

// typeNameRegex matches the object types the server accepts
var typeNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateTypeName validates an object type such as "dog" or "user".
func ValidateTypeName(typ string) error {
	if typ == "" {
		return fmt.Errorf("type cannot be empty")
	}
	if len(typ) > 255 {
		return fmt.Errorf("type too long: %d characters (max: 255)", len(typ))
	}
	if !typeNameRegex.MatchString(typ) {
		return fmt.Errorf("invalid type format: %s", typ)
	}
	return nil
}

// ValidateBatchSize checks that size is within 1 and MaxBatchSize.
func ValidateBatchSize(size int) error {
	if size < 1 || size > MaxBatchSize {
		return fmt.Errorf("batch size must be between 1 and %d, got %d", MaxBatchSize, size)
	}
	return nil
}

// ValidateImportFile checks the path and extension of an import file.
func ValidateImportFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("import file cannot be empty")
	}
	if hasParentSegment(path) {
		return fmt.Errorf("import file contains invalid path traversal: %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("unsupported import file %s (expected .json, .yaml or .yml)", path)
	}
}

// hasParentSegment reports whether the cleaned path still climbs out with "..".
func hasParentSegment(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// ValidateSessionID checks that id is a session id issued by an import.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return nil
}

// ValidateObjects checks objects before they are sent in batches.
func ValidateObjects(objects []*paraclient.Object) error {
	if len(objects) == 0 {
		return fmt.Errorf("no objects to import")
	}
	seen := make(map[string]int, len(objects))
	for i, obj := range objects {
		if obj == nil {
			return fmt.Errorf("object %d is empty", i)
		}
		if obj.Type != "" {
			if err := ValidateTypeName(obj.Type); err != nil {
				return fmt.Errorf("object %d: %w", i, err)
			}
		}
		if obj.ID == "" {
			continue
		}
		if prev, ok := seen[obj.ID]; ok {
			return fmt.Errorf("object %d has the same id as object %d: %s", i, prev, obj.ID)
		}
		seen[obj.ID] = i
	}
	return nil
}
