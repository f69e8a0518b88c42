package orchestrator

import (
	"strings"
	"testing"

	"github.com/erudika/para-client-go/pkg/paraclient"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTypeName(t *testing.T) {
	cases := []struct {
		name    string
		typ     string
		wantErr bool
	}{
		{name: "Should accept a simple type", typ: "dog"},
		{name: "Should accept dashes and underscores", typ: "blog_post-v2"},
		{name: "Should reject an empty type", typ: "", wantErr: true},
		{name: "Should reject slashes", typ: "dogs/1", wantErr: true},
		{name: "Should reject spaces", typ: "big dog", wantErr: true},
		{name: "Should reject long types", typ: strings.Repeat("a", 256), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTypeName(tc.typ)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateImportFile(t *testing.T) {
	t.Run("Should accept json and yaml", func(t *testing.T) {
		assert.NoError(t, ValidateImportFile("data/dogs.json"))
		assert.NoError(t, ValidateImportFile("dogs.YAML"))
		assert.NoError(t, ValidateImportFile("dogs.yml"))
	})

	t.Run("Should accept dots inside file names", func(t *testing.T) {
		assert.NoError(t, ValidateImportFile("a..b.json"))
		assert.NoError(t, ValidateImportFile("exports/dogs..2024.yaml"))
		assert.NoError(t, ValidateImportFile("data/../dogs.json"))
	})

	t.Run("Should reject other files", func(t *testing.T) {
		assert.Error(t, ValidateImportFile(""))
		assert.Error(t, ValidateImportFile("../dogs.json"))
		assert.Error(t, ValidateImportFile("data/../../dogs.json"))
		assert.Error(t, ValidateImportFile("dogs.txt"))
	})
}

func TestValidateBatchSize(t *testing.T) {
	t.Run("Should bound the batch size", func(t *testing.T) {
		assert.NoError(t, ValidateBatchSize(1))
		assert.NoError(t, ValidateBatchSize(MaxBatchSize))
		assert.Error(t, ValidateBatchSize(0))
		assert.Error(t, ValidateBatchSize(MaxBatchSize+1))
	})
}

func TestValidateSessionID(t *testing.T) {
	t.Run("Should accept issued ids only", func(t *testing.T) {
		assert.NoError(t, ValidateSessionID(uuid.New().String()))
		assert.Error(t, ValidateSessionID("latest"))
	})
}

func TestValidateObjects(t *testing.T) {
	t.Run("Should accept objects without ids", func(t *testing.T) {
		objs := []*paraclient.Object{paraclient.NewObject("", "dog"), paraclient.NewObject("", "dog")}
		assert.NoError(t, ValidateObjects(objs))
	})

	t.Run("Should reject nil and invalid objects", func(t *testing.T) {
		assert.Error(t, ValidateObjects(nil))
		assert.Error(t, ValidateObjects([]*paraclient.Object{nil}))
		assert.Error(t, ValidateObjects([]*paraclient.Object{paraclient.NewObject("1", "bad type")}))
	})
}

func TestLoadObjects(t *testing.T) {
	t.Run("Should read a single json object", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "dog.json", []byte(`{"id":"d1","type":"dog","color":"brown"}`), 0o600))
		objs, err := LoadObjects(fs, "dog.json")
		require.NoError(t, err)
		require.Len(t, objs, 1)
		assert.Equal(t, "d1", objs[0].ID)
		assert.Equal(t, "brown", objs[0].Properties["color"])
	})

	t.Run("Should read a yaml list with custom fields", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		content := "- id: d1\n  type: dog\n  tags: [good, small]\n  age: 3\n"
		require.NoError(t, afero.WriteFile(fs, "dogs.yml", []byte(content), 0o600))
		objs, err := LoadObjects(fs, "dogs.yml")
		require.NoError(t, err)
		require.Len(t, objs, 1)
		assert.Equal(t, []string{"good", "small"}, objs[0].Tags)
		assert.InDelta(t, 3, objs[0].Properties["age"], 0)
	})

	t.Run("Should accept empty files", func(t *testing.T) {
		objs, err := ParseJSONObjects([]byte("  "))
		require.NoError(t, err)
		assert.Empty(t, objs)
		objs, err = ParseYAMLObjects([]byte(""))
		require.NoError(t, err)
		assert.Empty(t, objs)
	})

	t.Run("Should reject scalars and bad syntax", func(t *testing.T) {
		_, err := ParseYAMLObjects([]byte("just text"))
		assert.Error(t, err)
		_, err = ParseJSONObjects([]byte("[{"))
		assert.Error(t, err)
	})
}
