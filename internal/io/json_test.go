package io

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"etl-template/internal/etlerr"
)

func TestJSONWriter_Load(t *testing.T) {
	ds := newDataset([]string{"col_b", "col_a", "col_c"},
		[]interface{}{100, "value1", true},
		[]interface{}{nil, "value2", "[1,2]"},
	)

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "nested_dir", "output.json")
	w := NewJSONWriter(filePath, nil)
	if err := w.Load(context.Background(), ds); err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	// Keys follow the column order, not the alphabet.
	want := `[
  {
    "col_b": 100,
    "col_a": "value1",
    "col_c": true
  },
  {
    "col_b": null,
    "col_a": "value2",
    "col_c": "[1,2]"
  }
]
`
	got, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read back output file %s: %v", filePath, err)
	}
	if string(got) != want {
		t.Errorf("file content mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestJSONWriter_EmptyDatasetIsNoop(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "output.json")
	if err := NewJSONWriter(filePath, nil).Load(context.Background(), newDataset([]string{"a"})); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(filePath); !os.IsNotExist(err) {
		t.Errorf("file should not be created, stat err = %v", err)
	}
}

func TestJSONWriter_DirectoryCreationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	conflictingFilePath := filepath.Join(tmpDir, "nested_dir")
	if err := os.WriteFile(conflictingFilePath, []byte("i am a file"), 0o644); err != nil {
		t.Fatalf("Failed to create conflicting file: %v", err)
	}
	filePath := filepath.Join(conflictingFilePath, "output.json")
	err := NewJSONWriter(filePath, nil).Load(context.Background(), newDataset([]string{"a"}, []interface{}{"1"}))
	assertKind(t, err, etlerr.ErrSave)
	if !strings.Contains(err.Error(), "create directory") {
		t.Errorf("error %q does not indicate directory creation failure", err.Error())
	}
}

func TestJSONWriter_Close(t *testing.T) {
	w := NewJSONWriter("unused.json", nil)
	for i := 0; i < 2; i++ {
		if err := w.Close(); err != nil {
			t.Errorf("Close() call %d returned unexpected error: %v", i+1, err)
		}
	}
}
