package occumap

import (
	"path/filepath"
	"testing"
)

func TestJsonDumpsRoundTripsSimpleStruct(t *testing.T) {
	s := MapSummary{NumBlocks: 2, NumLeaves: 5}
	got, err := JsonDumps(s)
	if err != nil {
		t.Fatalf("JsonDumps returned error: %v", err)
	}
	if got == "" {
		t.Fatalf("JsonDumps returned an empty string")
	}
}

func TestWriteJsonWritesToVFSFile(t *testing.T) {
	s := MapSummary{NumBlocks: 3, NumLeaves: 9}
	uri := filepath.Join(t.TempDir(), "summary.json")

	n, err := WriteJson(uri, "", s)
	if err != nil {
		t.Fatalf("WriteJson returned error: %v", err)
	}
	if n == 0 {
		t.Fatalf("WriteJson wrote 0 bytes")
	}
}
