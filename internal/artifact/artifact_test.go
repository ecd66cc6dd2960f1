package artifact

import (
	"path/filepath"
	"testing"
)

func TestWriteAndReadGraphOutputRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph_output.json")

	want := &GraphOutput{
		Repository:     "acme/widgets",
		FilesProcessed: 12,
		GraphStats: GraphStats{
			Files: 12, Classes: 4, Functions: 31, CallSites: 58,
			ResolvedCalls: 50, Relationships: 89,
		},
	}
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	got, err := ReadGraphOutput(path)
	if err != nil {
		t.Fatalf("ReadGraphOutput() error = %v", err)
	}
	if got.Repository != want.Repository || got.GraphStats.Functions != want.GraphStats.Functions {
		t.Errorf("round-tripped output mismatch: got %+v, want %+v", got, want)
	}
}

func TestReadGitOutputMissingFileErrors(t *testing.T) {
	if _, err := ReadGitOutput(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error reading a nonexistent artifact file")
	}
}
