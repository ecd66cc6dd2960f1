package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileIDStable(t *testing.T) {
	id1 := FileID("acme/widgets", "src/app.py")
	id2 := FileID("acme/widgets", "src/app.py")
	assert.Equal(t, id1, id2, "same repo+path must hash to the same id")

	id3 := FileID("acme/widgets", "src/other.py")
	assert.NotEqual(t, id1, id3)
}

func TestNewFilePopulatesID(t *testing.T) {
	f := NewFile("acme/widgets", "src/app.py", "python", "https://example.com/acme/widgets", "abc123", "main")
	require.NotEmpty(t, f.ID)
	assert.Equal(t, FileID("acme/widgets", "src/app.py"), f.ID)
	assert.Equal(t, "app.py", f.Name)
}

func TestClassAndFunctionIDsDeriveFromFileID(t *testing.T) {
	fileID := FileID("acme/widgets", "src/app.py")
	classID := ClassID(fileID, "Widget")
	methodID := FunctionID(fileID, "render", classID)
	freeFuncID := FunctionID(fileID, "render", "")

	assert.NotEqual(t, methodID, freeFuncID, "method and free function with the same name must not collide")
	assert.NotEmpty(t, classID)
}

func TestCallSiteIDIsPerSiteNotPerName(t *testing.T) {
	fileID := FileID("acme/widgets", "src/app.py")
	first := CallSiteID(fileID, 10, 4, "f")
	second := CallSiteID(fileID, 20, 4, "f")
	assert.NotEqual(t, first, second, "two calls to the same name at different positions are distinct placeholders")

	repeat := CallSiteID(fileID, 10, 4, "f")
	assert.Equal(t, first, repeat)
}

func TestCallSiteResolved(t *testing.T) {
	cs := &CallSite{ID: "x"}
	assert.False(t, cs.Resolved())
	cs.ResolvedFunctionID = "y"
	assert.True(t, cs.Resolved())
}

func TestRepoKey(t *testing.T) {
	assert.Equal(t, "https://example.com/acme/widgets#main", RepoKey("https://example.com/acme/widgets", "main"))
}
