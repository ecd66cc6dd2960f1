package ingestion

import (
	"testing"

	"github.com/coderisk/codegraph/internal/model"
	"github.com/coderisk/codegraph/internal/treesitter"
)

func TestBuildConvertedFileGroupsEntitiesByType(t *testing.T) {
	file := model.NewFile("acme/widgets", "pkg/widget.py", "python", "", "deadbeef", "main")

	entities := []treesitter.CodeEntity{
		{Type: "class", Name: "Widget", StartLine: 1, EndLine: 20, Bases: []string{"Base"}},
		{Type: "function", Name: "render", StartLine: 2, EndLine: 5, IsMethod: true, ParentName: "Widget"},
		{Type: "function", Name: "helper", StartLine: 22, EndLine: 24},
		{Type: "call", Name: "helper", StartLine: 3, StartCol: 4},
		{Type: "import", Name: "utils", ImportPath: "pkg.utils", StartLine: 1},
	}

	conv := buildConvertedFile(file, entities)

	if len(conv.Classes) != 1 || conv.Classes[0].Name != "Widget" {
		t.Fatalf("expected one Widget class, got %+v", conv.Classes)
	}
	if len(conv.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(conv.Functions))
	}
	var render *model.Function
	for _, fn := range conv.Functions {
		if fn.Name == "render" {
			render = fn
		}
	}
	if render == nil || render.ClassID != conv.Classes[0].ID {
		t.Fatalf("expected render method's ClassID to match Widget's id, got %+v", render)
	}

	if len(conv.CallSites) != 1 {
		t.Fatalf("expected 1 call site, got %d", len(conv.CallSites))
	}
	if conv.CallSites[0].CallerFunctionID != render.ID {
		t.Errorf("expected call at line 3 to attribute to render (lines 2-5), got caller %q", conv.CallSites[0].CallerFunctionID)
	}
	if conv.CallSites[0].CallerClassID != conv.Classes[0].ID {
		t.Errorf("expected call site's class to carry through from its enclosing method")
	}

	if len(conv.ImportSites) != 1 || conv.ImportSites[0].ModuleName != "pkg.utils" {
		t.Fatalf("expected 1 import site for pkg.utils, got %+v", conv.ImportSites)
	}
}

func TestBuildConvertedFileCallOutsideAnyFunctionHasNoCaller(t *testing.T) {
	file := model.NewFile("acme/widgets", "pkg/script.py", "python", "", "deadbeef", "main")
	entities := []treesitter.CodeEntity{
		{Type: "call", Name: "run", StartLine: 1, StartCol: 0},
	}
	conv := buildConvertedFile(file, entities)
	if len(conv.CallSites) != 1 {
		t.Fatalf("expected 1 call site, got %d", len(conv.CallSites))
	}
	if conv.CallSites[0].CallerFunctionID != "" {
		t.Errorf("expected module-level call to have no enclosing function, got %q", conv.CallSites[0].CallerFunctionID)
	}
}

func TestEnclosingFunctionPicksInnermostSpan(t *testing.T) {
	functions := []*model.Function{
		{ID: "outer", StartLine: 1, EndLine: 50},
		{ID: "inner", StartLine: 10, EndLine: 15},
	}
	fnID, _ := enclosingFunction(functions, 12)
	if fnID != "inner" {
		t.Errorf("expected innermost function to win, got %q", fnID)
	}
}

func TestEnclosingFunctionNoMatch(t *testing.T) {
	functions := []*model.Function{{ID: "fn", StartLine: 10, EndLine: 20}}
	fnID, classID := enclosingFunction(functions, 5)
	if fnID != "" || classID != "" {
		t.Errorf("expected no match outside any function range, got fn=%q class=%q", fnID, classID)
	}
}
