package ingestion

import (
	"github.com/coderisk/codegraph/internal/model"
	"github.com/coderisk/codegraph/internal/treesitter"
)

// convertedFile is the per-file result of turning a Parser's flat
// CodeEntity list into the typed model records the GraphWriter expects
// (spec §4.2's extraction-pass records, reshaped into spec §3's entities).
type convertedFile struct {
	Classes     []*model.Class
	Functions   []*model.Function
	CallSites   []*model.CallSite
	ImportSites []*model.ImportSite
}

// buildConvertedFile groups entities by type, assigns content-derived ids,
// and resolves each call site's immediately-enclosing function/class by line
// range (the Parser only records a call's enclosing *class* name; the
// enclosing function is recovered here since both lists are now available).
func buildConvertedFile(file *model.File, entities []treesitter.CodeEntity) *convertedFile {
	out := &convertedFile{}

	classIDByName := make(map[string]string)
	for _, e := range entities {
		if e.Type != "class" {
			continue
		}
		id := model.ClassID(file.ID, e.Name)
		classIDByName[e.Name] = id
		out.Classes = append(out.Classes, &model.Class{
			ID:        id,
			Name:      e.Name,
			FileID:    file.ID,
			StartLine: e.StartLine,
			EndLine:   e.EndLine,
			Docstring: e.Docstring,
			Bases:     e.Bases,
		})
	}

	for _, e := range entities {
		if e.Type != "function" {
			continue
		}
		classID := ""
		if e.IsMethod && e.ParentName != "" {
			classID = classIDByName[e.ParentName]
		}
		out.Functions = append(out.Functions, &model.Function{
			ID:        model.FunctionID(file.ID, e.Name, classID),
			Name:      e.Name,
			FileID:    file.ID,
			ClassID:   classID,
			StartLine: e.StartLine,
			EndLine:   e.EndLine,
			StartByte: e.StartByte,
			EndByte:   e.EndByte,
			Params:    e.Params,
			Docstring: e.Docstring,
			IsMethod:  e.IsMethod,
		})
	}

	for _, e := range entities {
		if e.Type != "call" {
			continue
		}
		callerFnID, callerClassID := enclosingFunction(out.Functions, e.StartLine)
		if callerClassID == "" && e.ParentName != "" {
			callerClassID = classIDByName[e.ParentName]
		}
		out.CallSites = append(out.CallSites, &model.CallSite{
			ID:               model.CallSiteID(file.ID, e.StartLine, e.StartCol, e.Name),
			CallerFileID:     file.ID,
			CallerFunctionID: callerFnID,
			CallerClassID:    callerClassID,
			CallName:         e.Name,
			CallModule:       e.CallModule,
			StartLine:        e.StartLine,
			StartCol:         e.StartCol,
			EndLine:          e.EndLine,
			EndCol:           e.EndCol,
			IsAttributeCall:  e.IsAttributeCall,
		})
	}

	for _, e := range entities {
		if e.Type != "import" {
			continue
		}
		kind := "import"
		if e.IsFromImport {
			kind = "from_import"
		}
		qualifiedName := e.ImportPath + "." + e.Name
		out.ImportSites = append(out.ImportSites, &model.ImportSite{
			ID:           model.ImportSiteID(file.ID, kind, e.StartLine, qualifiedName),
			FileID:       file.ID,
			ImportName:   e.Name,
			ModuleName:   e.ImportPath,
			Alias:        e.Alias,
			IsFromImport: e.IsFromImport,
			StartLine:    e.StartLine,
		})
	}

	return out
}

// enclosingFunction finds the innermost Function whose line range contains
// startLine, returning (functionID, classID). Innermost is the function
// with the smallest span, so a call inside a nested closure attributes to
// the closure rather than its outer function.
func enclosingFunction(functions []*model.Function, startLine int) (fnID, classID string) {
	bestSpan := -1
	for _, fn := range functions {
		if startLine < fn.StartLine || startLine > fn.EndLine {
			continue
		}
		span := fn.EndLine - fn.StartLine
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			fnID = fn.ID
			classID = fn.ClassID
		}
	}
	return fnID, classID
}
