package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLanguageByExtension(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("app.py", nil))
	assert.Equal(t, "javascript", DetectLanguage("app.js", nil))
	assert.Equal(t, "typescript", DetectLanguage("app.ts", nil))
	assert.Equal(t, "java", DetectLanguage("App.java", nil))
	assert.Equal(t, "", DetectLanguage("README.md", nil))
}

func TestDetectLanguageByContentFallback(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("runner", []byte("#!/usr/bin/env python3\nprint('hi')\n")))
	assert.Equal(t, "javascript", DetectLanguage("runner", []byte("const x = 1;\nfunction f() {}\n")))
	assert.Equal(t, "java", DetectLanguage("runner", []byte("package com.acme;\nclass Widget {}\n")))
	assert.Equal(t, "", DetectLanguage("runner", []byte("plain text, no signal")))
}

func TestParseBytesPython(t *testing.T) {
	code := []byte(`
class Widget:
    def render(self, ctx):
        helper(ctx)
        self.paint(ctx)

def helper(ctx):
    pass
`)
	result, err := ParseBytes("widget.py", code)
	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, "python", result.Language)

	var sawClass, sawMethod, sawFreeFunc, sawDirectCall, sawAttrCall bool
	for _, e := range result.Entities {
		switch {
		case e.Type == "class" && e.Name == "Widget":
			sawClass = true
		case e.Type == "function" && e.Name == "render":
			sawMethod = true
			assert.True(t, e.IsMethod)
			assert.Equal(t, "Widget", e.ParentName)
			assert.Contains(t, e.Params, "ctx")
		case e.Type == "function" && e.Name == "helper":
			sawFreeFunc = true
			assert.False(t, e.IsMethod)
		case e.Type == "call" && e.Name == "helper":
			sawDirectCall = true
			assert.False(t, e.IsAttributeCall)
		case e.Type == "call" && e.Name == "paint":
			sawAttrCall = true
			assert.True(t, e.IsAttributeCall)
			assert.Equal(t, "self", e.CallModule)
		}
	}
	assert.True(t, sawClass)
	assert.True(t, sawMethod)
	assert.True(t, sawFreeFunc)
	assert.True(t, sawDirectCall)
	assert.True(t, sawAttrCall)
}

func TestParseBytesJavaScriptCallSites(t *testing.T) {
	code := []byte(`
function run(ctx) {
  helper(ctx);
  ctx.paint();
}
`)
	result, err := ParseBytes("app.js", code)
	require.NoError(t, err)
	require.NoError(t, result.Error)

	var direct, attr bool
	for _, e := range result.Entities {
		if e.Type != "call" {
			continue
		}
		if e.Name == "helper" && !e.IsAttributeCall {
			direct = true
		}
		if e.Name == "paint" && e.IsAttributeCall && e.CallModule == "ctx" {
			attr = true
		}
	}
	assert.True(t, direct)
	assert.True(t, attr)
}

func TestParseBytesJava(t *testing.T) {
	code := []byte(`
package com.acme;

import com.acme.util.Helper;

class Widget {
    void render(Context ctx) {
        Helper.assist(ctx);
    }
}
`)
	result, err := ParseBytes("Widget.java", code)
	require.NoError(t, err)
	require.NoError(t, result.Error)
	assert.Equal(t, "java", result.Language)

	var sawClass, sawMethod, sawImport, sawCall bool
	for _, e := range result.Entities {
		switch {
		case e.Type == "class" && e.Name == "Widget":
			sawClass = true
		case e.Type == "function" && e.Name == "render":
			sawMethod = true
		case e.Type == "import" && e.ImportPath == "com.acme.util.Helper":
			sawImport = true
		case e.Type == "call" && e.Name == "assist":
			sawCall = true
			assert.True(t, e.IsAttributeCall)
		}
	}
	assert.True(t, sawClass)
	assert.True(t, sawMethod)
	assert.True(t, sawImport)
	assert.True(t, sawCall)
}

func TestParseBytesUnsupportedExtension(t *testing.T) {
	result, err := ParseBytes("data.bin", []byte{0x00, 0x01, 0x02})
	require.NoError(t, err)
	require.Error(t, result.Error)
}

func TestToASTNodeRoundTripsByteRange(t *testing.T) {
	code := []byte("def f():\n    pass\n")
	root, lang, err := ParseAST("x.py", code)
	require.NoError(t, err)
	assert.Equal(t, "python", lang)
	require.NotNil(t, root)
	assert.Equal(t, uint32(0), root.StartByte)
	assert.Equal(t, uint32(len(code)), root.EndByte)
}
