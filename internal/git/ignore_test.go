package git

import "testing"

func TestIgnorePolicyMatchesDefaults(t *testing.T) {
	p := newIgnorePolicy(nil)

	ignored := []string{
		"node_modules/lodash/index.js",
		"src/node_modules/x.js",
		".git/HEAD",
		"dist/bundle.min.js",
		"vendor/github.com/pkg/errors/errors.go",
	}
	for _, path := range ignored {
		if !p.Ignored(path) {
			t.Errorf("expected %q to be ignored", path)
		}
	}

	kept := []string{"src/main.py", "app/widget.ts", "pkg/server/server.go"}
	for _, path := range kept {
		if p.Ignored(path) {
			t.Errorf("expected %q not to be ignored", path)
		}
	}
}

func TestIgnorePolicyExtraPatterns(t *testing.T) {
	p := newIgnorePolicy([]string{"**/*.generated.go"})
	if !p.Ignored("internal/api/client.generated.go") {
		t.Error("expected extra pattern to match")
	}
}

func TestIsBinaryDetectsNullBytes(t *testing.T) {
	text := []byte("package main\n\nfunc main() {}\n")
	if isBinary(text) {
		t.Error("expected plain source text to be classified as text")
	}

	binary := []byte{0x50, 0x4B, 0x03, 0x04, 0x00, 0x00} // zip magic + nulls
	if !isBinary(binary) {
		t.Error("expected zip-magic content to be classified as binary")
	}
}

func TestIsBinaryAllowsTabsAndEscapes(t *testing.T) {
	// 0x09 (tab) and 0x0A/0x0D (LF/CR) fall in {0x07-0x0D}; 0x1B (ESC) is
	// also textual per spec's byte set, e.g. ANSI-colored log fixtures.
	content := []byte{'a', '\t', '\n', '\r', 0x1B, 'b'}
	if isBinary(content) {
		t.Error("expected tabs/newlines/ESC to be classified as textual")
	}
}

func TestIsBinaryRejectsDEL(t *testing.T) {
	if !isBinary([]byte{0x7F}) {
		t.Error("expected DEL (0x7F) to be classified as binary")
	}
}
