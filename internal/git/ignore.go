package git

import "github.com/bmatcuk/doublestar/v4"

// defaultIgnorePatterns covers VCS metadata and the build/cache/dependency
// directories every one of Python/JavaScript/TypeScript/Java's toolchains
// produces, so a full scan never walks into generated output.
var defaultIgnorePatterns = []string{
	".git/**",
	"**/.git/**",
	"**/node_modules/**",
	"**/vendor/**",
	"**/venv/**",
	"**/.venv/**",
	"**/__pycache__/**",
	"**/.pytest_cache/**",
	"**/.tox/**",
	"**/dist/**",
	"**/build/**",
	"**/out/**",
	"**/target/**",
	"**/.next/**",
	"**/.nuxt/**",
	"**/.cache/**",
	"**/.parcel-cache/**",
	"**/coverage/**",
	"**/.nyc_output/**",
	"**/.idea/**",
	"**/.vscode/**",
	"**/*.min.js",
	"**/*.bundle.js",
}

// ignorePolicy decides whether a relative path should be dropped before it
// ever reaches the Parser (spec §4.1 step 4).
type ignorePolicy struct {
	patterns []string
}

func newIgnorePolicy(extra []string) *ignorePolicy {
	patterns := make([]string, 0, len(defaultIgnorePatterns)+len(extra))
	patterns = append(patterns, defaultIgnorePatterns...)
	patterns = append(patterns, extra...)
	return &ignorePolicy{patterns: patterns}
}

// Ignored reports whether relPath (forward-slash, repo-root-relative)
// matches any ignore glob.
func (p *ignorePolicy) Ignored(relPath string) bool {
	for _, pattern := range p.patterns {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}
	return false
}

// textualByte is the byte set spec §4.1 calls textual:
// {0x07-0x0D, 0x1B} ∪ [0x20,0xFF) \ {0x7F}.
func textualByte(b byte) bool {
	switch {
	case b >= 0x07 && b <= 0x0D:
		return true
	case b == 0x1B:
		return true
	case b >= 0x20 && b < 0xFF && b != 0x7F:
		return true
	default:
		return false
	}
}

// isBinary reports whether chunk contains any byte outside the textual set
// (spec §4.1's exact binary-sniff algorithm).
func isBinary(chunk []byte) bool {
	for _, b := range chunk {
		if !textualByte(b) {
			return true
		}
	}
	return false
}

// binarySniffWindow is how much of a file's head isBinary inspects; reading
// the whole file just to classify it would defeat the point of a sniff.
const binarySniffWindow = 8192

// sniffBinary classifies content by its first binarySniffWindow bytes.
func sniffBinary(content []byte) bool {
	if len(content) > binarySniffWindow {
		content = content[:binarySniffWindow]
	}
	return isBinary(content)
}
