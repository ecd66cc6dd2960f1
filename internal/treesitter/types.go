package treesitter

// CodeEntity represents an extracted code entity (function, class, import,
// call, or file). These are the language-agnostic records the Parser
// produces before the GraphWriter translates them into model.Class,
// model.Function, model.CallSite, and model.ImportSite nodes.
type CodeEntity struct {
	Type       string // "function", "class", "import", "call", "file"
	Name       string
	FilePath   string
	StartLine  int // 1-based
	EndLine    int
	StartCol   int // 0-based
	EndCol     int
	StartByte  uint32
	EndByte    uint32
	Language   string
	Signature  string   // declaration text, e.g. "def f(a, b) -> int" or "class C(Base)"
	Params     []string // for functions: parameter names (self/cls excluded)
	Docstring  string
	Bases      []string // for classes: unresolved base-class identifier texts
	IsMethod   bool
	ParentName string // enclosing class name, for methods and calls on instances

	ImportPath   string // for imports: module/package text
	Alias        string
	IsFromImport bool

	// Call-site specific fields (Type == "call").
	CallModule      string // object/namespace when the callee is an attribute access
	IsAttributeCall bool

	Complexity int // cyclomatic complexity (optional, unused by the graph pipeline)
}

// ParseResult contains all entities extracted from a file.
type ParseResult struct {
	FilePath string
	Language string
	Entities []CodeEntity
	Error    error
}

// ASTNode is the uniform, serializable AST node described in spec.md §4.2:
// every node carries its native type, byte/point ranges, optional leaf text,
// and an ordered list of children. Rows/columns are 0-based.
type ASTNode struct {
	Type       string     `json:"type"`
	StartByte  uint32     `json:"start_byte"`
	EndByte    uint32     `json:"end_byte"`
	StartPoint Point      `json:"start_point"`
	EndPoint   Point      `json:"end_point"`
	Text       string     `json:"text,omitempty"`
	Children   []*ASTNode `json:"children,omitempty"`
}

// Point is a 0-based row/column position.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}
