package types

// NodeType identifies the type of an AST node.
type NodeType string

// AST node types for the GoSpel expression language.
const (
	// Literals
	NodeString  NodeType = "string"
	NodeNumber  NodeType = "number"
	NodeBoolean NodeType = "boolean"
	NodeNull    NodeType = "null"

	// References
	NodeProperty NodeType = "property" // bare name, resolved on the active context object
	NodeCompound NodeType = "compound" // dotted navigation: a.b.c
	NodeVariable NodeType = "variable" // #name
	NodeCall     NodeType = "call"     // #name(args...)
	NodeTypeRef  NodeType = "typeref"  // T(name)

	// Operators
	NodeBinary  NodeType = "binary"  // and, or, ==, <, +, matches, ...
	NodeUnary   NodeType = "unary"   // -, !, not
	NodeTernary NodeType = "ternary" // cond ? a : b
)

// ASTNode represents a node in the Abstract Syntax Tree.
//
// Nodes are built once by the parser and are read-only during evaluation;
// an Expression may therefore be evaluated concurrently by many goroutines.
type ASTNode struct {
	Type     NodeType
	Value    interface{} // literal value: string, int64, float64, bool, nil
	StrValue string      // pre-typed name/operator; set for Property, Variable, Call, TypeRef, Binary, Unary
	Position int         // byte offset of the node in the expression source

	// Relations
	LHS   *ASTNode   // left operand (Binary), operand (Unary), condition (Ternary)
	RHS   *ASTNode   // right operand (Binary), "then" branch (Ternary)
	Else  *ASTNode   // "else" branch (Ternary)
	Steps []*ASTNode // navigation steps (Compound)
	Args  []*ASTNode // call arguments (Call)
}

// NewASTNode creates a new AST node of the specified type.
// Prefer NodeArena.Alloc when parsing to reduce per-node heap allocations.
func NewASTNode(nodeType NodeType, position int) *ASTNode {
	return &ASTNode{
		Type:     nodeType,
		Position: position,
	}
}

// String returns a string representation of the node type.
func (n *ASTNode) String() string {
	return string(n.Type)
}

// arenaChunkSize is the number of ASTNode values pre-allocated per arena chunk.
// Most expressions fit well inside a single chunk.
const arenaChunkSize = 64

// NodeArena is a bump-pointer allocator for ASTNode values.
//
// Instead of allocating each node individually on the heap, the arena
// pre-allocates fixed-size chunks of ASTNode structs and returns pointers
// into them, so a typical expression costs a single allocation at parse time.
//
// # Lifetime
//
// The arena must stay alive as long as any pointer returned by Alloc is
// reachable. Attaching the arena to the [Expression] achieves this: the GC
// collects the arena together with the Expression.
//
// # Thread safety
//
// NodeArena is NOT thread-safe. Each parser owns its own arena and the arena
// is never shared across goroutines.
type NodeArena struct {
	chunks [][]ASTNode
	pos    int // next free index in the last chunk
}

// NewNodeArena allocates an arena pre-warmed with one initial chunk.
func NewNodeArena() *NodeArena {
	return &NodeArena{
		chunks: [][]ASTNode{make([]ASTNode, arenaChunkSize)},
		pos:    0,
	}
}

// Alloc returns a pointer to a zero-valued ASTNode inside the arena, with
// Type and Position set. All other fields remain at their zero values and
// must be filled by the caller.
func (a *NodeArena) Alloc(nodeType NodeType, position int) *ASTNode {
	if a.pos >= arenaChunkSize {
		a.chunks = append(a.chunks, make([]ASTNode, arenaChunkSize))
		a.pos = 0
	}
	n := &a.chunks[len(a.chunks)-1][a.pos]
	a.pos++
	n.Type = nodeType
	n.Position = position
	return n
}
