//go:build !cgo

package syntax

// ASTAvailable reports whether the tree-sitter adapter is compiled in.
// Builds without cgo only have the text adapter.
func ASTAvailable() bool {
	return false
}

func newASTAdapter() Adapter {
	return NewTextAdapter()
}
