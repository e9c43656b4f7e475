// Package rewrite is the macro call rewriter: a per-file source transform that
// finds macro calls in HCL source and replaces them with literal values.
//
// The rewriter walks the syntax tree of a file and dispatches on the closed set
// of macro kinds. Each handler evaluates the call's arguments statically, with
// an evaluation context that has no variables and whose functions are the
// macros themselves (bound to the package that owns the file) plus a few pure
// helpers. Replacements are byte-range edits on the original source, so
// everything the rewriter does not touch keeps its original text.
//
// A conditional whose condition contains macroCondition and reduces to a
// literal is replaced by the branch that survives: the other branch is gone
// from the output.
//
// The rewriter only reads from a sealed configuration registry. It never
// mutates shared state, so files may be rewritten concurrently.
package rewrite
