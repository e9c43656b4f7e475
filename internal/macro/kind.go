// Package macro defines the closed vocabulary of build-time macros and the
// error types shared by the rewriter and the runtime shim.
//
// A macro is an ordinary HCL function call whose name is one of the Kind
// names below. The rewriter replaces such calls with literal values before the
// configuration is evaluated; the shim provides the stand-ins that run when a
// call survives un-rewritten.
package macro

// Kind enumerates the recognized macro functions.
type Kind int

const (
	// Unknown is the zero Kind; it never matches a call site.
	Unknown Kind = iota
	DependencySatisfies
	MacroCondition
	Each
	ImportSync
	GetConfig
	GetOwnConfig
	FailBuild
	ModuleExists
)

var kindNames = map[Kind]string{
	DependencySatisfies: "dependencySatisfies",
	MacroCondition:      "macroCondition",
	Each:                "each",
	ImportSync:          "importSync",
	GetConfig:           "getConfig",
	GetOwnConfig:        "getOwnConfig",
	FailBuild:           "failBuild",
	ModuleExists:        "moduleExists",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the function name callers write in source.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Lookup maps a called function name to its Kind.
func Lookup(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Kinds returns every recognized Kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		DependencySatisfies,
		MacroCondition,
		Each,
		ImportSync,
		GetConfig,
		GetOwnConfig,
		FailBuild,
		ModuleExists,
	}
}

// Arity is the number of arguments each macro accepts.
func (k Kind) Arity() int {
	switch k {
	case DependencySatisfies:
		return 2
	case GetOwnConfig:
		return 0
	case Unknown:
		return -1
	default:
		return 1
	}
}
