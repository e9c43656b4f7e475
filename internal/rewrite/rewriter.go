package rewrite

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/macro"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/zclconf/go-cty/cty"
)

// Mode selects how configuration macros are rewritten.
type Mode int

const (
	// BuildTime replaces every macro with its literal value.
	BuildTime Mode = iota
	// Runtime keeps configuration lookups dynamic: getConfig and getOwnConfig
	// become runtime shim calls, macroCondition and each stay in place.
	Runtime
)

// ParseMode maps the configuration spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "build":
		return BuildTime, nil
	case "runtime":
		return Runtime, nil
	default:
		return BuildTime, fmt.Errorf("invalid mode %q: must be 'build' or 'runtime'", s)
	}
}

func (m Mode) String() string {
	if m == Runtime {
		return "runtime"
	}
	return "build"
}

// DefaultImportFunction is what importSync calls are rewritten into.
const DefaultImportFunction = "require"

// Options tune a Rewriter.
type Options struct {
	Mode           Mode
	ImportFunction string
	// Format runs hclwrite.Format over rewritten output.
	Format bool
}

// ConfigResolver is the read side of a sealed config registry.
type ConfigResolver interface {
	Resolve(target *pkggraph.Package) (cty.Value, bool, error)
}

// Graph answers the package questions macros ask.
type Graph interface {
	Resolve(from *pkggraph.Package, name string) (*pkggraph.Package, bool)
	Satisfies(from *pkggraph.Package, name, versionRange string) (bool, error)
	ModuleExists(from *pkggraph.Package, specifier string) bool
}

// Rewriter rewrites macro calls. It is safe for concurrent use.
type Rewriter struct {
	configs ConfigResolver
	graph   Graph
	opts    Options
}

// New creates a Rewriter reading configuration from configs.
func New(configs ConfigResolver, graph Graph, opts Options) *Rewriter {
	if opts.ImportFunction == "" {
		opts.ImportFunction = DefaultImportFunction
	}
	return &Rewriter{configs: configs, graph: graph, opts: opts}
}

// Result describes one rewritten file.
type Result struct {
	Output []byte
	// Rewritten counts the macro call sites that were replaced.
	Rewritten int
	// Eliminated counts conditionals reduced to one branch.
	Eliminated int
}

// Changed reports whether the rewrite touched the file.
func (r *Result) Changed() bool {
	return r.Rewritten > 0 || r.Eliminated > 0
}

// RewriteFile parses src as HCL native syntax and rewrites every macro call in
// it on behalf of pkg, the package owning the file.
func (r *Rewriter) RewriteFile(ctx context.Context, filename string, src []byte, pkg *pkggraph.Package) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: not HCL native syntax", filename)
	}

	w := &walker{
		rw:   r,
		src:  src,
		pkg:  pkg,
		eval: r.EvalContext(pkg),
	}
	edits, err := w.body(body)
	if err != nil {
		return nil, err
	}

	res := &Result{Rewritten: w.rewritten, Eliminated: w.eliminated}
	if !res.Changed() {
		res.Output = src
		return res, nil
	}

	out := []byte(apply(src, 0, len(src), edits))
	if r.opts.Format {
		out = hclwrite.Format(out)
	}
	res.Output = out
	logger.Debug("File rewritten.", "file", filename, "rewritten", res.Rewritten, "eliminated", res.Eliminated)
	return res, nil
}

// walker carries the state of one file rewrite.
type walker struct {
	rw   *Rewriter
	src  []byte
	pkg  *pkggraph.Package
	eval *hcl.EvalContext

	rewritten  int
	eliminated int
}

func (w *walker) body(b *hclsyntax.Body) ([]edit, error) {
	attrs := make([]*hclsyntax.Attribute, 0, len(b.Attributes))
	for _, a := range b.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	var edits []edit
	for _, a := range attrs {
		e, err := w.expr(a.Expr)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e...)
	}
	for _, blk := range b.Blocks {
		e, err := w.body(blk.Body)
		if err != nil {
			return nil, err
		}
		edits = append(edits, e...)
	}
	return edits, nil
}

// expr returns the edits that rewrite every macro call below e.
func (w *walker) expr(e hclsyntax.Expression) ([]edit, error) {
	switch e := e.(type) {
	case nil:
		return nil, nil
	case *hclsyntax.FunctionCallExpr:
		if k, ok := macro.Lookup(e.Name); ok {
			return w.call(k, e)
		}
	case *hclsyntax.ConditionalExpr:
		if edits, ok, err := w.conditional(e); ok || err != nil {
			return edits, err
		}
	case *hclsyntax.RelativeTraversalExpr, *hclsyntax.IndexExpr, *hclsyntax.SplatExpr,
		*hclsyntax.TemplateExpr, *hclsyntax.TemplateWrapExpr:
		if edits, ok, err := w.fold(e); ok || err != nil {
			return edits, err
		}
	}

	var edits []edit
	for _, child := range children(e) {
		ce, err := w.expr(child)
		if err != nil {
			return nil, err
		}
		edits = append(edits, ce...)
	}
	return edits, nil
}

// conditional eliminates the dead branch of `c ? a : b` when c contains
// macroCondition and reduces to a literal boolean.
func (w *walker) conditional(e *hclsyntax.ConditionalExpr) ([]edit, bool, error) {
	if w.rw.opts.Mode != BuildTime || !contains(e.Condition, macro.MacroCondition) {
		return nil, false, nil
	}
	if len(e.Condition.Variables()) > 0 {
		return nil, false, nil
	}
	v, diags := e.Condition.Value(w.eval)
	if diags.HasErrors() {
		if err := macroError(diags); err != nil {
			return nil, false, withRange(err, e.Condition.Range())
		}
		return nil, false, nil
	}
	if !v.IsKnown() || v.IsNull() || !v.Type().Equals(cty.Bool) {
		return nil, false, nil
	}

	branch := e.FalseResult
	if v.True() {
		branch = e.TrueResult
	}
	edits, err := w.expr(branch)
	if err != nil {
		return nil, false, err
	}

	w.eliminated++
	w.rewritten += count(e.Condition, macro.MacroCondition)
	return []edit{replace(e.Range(), render(w.src, branch.Range(), edits))}, true, nil
}

// fold replaces an expression built on configuration macros, such as
// getOwnConfig().mode or "${getConfig("addon").name}", with its literal value
// when it is wholly static.
func (w *walker) fold(e hclsyntax.Expression) ([]edit, bool, error) {
	if w.rw.opts.Mode != BuildTime {
		return nil, false, nil
	}
	if !contains(e, macro.GetConfig) && !contains(e, macro.GetOwnConfig) {
		return nil, false, nil
	}
	if contains(e, macro.ImportSync) || len(e.Variables()) > 0 {
		return nil, false, nil
	}

	v, diags := e.Value(w.eval)
	if diags.HasErrors() {
		if err := macroError(diags); err != nil {
			return nil, false, withRange(err, e.Range())
		}
		return nil, false, fmt.Errorf("%s: cannot evaluate configuration expression: %w", e.Range(), diags)
	}
	if !v.IsWhollyKnown() {
		return nil, false, nil
	}

	w.rewritten += count(e, macro.GetConfig) + count(e, macro.GetOwnConfig)
	return []edit{replace(e.Range(), literal(v))}, true, nil
}

// literal renders v as HCL source.
func literal(v cty.Value) string {
	if v == cty.NilVal || v.IsNull() {
		return "null"
	}
	return string(hclwrite.TokensForValue(v).Bytes())
}

// contains reports whether a call to kind appears anywhere below e.
func contains(e hclsyntax.Expression, kind macro.Kind) bool {
	return count(e, kind) > 0
}

func count(e hclsyntax.Expression, kind macro.Kind) int {
	if e == nil {
		return 0
	}
	n := 0
	if call, ok := e.(*hclsyntax.FunctionCallExpr); ok {
		if k, ok := macro.Lookup(call.Name); ok && k == kind {
			n++
		}
	}
	for _, child := range children(e) {
		n += count(child, kind)
	}
	return n
}

// children lists the direct sub-expressions of e.
func children(e hclsyntax.Expression) []hclsyntax.Expression {
	var out []hclsyntax.Expression
	add := func(exprs ...hclsyntax.Expression) {
		for _, x := range exprs {
			if x != nil {
				out = append(out, x)
			}
		}
	}

	switch e := e.(type) {
	case *hclsyntax.FunctionCallExpr:
		add(e.Args...)
	case *hclsyntax.BinaryOpExpr:
		add(e.LHS, e.RHS)
	case *hclsyntax.ConditionalExpr:
		add(e.Condition, e.TrueResult, e.FalseResult)
	case *hclsyntax.UnaryOpExpr:
		add(e.Val)
	case *hclsyntax.TemplateExpr:
		add(e.Parts...)
	case *hclsyntax.TemplateWrapExpr:
		add(e.Wrapped)
	case *hclsyntax.TemplateJoinExpr:
		add(e.Tuple)
	case *hclsyntax.TupleConsExpr:
		add(e.Exprs...)
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			add(item.KeyExpr, item.ValueExpr)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		add(e.Wrapped)
	case *hclsyntax.ForExpr:
		add(e.CollExpr, e.KeyExpr, e.ValExpr, e.CondExpr)
	case *hclsyntax.IndexExpr:
		add(e.Collection, e.Key)
	case *hclsyntax.RelativeTraversalExpr:
		add(e.Source)
	case *hclsyntax.SplatExpr:
		add(e.Source, e.Each)
	case *hclsyntax.ParenthesesExpr:
		add(e.Expression)
	}
	return out
}
