// Package eval compiles user-supplied arithmetic expressions into numeric
// functions of a fixed symbol set.
//
// Expressions are parsed and evaluated with CUE. Compile parses the text,
// walks the AST to reject any free identifier outside the allowed set
// (InvalidExpressionError), rewrites bare math calls (sin, tanh, pow, ...)
// to CUE's math package, and compiles the result once. Eval then fills the
// symbol values and extracts a float per call.
//
// Runtime failures (domain errors, non-finite results) come back as
// ordinary errors from Eval and are recoverable: callers degrade the
// step's value instead of aborting, so one equation's singularity cannot
// terminate a whole run.
package eval

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/parser"
)

// mathFuncs maps bare function names users write to CUE math builtins.
var mathFuncs = map[string]string{
	"sin":   "Sin",
	"cos":   "Cos",
	"tan":   "Tan",
	"asin":  "Asin",
	"acos":  "Acos",
	"atan":  "Atan",
	"atan2": "Atan2",
	"sinh":  "Sinh",
	"cosh":  "Cosh",
	"tanh":  "Tanh",
	"exp":   "Exp",
	"log":   "Log",
	"ln":    "Log",
	"log2":  "Log2",
	"log10": "Log10",
	"sqrt":  "Sqrt",
	"abs":   "Abs",
	"floor": "Floor",
	"ceil":  "Ceil",
	"round": "Round",
	"trunc": "Trunc",
	"pow":   "Pow",
}

// mathConsts maps bare constant names to CUE math constants.
var mathConsts = map[string]string{
	"pi": "Pi",
	"e":  "E",
}

// resultField is where the compiled source binds the expression value.
// Symbols are validated against the allowed set before the source is
// assembled, so user expressions can never reference it. Must be a plain
// identifier: CUE reserves names starting with "__".
const resultField = "out"

// Evaluator compiles expressions within one CUE context.
//
// cue.Value is immutable but a Context is not documented as safe for
// concurrent compilation, so equations running in parallel should each
// hold their own Evaluator.
type Evaluator struct {
	ctx *cue.Context
}

// New creates a fresh Evaluator.
func New() *Evaluator {
	return &Evaluator{ctx: cuecontext.New()}
}

// Compiled is an expression compiled against a fixed symbol order.
// Safe for repeated Eval calls from the goroutine that owns it.
type Compiled struct {
	expr    string
	symbols []string
	paths   []cue.Path
	outPath cue.Path
	value   cue.Value
}

// Symbols returns the symbol names Eval expects, in argument order.
func (c *Compiled) Symbols() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Compile parses exprText and binds it to the given symbols (e.g. x,y,z
// for expressions, x,y,z,t for update rules).
//
// Returns an *InvalidExpressionError if the text does not parse, uses an
// identifier outside symbols, or uses a construct that is not plain
// arithmetic. Construction-time failures are fatal for the equation: they
// surface before any simulation starts.
func (e *Evaluator) Compile(exprText string, symbols []string) (*Compiled, error) {
	parsed, err := parser.ParseExpr("expr", exprText)
	if err != nil {
		return nil, &InvalidExpressionError{
			Expr:    exprText,
			Message: fmt.Sprintf("parse error: %v", err),
		}
	}

	allowed := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		allowed[s] = true
	}

	rw := &rewriter{allowed: allowed, offending: map[string]bool{}}
	rewritten := rw.rewrite(parsed)
	if len(rw.offending) > 0 {
		return nil, &InvalidExpressionError{
			Expr:    exprText,
			Symbols: sortedKeys(rw.offending),
			Message: fmt.Sprintf("unsupported symbols: %s", strings.Join(sortedKeys(rw.offending), ", ")),
		}
	}

	exprSrc, err := format.Node(rewritten)
	if err != nil {
		return nil, &InvalidExpressionError{
			Expr:    exprText,
			Message: fmt.Sprintf("formatting rewritten expression: %v", err),
		}
	}

	var src strings.Builder
	src.WriteString("import \"math\"\n\n")
	for _, s := range symbols {
		fmt.Fprintf(&src, "%s: number\n", s)
	}
	fmt.Fprintf(&src, "%s: %s\n", resultField, exprSrc)

	v := e.ctx.CompileString(src.String(), cue.Filename("expr.cue"))
	if err := v.Err(); err != nil {
		return nil, &InvalidExpressionError{
			Expr:    exprText,
			Message: fmt.Sprintf("compile error: %v", err),
		}
	}

	paths := make([]cue.Path, len(symbols))
	for i, s := range symbols {
		paths[i] = cue.ParsePath(s)
	}

	return &Compiled{
		expr:    exprText,
		symbols: append([]string(nil), symbols...),
		paths:   paths,
		outPath: cue.ParsePath(resultField),
		value:   v,
	}, nil
}

// Eval evaluates the compiled expression with args bound to the symbols
// in compile order. Errors are recoverable evaluation failures, never
// construction errors.
func (c *Compiled) Eval(args ...float64) (float64, error) {
	if len(args) != len(c.symbols) {
		return 0, fmt.Errorf("eval %q: got %d args, want %d", c.expr, len(args), len(c.symbols))
	}

	v := c.value
	for i, p := range c.paths {
		v = v.FillPath(p, args[i])
	}

	out := v.LookupPath(c.outPath)
	if err := out.Err(); err != nil {
		return 0, fmt.Errorf("eval %q: %w", c.expr, err)
	}
	f, err := out.Float64()
	if err != nil {
		return 0, fmt.Errorf("eval %q: %w", c.expr, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("eval %q: non-finite result", c.expr)
	}
	return f, nil
}

// rewriter walks the parsed expression, collecting identifiers outside
// the allowed set and rewriting bare math calls/constants to CUE's math
// package. Only plain arithmetic constructs are accepted; anything else
// counts as an offending symbol.
type rewriter struct {
	allowed   map[string]bool
	offending map[string]bool
}

func (r *rewriter) rewrite(n ast.Expr) ast.Expr {
	switch x := n.(type) {
	case *ast.BasicLit:
		return x
	case *ast.Ident:
		if sel, ok := mathConsts[x.Name]; ok && !r.allowed[x.Name] {
			return ast.NewSel(ast.NewIdent("math"), sel)
		}
		if !r.allowed[x.Name] {
			r.offending[x.Name] = true
		}
		return x
	case *ast.ParenExpr:
		x.X = r.rewrite(x.X)
		return x
	case *ast.UnaryExpr:
		x.X = r.rewrite(x.X)
		return x
	case *ast.BinaryExpr:
		x.X = r.rewrite(x.X)
		x.Y = r.rewrite(x.Y)
		return x
	case *ast.CallExpr:
		if id, ok := x.Fun.(*ast.Ident); ok {
			if sel, ok := mathFuncs[id.Name]; ok {
				x.Fun = ast.NewSel(ast.NewIdent("math"), sel)
			} else {
				r.offending[id.Name] = true
			}
		} else {
			r.offending[fmt.Sprintf("%T", x.Fun)] = true
		}
		for i, arg := range x.Args {
			x.Args[i] = r.rewrite(arg)
		}
		return x
	default:
		r.offending[fmt.Sprintf("%T", n)] = true
		return n
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
