package manifest

import (
	"fmt"
	"strings"
)

// ParseType parses a Rust-like type expression:
//
//	bool char str ! i8..i128 isize u8..u128 usize f16..f128
//	() (T,) (T, U) [T; N] [T] &'a mut T *const T *mut T
//	unsafe extern "C" fn(T, ...) -> R
//	dyn Trait<A, Item = T> + Send   dyn* Trait
//	a::b::C<T, 3, 'a>   Fn(A) -> R   <T as a::Trait>::Assoc   Self::Assoc
//	u32 is 1..=10
func ParseType(src string) (*Expr, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	e, err := p.typ()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseArg parses one generic argument: a type, a lifetime, a const
// literal or an associated type binding.
func ParseArg(src string) (*Arg, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	a, err := p.arg()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return a, nil
}

// ParamDecl is a declared generic parameter: `T`, `'a` or `const N: usize`.
type ParamDecl struct {
	Name  string
	Kind  ArgKind
	Ty    *Expr
	Start int
	End   int
}

// ParseParam parses one generic parameter declaration.
func ParseParam(src string) (ParamDecl, error) {
	p, err := newParser(src)
	if err != nil {
		return ParamDecl{}, err
	}
	tok := p.peek()
	var d ParamDecl
	switch {
	case tok.Kind == tokLifetime:
		p.bump()
		d = ParamDecl{Name: tok.Text, Kind: ArgLifetime, Start: tok.Start, End: tok.End}
	case tok.isIdent("const"):
		p.bump()
		name, err := p.ident()
		if err != nil {
			return ParamDecl{}, err
		}
		if err := p.expect(":"); err != nil {
			return ParamDecl{}, err
		}
		ty, err := p.typ()
		if err != nil {
			return ParamDecl{}, err
		}
		d = ParamDecl{Name: name.Text, Kind: ArgConst, Ty: ty, Start: tok.Start, End: ty.End}
	default:
		name, err := p.ident()
		if err != nil {
			return ParamDecl{}, err
		}
		d = ParamDecl{Name: name.Text, Kind: ArgType, Start: name.Start, End: name.End}
	}
	if err := p.expectEOF(); err != nil {
		return ParamDecl{}, err
	}
	return d, nil
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func newParser(src string) (*parser, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	return &parser{src: src, toks: toks}, nil
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) bump() token {
	tok := p.toks[p.pos]
	if tok.Kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) eat(punct string) bool {
	if p.peek().is(punct) {
		p.bump()
		return true
	}
	return false
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Start: tok.Start, End: tok.End, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	if tok.Kind == tokEOF {
		return p.errorf(tok, "expected %s, found end of input", want)
	}
	return p.errorf(tok, "expected %s, found `%s`", want, p.src[tok.Start:tok.End])
}

func (p *parser) expect(punct string) error {
	if !p.eat(punct) {
		return p.unexpected("`" + punct + "`")
	}
	return nil
}

func (p *parser) expectEOF() error {
	if p.peek().Kind != tokEOF {
		return p.unexpected("end of type")
	}
	return nil
}

func (p *parser) ident() (token, error) {
	if p.peek().Kind != tokIdent {
		return token{}, p.unexpected("identifier")
	}
	return p.bump(), nil
}

func (p *parser) prevEnd() int {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].End
}

func (p *parser) typ() (*Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	if p.peek().isIdent("is") {
		return p.pattern(e)
	}
	return e, nil
}

func (p *parser) primary() (*Expr, error) {
	tok := p.peek()
	switch {
	case tok.is("("):
		return p.tuple()
	case tok.is("["):
		return p.arrayOrSlice()
	case tok.is("&"):
		p.bump()
		if p.peek().Kind == tokLifetime {
			p.bump()
		}
		mut := false
		if p.peek().isIdent("mut") {
			p.bump()
			mut = true
		}
		elem, err := p.primary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprRef, Start: tok.Start, End: elem.End, Elem: elem, Mut: mut}, nil
	case tok.is("*"):
		p.bump()
		var mut bool
		switch q := p.peek(); {
		case q.isIdent("mut"):
			mut = true
		case q.isIdent("const"):
		default:
			return nil, p.unexpected("`const` or `mut` after `*`")
		}
		p.bump()
		elem, err := p.primary()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprPtr, Start: tok.Start, End: elem.End, Elem: elem, Mut: mut}, nil
	case tok.is("!"):
		p.bump()
		return &Expr{Kind: ExprNever, Start: tok.Start, End: tok.End}, nil
	case tok.is("<"):
		return p.qualified()
	case tok.isIdent("fn"), tok.isIdent("unsafe"), tok.isIdent("extern"):
		return p.fnPtr()
	case tok.isIdent("dyn"):
		return p.dyn()
	case tok.Kind == tokIdent:
		path, err := p.path()
		if err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprPath, Start: path.Start, End: path.End, Path: path}, nil
	}
	return nil, p.unexpected("type")
}

func (p *parser) tuple() (*Expr, error) {
	open := p.bump()
	var elems []*Expr
	trailing := false
	for !p.peek().is(")") {
		e, err := p.typ()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		trailing = false
		if !p.eat(",") {
			break
		}
		trailing = true
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if len(elems) == 1 && !trailing {
		inner := *elems[0]
		return &inner, nil
	}
	return &Expr{Kind: ExprTuple, Start: open.Start, End: p.prevEnd(), Elems: elems}, nil
}

func (p *parser) arrayOrSlice() (*Expr, error) {
	open := p.bump()
	elem, err := p.typ()
	if err != nil {
		return nil, err
	}
	if p.eat(";") {
		n, err := p.arg()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return &Expr{Kind: ExprArray, Start: open.Start, End: p.prevEnd(), Elem: elem, Len: n}, nil
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprSlice, Start: open.Start, End: p.prevEnd(), Elem: elem}, nil
}

func (p *parser) fnPtr() (*Expr, error) {
	start := p.peek().Start
	e := &Expr{Kind: ExprFn, Start: start}
	if p.peek().isIdent("unsafe") {
		p.bump()
	}
	if p.peek().isIdent("extern") {
		p.bump()
		e.HasAbi = true
		e.Abi = "C"
		if p.peek().Kind == tokString {
			e.Abi = p.bump().Text
		}
	}
	if !p.peek().isIdent("fn") {
		return nil, p.unexpected("`fn`")
	}
	p.bump()
	if err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.peek().is(")") {
		if p.eat("...") {
			e.Variadic = true
			break
		}
		param, err := p.typ()
		if err != nil {
			return nil, err
		}
		e.Elems = append(e.Elems, param)
		if !p.eat(",") {
			break
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if p.eat("->") {
		ret, err := p.typ()
		if err != nil {
			return nil, err
		}
		e.Ret = ret
	}
	e.End = p.prevEnd()
	return e, nil
}

func (p *parser) dyn() (*Expr, error) {
	start := p.bump().Start
	e := &Expr{Kind: ExprDyn, Start: start}
	if p.eat("*") {
		e.DynStar = true
	}
	for {
		if p.peek().Kind == tokLifetime {
			p.bump()
		} else {
			path, err := p.path()
			if err != nil {
				return nil, err
			}
			e.Bounds = append(e.Bounds, path)
		}
		if !p.eat("+") {
			break
		}
	}
	if len(e.Bounds) == 0 {
		return nil, p.errorf(p.toks[p.pos-1], "trait object without a trait")
	}
	e.End = p.prevEnd()
	return e, nil
}

// qualified parses `<T as Trait>::Assoc`.
func (p *parser) qualified() (*Expr, error) {
	open := p.bump()
	self, err := p.typ()
	if err != nil {
		return nil, err
	}
	if !p.peek().isIdent("as") {
		return nil, p.unexpected("`as`")
	}
	p.bump()
	trait, err := p.path()
	if err != nil {
		return nil, err
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	if err := p.expect("::"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	return &Expr{Kind: ExprQualified, Start: open.Start, End: name.End, Elem: self, Path: trait, Assoc: name.Text}, nil
}

// pattern captures the raw pattern text after `is` up to the next closing
// delimiter or separator at nesting depth zero.
func (p *parser) pattern(base *Expr) (*Expr, error) {
	is := p.bump()
	depth := 0
	start := p.peek().Start
	end := start
loop:
	for {
		tok := p.peek()
		switch {
		case tok.Kind == tokEOF:
			break loop
		case tok.is("(") || tok.is("[") || tok.is("{"):
			depth++
		case tok.is(")") || tok.is("]") || tok.is("}") || tok.is(">"):
			if depth == 0 {
				break loop
			}
			depth--
		case tok.is(",") || tok.is(";"):
			if depth == 0 {
				break loop
			}
		}
		end = p.bump().End
	}
	text := strings.TrimSpace(p.src[start:end])
	if text == "" {
		return nil, p.errorf(is, "missing pattern after `is`")
	}
	return &Expr{Kind: ExprPat, Start: base.Start, End: end, Elem: base, Pattern: text}, nil
}

func (p *parser) path() (*Path, error) {
	first, err := p.ident()
	if err != nil {
		return nil, err
	}
	path := &Path{Start: first.Start}
	seg := Segment{Name: first.Text, Start: first.Start, End: first.End}
	for {
		if p.peek().is("<") {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			seg.Args = args
			seg.End = p.prevEnd()
		} else if p.peek().is("(") && isFnSugar(seg.Name) {
			if err := p.fnSugar(&seg); err != nil {
				return nil, err
			}
		}
		path.Segments = append(path.Segments, seg)
		if !p.peek().is("::") || p.peekAt(1).Kind != tokIdent {
			break
		}
		p.bump()
		next := p.bump()
		seg = Segment{Name: next.Text, Start: next.Start, End: next.End}
	}
	path.End = p.prevEnd()
	return path, nil
}

func isFnSugar(name string) bool {
	switch name {
	case "Fn", "FnMut", "FnOnce", "AsyncFn", "AsyncFnMut", "AsyncFnOnce":
		return true
	}
	return false
}

func (p *parser) fnSugar(seg *Segment) error {
	p.bump()
	seg.Parenthesized = true
	for !p.peek().is(")") {
		in, err := p.typ()
		if err != nil {
			return err
		}
		seg.Inputs = append(seg.Inputs, in)
		if !p.eat(",") {
			break
		}
	}
	if err := p.expect(")"); err != nil {
		return err
	}
	if p.eat("->") {
		out, err := p.typ()
		if err != nil {
			return err
		}
		seg.Output = out
	}
	seg.End = p.prevEnd()
	return nil
}

func (p *parser) args() ([]*Arg, error) {
	p.bump()
	var out []*Arg
	for !p.peek().is(">") {
		a, err := p.arg()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		if !p.eat(",") {
			break
		}
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) arg() (*Arg, error) {
	tok := p.peek()
	switch {
	case tok.Kind == tokLifetime:
		p.bump()
		return &Arg{Kind: ArgLifetime, Start: tok.Start, End: tok.End, Text: tok.Text}, nil
	case tok.Kind == tokInt:
		p.bump()
		return &Arg{Kind: ArgConst, Lit: LitInt, Start: tok.Start, End: tok.End, Text: tok.Text}, nil
	case tok.is("-") && p.peekAt(1).Kind == tokInt:
		p.bump()
		n := p.bump()
		return &Arg{Kind: ArgConst, Lit: LitInt, Neg: true, Start: tok.Start, End: n.End, Text: n.Text}, nil
	case tok.Kind == tokChar:
		p.bump()
		return &Arg{Kind: ArgConst, Lit: LitChar, Start: tok.Start, End: tok.End, Text: tok.Text}, nil
	case tok.isIdent("true"), tok.isIdent("false"):
		p.bump()
		return &Arg{Kind: ArgConst, Lit: LitBool, Start: tok.Start, End: tok.End, Text: tok.Text}, nil
	case tok.is("{"):
		p.bump()
		inner, err := p.arg()
		if err != nil {
			return nil, err
		}
		if err := p.expect("}"); err != nil {
			return nil, err
		}
		inner.Start, inner.End = tok.Start, p.prevEnd()
		return inner, nil
	case tok.Kind == tokIdent && p.peekAt(1).is("="):
		p.bump()
		p.bump()
		ty, err := p.typ()
		if err != nil {
			return nil, err
		}
		return &Arg{Kind: ArgBinding, Start: tok.Start, End: ty.End, Text: tok.Text, Type: ty}, nil
	}
	ty, err := p.typ()
	if err != nil {
		return nil, err
	}
	return &Arg{Kind: ArgType, Start: ty.Start, End: ty.End, Type: ty}, nil
}
