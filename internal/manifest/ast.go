package manifest

// ExprKind classifies a parsed type expression.
type ExprKind uint8

const (
	ExprPath ExprKind = iota
	ExprTuple
	ExprArray
	ExprSlice
	ExprRef
	ExprPtr
	ExprFn
	ExprDyn
	ExprNever
	ExprQualified
	ExprPat
)

// Expr is a type expression as written in a manifest. Start and End are byte
// offsets into the expression text.
type Expr struct {
	Kind  ExprKind
	Start int
	End   int

	Path  *Path   // path; trait of a qualified projection
	Elems []*Expr // tuple elements; fn parameters
	Elem  *Expr   // array, slice, ref, ptr, pat; self of a qualified projection
	Len   *Arg    // array length
	Mut   bool    // ref, ptr

	// fn pointers
	Abi      string
	HasAbi   bool
	Variadic bool
	Ret      *Expr

	// dyn
	Bounds  []*Path
	DynStar bool

	Assoc   string // qualified projection
	Pattern string // pattern type
}

// Path is `a::b::C<args>`; only the last segment may carry arguments.
type Path struct {
	Segments []Segment
	Start    int
	End      int
}

// Segment is one `::`-separated path component. Parenthesized segments are
// the `Fn(A, B) -> R` sugar.
type Segment struct {
	Name  string
	Args  []*Arg
	Start int
	End   int

	Parenthesized bool
	Inputs        []*Expr
	Output        *Expr
}

// String joins the segment names with `::`.
func (p *Path) String() string {
	if p == nil {
		return ""
	}
	s := ""
	for i, seg := range p.Segments {
		if i > 0 {
			s += "::"
		}
		s += seg.Name
	}
	return s
}

// Last returns the final segment.
func (p *Path) Last() *Segment {
	return &p.Segments[len(p.Segments)-1]
}

// ArgKind classifies a generic argument expression.
type ArgKind uint8

const (
	ArgType ArgKind = iota
	ArgLifetime
	ArgConst
	ArgBinding
)

// LitKind classifies const literals.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitBool
	LitChar
)

// Arg is one generic argument. A bare identifier is parsed as a type and
// resolved to a const parameter later when the scope says so.
type Arg struct {
	Kind  ArgKind
	Start int
	End   int

	Type *Expr // type; binding value

	Lit  LitKind // const
	Neg  bool
	Text string // const literal text; lifetime name; binding name
}
