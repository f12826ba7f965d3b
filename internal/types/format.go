package types

import (
	"fmt"
	"strings"
)

// Format renders a type in Rust-like surface syntax.
func (in *Interner) Format(id TypeID) string {
	var b strings.Builder
	in.formatTy(&b, id)
	return b.String()
}

// FormatArgs renders an argument list as `<A, B>`; empty lists render as "".
func (in *Interner) FormatArgs(id ArgsID) string {
	var b strings.Builder
	in.formatArgs(&b, in.Args(id))
	return b.String()
}

func (in *Interner) formatTy(b *strings.Builder, id TypeID) {
	tt, ok := in.Lookup(id)
	if !ok {
		b.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindBool, KindChar, KindStr:
		b.WriteString(tt.Kind.String())
	case KindNever:
		b.WriteByte('!')
	case KindInt, KindUint:
		prefix := "i"
		if tt.Kind == KindUint {
			prefix = "u"
		}
		if tt.Width == WidthPtr {
			b.WriteString(prefix + "size")
		} else {
			fmt.Fprintf(b, "%s%d", prefix, tt.Width)
		}
	case KindFloat:
		fmt.Fprintf(b, "f%d", tt.Width)
	case KindTuple:
		elems := ArgTypes(in.Args(tt.Args))
		b.WriteByte('(')
		for i, e := range elems {
			if i > 0 {
				b.WriteString(", ")
			}
			in.formatTy(b, e)
		}
		if len(elems) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case KindArray:
		b.WriteByte('[')
		in.formatTy(b, tt.Elem)
		fmt.Fprintf(b, "; %d]", tt.Len)
	case KindSlice:
		b.WriteByte('[')
		in.formatTy(b, tt.Elem)
		b.WriteByte(']')
	case KindPat:
		in.formatTy(b, tt.Elem)
		b.WriteString(" is ")
		b.WriteString(tt.Pattern)
	case KindRef:
		b.WriteByte('&')
		if tt.Region.Kind != RegionErased {
			b.WriteString(tt.Region.String())
			b.WriteByte(' ')
		}
		if tt.Mutable {
			b.WriteString("mut ")
		}
		in.formatTy(b, tt.Elem)
	case KindRawPtr:
		if tt.Mutable {
			b.WriteString("*mut ")
		} else {
			b.WriteString("*const ")
		}
		in.formatTy(b, tt.Elem)
	case KindAdt, KindForeign, KindAlias:
		b.WriteString(in.DefPathString(tt.Def))
		in.formatArgs(b, in.Args(tt.Args))
	case KindFnDef:
		b.WriteString("fn item ")
		b.WriteString(in.DefPathString(tt.Def))
		in.formatArgs(b, in.Args(tt.Args))
	case KindClosure, KindCoroutine, KindCoroutineClosure, KindCoroutineWitness:
		fmt.Fprintf(b, "{%s %s}", tt.Kind, in.DefPathString(tt.Def))
		in.formatArgs(b, in.Args(tt.Args))
	case KindFnPtr:
		in.formatSig(b, in.Sig(tt.Sig))
	case KindDynamic:
		if tt.Dyn == DynStar {
			b.WriteString("dyn* ")
		} else {
			b.WriteString("dyn ")
		}
		in.formatPreds(b, in.Preds(tt.Preds))
	case KindParam:
		if tt.Name != "" {
			b.WriteString(tt.Name)
		} else {
			fmt.Fprintf(b, "T%d", tt.Index)
		}
	case KindBound:
		fmt.Fprintf(b, "^%d_%d", tt.Binder, tt.Index)
	case KindInfer:
		fmt.Fprintf(b, "?%d", tt.Index)
	case KindPlaceholder:
		fmt.Fprintf(b, "!%d", tt.Index)
	case KindError:
		b.WriteString("{error}")
	default:
		b.WriteString(tt.Kind.String())
	}
}

func (in *Interner) formatArgs(b *strings.Builder, args []GenericArg) {
	if len(args) == 0 {
		return
	}
	b.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		in.formatArg(b, a)
	}
	b.WriteByte('>')
}

func (in *Interner) formatArg(b *strings.Builder, a GenericArg) {
	switch a.Kind {
	case ArgRegion:
		b.WriteString(a.Region.String())
	case ArgType:
		in.formatTy(b, a.Type)
	case ArgConst:
		in.formatConst(b, a.Const)
	}
}

func (in *Interner) formatConst(b *strings.Builder, c Const) {
	switch c.Kind {
	case ConstParam:
		if c.Name != "" {
			b.WriteString(c.Name)
		} else {
			fmt.Fprintf(b, "C%d", c.Index)
		}
	case ConstValue:
		b.WriteString(c.Bits().String())
		in.formatTy(b, c.Ty)
	default:
		fmt.Fprintf(b, "{const %d}", c.Kind)
	}
}

func (in *Interner) formatSig(b *strings.Builder, sig FnSig) {
	if sig.Abi != AbiRust {
		fmt.Fprintf(b, "extern %q ", sig.Abi.String())
	}
	b.WriteString("fn(")
	for i, p := range sig.Inputs {
		if i > 0 {
			b.WriteString(", ")
		}
		in.formatTy(b, p)
	}
	if sig.CVariadic {
		if len(sig.Inputs) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteByte(')')
	if !in.IsUnit(sig.Output) {
		b.WriteString(" -> ")
		in.formatTy(b, sig.Output)
	}
}

func (in *Interner) formatPreds(b *strings.Builder, preds []ExistentialPredicate) {
	var parts []string
	var bindings []string
	for _, p := range preds {
		if p.Kind != PredProjection {
			continue
		}
		var t strings.Builder
		t.WriteString(in.ItemName(p.Def))
		t.WriteString(" = ")
		in.formatArg(&t, p.Term)
		bindings = append(bindings, t.String())
	}
	for _, p := range preds {
		switch p.Kind {
		case PredTrait:
			var t strings.Builder
			t.WriteString(in.DefPathString(p.Def))
			args := in.Args(p.Args)
			if len(args)+len(bindings) > 0 {
				t.WriteByte('<')
				for i, a := range args {
					if i > 0 {
						t.WriteString(", ")
					}
					in.formatArg(&t, a)
				}
				for i, bnd := range bindings {
					if i > 0 || len(args) > 0 {
						t.WriteString(", ")
					}
					t.WriteString(bnd)
				}
				t.WriteByte('>')
			}
			parts = append(parts, t.String())
		case PredAutoTrait:
			parts = append(parts, in.DefPathString(p.Def))
		}
	}
	b.WriteString(strings.Join(parts, " + "))
}
