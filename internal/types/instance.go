package types

import "fmt"

// InstanceKind selects how a callable instance is materialized.
type InstanceKind uint8

const (
	// InstanceItem is a fn item, method or closure body.
	InstanceItem InstanceKind = iota
	// InstanceVirtual is a call through a vtable slot.
	InstanceVirtual
	// InstanceVTableShim adapts a by-value self method for vtables.
	InstanceVTableShim
	// InstanceDropGlue is the destructor of Ty.
	InstanceDropGlue
	// InstanceReifyShim turns an item into a fn pointer.
	InstanceReifyShim
	// InstanceClosureOnceShim calls an Fn/FnMut closure through FnOnce.
	InstanceClosureOnceShim
)

var instanceKindNames = [...]string{
	InstanceItem:            "item",
	InstanceVirtual:         "virtual",
	InstanceVTableShim:      "vtable-shim",
	InstanceDropGlue:        "drop-glue",
	InstanceReifyShim:       "reify-shim",
	InstanceClosureOnceShim: "closure-once-shim",
}

func (k InstanceKind) String() string {
	if int(k) < len(instanceKindNames) {
		return instanceKindNames[k]
	}
	return fmt.Sprintf("InstanceKind(%d)", k)
}

// InstanceDef names the definition behind an instance. Slot is the vtable
// index of virtual calls; Ty is the dropped type of drop glue.
type InstanceDef struct {
	Kind InstanceKind
	Def  DefID
	Slot uint32
	Ty   TypeID
}

// Instance is a definition applied to generic arguments.
type Instance struct {
	Def  InstanceDef
	Args ArgsID
}

// ItemInstance makes an item instance.
func ItemInstance(def DefID, args ArgsID) Instance {
	return Instance{Def: InstanceDef{Kind: InstanceItem, Def: def}, Args: args}
}

// VirtualInstance makes a vtable call instance.
func VirtualInstance(method DefID, slot uint32, args ArgsID) Instance {
	return Instance{Def: InstanceDef{Kind: InstanceVirtual, Def: method, Slot: slot}, Args: args}
}

// DropGlueInstance makes the destructor instance of ty; dropInPlace is the
// drop_in_place fn and args are [ty].
func DropGlueInstance(dropInPlace DefID, ty TypeID, args ArgsID) Instance {
	return Instance{Def: InstanceDef{Kind: InstanceDropGlue, Def: dropInPlace, Ty: ty}, Args: args}
}

// TypeOfInstance returns the zero-sized type naming the instance's callee.
func (in *Interner) TypeOfInstance(inst Instance) TypeID {
	d, ok := in.Def(inst.Def.Def)
	if !ok {
		return NoTypeID
	}
	switch d.Kind {
	case DefClosure:
		return in.Closure(inst.Def.Def, inst.Args)
	case DefCoroutine:
		return in.Coroutine(inst.Def.Def, inst.Args)
	case DefCoroutineClosure:
		return in.CoroutineClosure(inst.Def.Def, inst.Args)
	default:
		return in.FnDef(inst.Def.Def, inst.Args)
	}
}

// FormatInstance renders an instance for logs and errors.
func (in *Interner) FormatInstance(inst Instance) string {
	s := in.DefPathString(inst.Def.Def) + in.FormatArgs(inst.Args)
	switch inst.Def.Kind {
	case InstanceItem:
		return s
	case InstanceVirtual:
		return fmt.Sprintf("%s (virtual #%d)", s, inst.Def.Slot)
	case InstanceDropGlue:
		return fmt.Sprintf("drop glue for %s", in.Format(inst.Def.Ty))
	default:
		return fmt.Sprintf("%s (%s)", s, inst.Def.Kind)
	}
}
