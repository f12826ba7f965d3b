// Package typeid computes type metadata identifiers for forward-edge control
// flow integrity.
//
// An identifier names the type of a callable with the Itanium C++ ABI
// mangling of its function type, prefixed by `_ZTS` (the typeinfo name of
// the type). Rust types that have no C++ counterpart are spelled as vendor
// extended types (`u<len><name>`), and repeated components are replaced by
// substitutions (`S<seq-id>_`), so that identifiers computed here match the
// ones a C or C++ compiler emits for the same type at the FFI boundary.
//
// Three entry points cover the ways callables are known: ForFnAbi for a
// lowered function, ForFnSig for a bare signature and ForInstance for a
// callable instance, which is canonicalized first so that implementations
// and the virtual calls that reach them agree.
//
// Inputs the encoder cannot represent (inference variables, unresolved
// aliases, malformed paths) abort the computation with a *BugError. An empty
// cfi_encoding override is reported through the Context's diag.Reporter and
// encoding continues.
package typeid
