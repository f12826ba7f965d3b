// Package diag defines the diagnostic model shared by the manifest loader and
// the identifier encoder.
//
// Diagnostics are the recoverable tier of errors: a malformed user-supplied
// cfi_encoding string or a bad manifest entry is reported through a Reporter
// and processing continues, so that several problems can be collected in one
// run. Invariant violations inside the encoder are not diagnostics; they are
// returned as errors by the typeid entry points.
//
// Producers build a ReportBuilder (NewReportBuilder or ReportError), optionally
// chain WithNote, and call Emit. BagReporter stores into a Bag; DedupReporter
// filters repeats before forwarding.
package diag
