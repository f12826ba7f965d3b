package source

import (
	"testing"
)

func TestSpan_EmptyAndLen(t *testing.T) {
	sp := Span{File: 0, Start: 3, End: 3}
	if !sp.Empty() || sp.Len() != 0 {
		t.Fatalf("expected empty span, got %v", sp)
	}
	sp.End = 7
	if sp.Empty() || sp.Len() != 4 {
		t.Fatalf("expected len 4, got %d", sp.Len())
	}
}
