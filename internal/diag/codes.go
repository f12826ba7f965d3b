package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// manifest errors
	ManifestInfo           Code = 5000
	ManifestBadType        Code = 5001
	ManifestUnknownPath    Code = 5002
	ManifestUnknownCrate   Code = 5003
	ManifestBadRepr        Code = 5004
	ManifestBadAbi         Code = 5005
	ManifestDuplicatePath  Code = 5006
	ManifestMissingMethod  Code = 5007
	ManifestBadCall        Code = 5008
	ManifestPointerWidth   Code = 5009
	ManifestUnknownGeneric Code = 5010

	// identifier encoding
	CfiInfo            Code = 7000
	CfiInvalidEncoding Code = 7001
	CfiInternal        Code = 7002
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	ManifestInfo:           "Manifest information",
	ManifestBadType:        "Malformed type expression",
	ManifestUnknownPath:    "Unknown item path",
	ManifestUnknownCrate:   "Unknown crate",
	ManifestBadRepr:        "Unsupported repr",
	ManifestBadAbi:         "Unsupported calling convention",
	ManifestDuplicatePath:  "Duplicate item path",
	ManifestMissingMethod:  "Impl method without trait method",
	ManifestBadCall:        "Malformed call entry",
	ManifestPointerWidth:   "Unsupported pointer width",
	ManifestUnknownGeneric: "Unknown generic parameter",
	CfiInfo:                "CFI encoding information",
	CfiInvalidEncoding:     "Invalid cfi_encoding",
	CfiInternal:            "Internal CFI encoder error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("CFI%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
