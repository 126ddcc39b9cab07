// Package ident classifies numeric Anaplan identifiers: it routes action ids
// to their URL family and validates file and dimension ids.
package ident

import (
	"fmt"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// URL segments for invokable actions.
const (
	SegmentImports   = "imports"
	SegmentExports   = "exports"
	SegmentActions   = "actions"
	SegmentProcesses = "processes"
)

// actionRange is a half-open identifier range [lo, hi).
type actionRange struct {
	lo, hi  int64
	segment string
}

var actionRanges = []actionRange{
	{12_000_000_000, 113_000_000_000, SegmentImports},
	{116_000_000_000, 117_000_000_000, SegmentExports},
	{117_000_000_000, 118_000_000_000, SegmentActions},
	{118_000_000_000, 119_000_000_000, SegmentProcesses},
}

// ActionSegment returns the URL segment for an action identifier. Ids outside
// every range, including the gaps between them, are ErrInvalidIdentifier.
func ActionSegment(id int64) (string, error) {
	for _, r := range actionRanges {
		if id >= r.lo && id < r.hi {
			return r.segment, nil
		}
	}

	return "", fmt.Errorf("%w: action %d is not a valid identifier", api.ErrInvalidIdentifier, id)
}

// File identifiers live in [FileIDMin, FileIDMax].
const (
	FileIDMin int64 = 113_000_000_000
	FileIDMax int64 = 113_999_999_999
)

// ValidateFileID rejects ids outside the file range unless the caller
// explicitly allows the server to create new files.
func ValidateFileID(id int64, allowCreation bool) error {
	if allowCreation || (id >= FileIDMin && id <= FileIDMax) {
		return nil
	}

	return fmt.Errorf("%w: file %d does not exist; set allow_file_creation to create files dynamically",
		api.ErrInvalidIdentifier, id)
}

// DimensionKind names the family a dimension id belongs to.
type DimensionKind string

// Dimension families accepted by ValidateDimension.
const (
	DimensionUsers          DimensionKind = "users"
	DimensionList           DimensionKind = "list"
	DimensionListSubset     DimensionKind = "list_subset"
	DimensionLineItemSubset DimensionKind = "line_item_subset"
)

const (
	usersDimensionID int64 = 101_999_999_999

	listLo, listHi           int64 = 101_000_000_000, 102_000_000_000
	listSubsetLo, listSubHi  int64 = 109_000_000_000, 110_000_000_000
	lineItemSubLo, lineSubHi int64 = 114_000_000_000, 115_000_000_000
)

// ValidateDimension classifies a dimension id. Users and plain lists are
// accepted but have dedicated, richer endpoints.
func ValidateDimension(id int64) (DimensionKind, error) {
	switch {
	case id == usersDimensionID:
		return DimensionUsers, nil
	case id >= listLo && id < listHi:
		return DimensionList, nil
	case id >= listSubsetLo && id < listSubHi:
		return DimensionListSubset, nil
	case id >= lineItemSubLo && id < lineSubHi:
		return DimensionLineItemSubset, nil
	default:
		return "", fmt.Errorf("%w: dimension %d must be a list (101xxxxxxxxx), list subset (109xxxxxxxxx), "+
			"line item subset (114xxxxxxxxx) or users (101999999999)", api.ErrInvalidIdentifier, id)
	}
}

// Discouraged reports whether a dedicated endpoint serves kind better.
func (k DimensionKind) Discouraged() bool {
	return k == DimensionUsers || k == DimensionList
}
