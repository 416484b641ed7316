// Package connection decides whether a directed edge between two nodes is
// legal. It is the single gate used by the graph store, the codec and the
// editor's connect preview.
package connection

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/gridflow/internal/catalog"
)

// ErrInvalidConnection is the sentinel every rejected edge unwraps to.
var ErrInvalidConnection = errors.New("invalid connection")

// Reason codes carried by Error.
const (
	ReasonSelfLoop      = "self_loop"
	ReasonUnknownSource = "unknown_source_kind"
	ReasonUnknownTarget = "unknown_target_kind"
	ReasonNotAllowed    = "not_allowed"
	ReasonDuplicate     = "duplicate"
)

// Error describes a rejected edge.
type Error struct {
	SourceID   string
	TargetID   string
	SourceKind catalog.Kind
	TargetKind catalog.Kind
	Reason     string
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonSelfLoop:
		return fmt.Sprintf("invalid connection: node '%s' cannot connect to itself", e.SourceID)
	case ReasonUnknownSource:
		return fmt.Sprintf("invalid connection: source kind '%s' is not in the catalog", e.SourceKind)
	case ReasonUnknownTarget:
		return fmt.Sprintf("invalid connection: target kind '%s' is not in the catalog", e.TargetKind)
	case ReasonDuplicate:
		return fmt.Sprintf("invalid connection: '%s' is already connected to '%s'", e.SourceID, e.TargetID)
	default:
		return fmt.Sprintf("invalid connection: %s cannot feed %s", e.SourceKind, e.TargetKind)
	}
}

func (e *Error) Unwrap() error { return ErrInvalidConnection }

// Check returns nil when an edge from sourceID (of sourceKind) to targetID
// (of targetKind) is legal, and an *Error otherwise.
func Check(sourceKind, targetKind catalog.Kind, sourceID, targetID string) error {
	e := &Error{SourceID: sourceID, TargetID: targetID, SourceKind: sourceKind, TargetKind: targetKind}
	switch {
	case sourceID == targetID:
		e.Reason = ReasonSelfLoop
	case !catalog.Known(sourceKind):
		e.Reason = ReasonUnknownSource
	case !catalog.Known(targetKind):
		e.Reason = ReasonUnknownTarget
	case !catalog.CanFeed(sourceKind, targetKind):
		e.Reason = ReasonNotAllowed
	default:
		return nil
	}
	return e
}

// IsValid is the boolean form of Check.
func IsValid(sourceKind, targetKind catalog.Kind, sourceID, targetID string) bool {
	return Check(sourceKind, targetKind, sourceID, targetID) == nil
}
