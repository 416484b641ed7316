// internal/nodeid/nodeid.go
package nodeid

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// EdgePrefix starts every generated edge id.
const EdgePrefix = "reactflow__edge-"

// idRegex rejects whitespace and control characters; anything else a
// document author chose is accepted.
var idRegex = regexp.MustCompile(`^[^\s\x00-\x1f]+$`)

// NewNode returns a fresh node id for kind.
func NewNode(kind string) string {
	return kind + "-" + uuid.NewString()
}

// NewEdge returns the id of the edge source -> target.
func NewEdge(source, target string) string {
	return EdgePrefix + source + "-" + target
}

// NewWorkflow returns a fresh workflow document id.
func NewWorkflow() string {
	return uuid.NewString()
}

// Validate checks that id can be stored and referenced.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("invalid identifier %q: must not contain whitespace or control characters", id)
	}
	return nil
}
