// Package scene models the live diagram as seen by the snapshot engine: the
// nodes a diagram engine exposes, the notation families they belong to, and
// the Engine interface through which they are read and rebuilt.
//
// Nodes are owned by the Engine. References between nodes (Parent, Source,
// Target, LabelTarget) are weak: they point at other live nodes and are never
// followed across engine sessions.
package scene

import (
	"strings"

	"github.com/papercomputeco/keepsake/pkg/geometry"
)

// Node is a single live diagram entity, either a shape or a connection.
type Node struct {
	// ID is unique within a diagram session.
	ID string

	// Type is the notation-qualified type tag, e.g. "bpmn:Task".
	Type string

	// Name is the engine-level display name, if any.
	Name string

	// Text is the rendered label text, if any.
	Text string

	Bounds geometry.Bounds

	// Parent is the structural container, nil for the implicit root.
	Parent *Node

	// Source and Target are set on connections only.
	Source *Node
	Target *Node

	// Waypoints is the routed polyline of a connection.
	Waypoints []geometry.Point

	// LabelTarget is set on external label nodes and points at the node the
	// label describes.
	LabelTarget *Node

	// Business is the semantic model object behind the shape. May be nil.
	Business *BusinessObject
}

// BusinessObject is the semantic (non-visual) side of a node.
type BusinessObject struct {
	Name string
	Type string

	// ParentRef is an explicit back-reference to the ID of the semantic
	// parent, independent of where the shape is drawn.
	ParentRef string
}

// IsConnection reports whether n is a connection.
func (n *Node) IsConnection() bool {
	if n == nil {
		return false
	}
	return n.Source != nil || n.Target != nil || IsConnectionType(n.Type)
}

// IsLabel reports whether n is an external label.
func (n *Node) IsLabel() bool {
	if n == nil {
		return false
	}
	return n.LabelTarget != nil || n.Type == TypeLabel
}

// IsRoot reports whether n is an implicit root that should never be treated as
// a real container.
func (n *Node) IsRoot() bool {
	if n == nil {
		return true
	}
	return n.Type == TypeRoot || strings.HasPrefix(n.ID, "__implicitroot")
}

// ParentID returns the ID of the live parent, or "" for root-level nodes.
func (n *Node) ParentID() string {
	if n == nil || n.Parent == nil || n.Parent.IsRoot() {
		return ""
	}
	return n.Parent.ID
}

// BusinessParentRef returns the explicit semantic parent reference, if any.
func (n *Node) BusinessParentRef() string {
	if n == nil || n.Business == nil {
		return ""
	}
	return n.Business.ParentRef
}
