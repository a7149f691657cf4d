package scene

import (
	"context"
	"errors"

	"github.com/papercomputeco/keepsake/pkg/geometry"
)

// ErrNoContent is returned by SerializeDocument when the engine has no
// document loaded yet.
var ErrNoContent = errors.New("no diagram content loaded")

// ElementNotFoundError is returned when an operation references a node ID the
// engine does not know.
type ElementNotFoundError struct {
	ID string
}

func (e ElementNotFoundError) Error() string {
	if e.ID == "" {
		return "element not found"
	}
	return "element not found: " + e.ID
}

// ViewState is the canvas zoom level and visible viewbox.
type ViewState struct {
	Zoom    float64         `json:"zoom" yaml:"zoom"`
	Viewbox geometry.Bounds `json:"viewbox" yaml:"viewbox"`
}

// ShapeSpec describes a shape to create.
type ShapeSpec struct {
	ID     string
	Type   string
	Name   string
	Text   string
	Width  float64
	Height float64

	// LabelTarget is the node an external label is attached to.
	LabelTarget *Node
}

// ConnectionSpec describes a connection to create.
type ConnectionSpec struct {
	ID        string
	Type      string
	Waypoints []geometry.Point
}

// Engine is the diagram engine the snapshot engine reads from and rebuilds
// into. Implementations must be safe for use from a single goroutine at a
// time; the reference implementation in pkg/scene/inmemory is fully
// synchronized.
type Engine interface {
	// SerializeDocument writes the primary document. Returns ErrNoContent when
	// nothing has been loaded.
	SerializeDocument(ctx context.Context) (string, error)

	// ImportDocument replaces the live diagram with the parsed document.
	// Nodes may become visible asynchronously after this returns.
	ImportDocument(ctx context.Context, text string) error

	// CreateEmptyDocument resets the live diagram to an empty document.
	CreateEmptyDocument(ctx context.Context) error

	// Nodes lists every live node.
	Nodes() []*Node

	// Node looks up a live node by ID.
	Node(id string) (*Node, bool)

	// CreateShape creates a shape with its top-left corner at position. A nil
	// parent places it under the root.
	CreateShape(ctx context.Context, spec ShapeSpec, position geometry.Point, parent *Node) (*Node, error)

	CreateConnection(ctx context.Context, source, target *Node, spec ConnectionSpec) (*Node, error)

	// MoveNodes translates nodes by offset and re-parents them under
	// newParent. A nil newParent keeps the current parents.
	MoveNodes(ctx context.Context, nodes []*Node, offset geometry.Point, newParent *Node) error

	UpdateWaypoints(ctx context.Context, connection *Node, points []geometry.Point) error

	// SetBusinessParent updates the semantic back-reference of child.
	SetBusinessParent(ctx context.Context, child, parent *Node) error

	ViewState() (ViewState, error)
	SetViewState(state ViewState) error
}

// ChangeNotifier is implemented by engines that report live edits.
type ChangeNotifier interface {
	// OnChange registers fn to be called after every mutation. The returned
	// function unregisters it.
	OnChange(fn func(Change)) (unsubscribe func())
}

// Change describes one live edit.
type Change struct {
	Kind string
	IDs  []string
}

// Change kinds.
const (
	ChangeImport = "import"
	ChangeCreate = "create"
	ChangeMove   = "move"
	ChangeUpdate = "update"
	ChangeReset  = "reset"
)

// Connections returns the connection nodes in nodes.
func Connections(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n.IsConnection() {
			out = append(out, n)
		}
	}
	return out
}

// LabelOf returns the external label attached to n, if any.
func LabelOf(nodes []*Node, n *Node) *Node {
	if n == nil {
		return nil
	}
	for _, candidate := range nodes {
		if candidate.LabelTarget != nil && candidate.LabelTarget.ID == n.ID {
			return candidate
		}
	}
	return nil
}

// Route returns the waypoints of connection n when they are usable, or a
// synthetic route between the centers of its endpoints otherwise. Orthogonal
// connection kinds get a four-point route.
func Route(n *Node) []geometry.Point {
	if n == nil {
		return nil
	}
	if geometry.ValidWaypoints(n.Waypoints) {
		return geometry.Clone(n.Waypoints)
	}

	var source, target geometry.Bounds
	if n.Source != nil {
		source = n.Source.Bounds
	}
	if n.Target != nil {
		target = n.Target.Bounds
	}
	if UsesOrthogonalRouting(Describe(n).TypeTag()) {
		return geometry.OrthogonalRoute(source, target)
	}
	return geometry.StraightRoute(source, target)
}
