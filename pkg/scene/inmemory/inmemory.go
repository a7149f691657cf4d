// Package inmemory is a synchronized, map-backed diagram engine. It reads and
// writes the XML primary document from pkg/document and only serializes the
// extension notations it has been told about, which makes it a faithful
// stand-in for engines whose exporters drop foreign shapes.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/keepsake/pkg/document"
	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/scene"
)

const rootID = "__implicitroot"

const (
	defaultShapeWidth  = 100.0
	defaultShapeHeight = 80.0
	defaultLabelWidth  = 90.0
	defaultLabelHeight = 20.0
)

// Engine implements scene.Engine and scene.ChangeNotifier.
type Engine struct {
	// mu guards every field below
	mu sync.RWMutex

	// nodes maps node IDs to live nodes. order keeps insertion order so
	// listings and serialization are stable.
	nodes map[string]*scene.Node
	order []string

	loaded bool
	view   scene.ViewState

	// generation is bumped by every import or reset so that a delayed
	// import does not publish over a newer one.
	generation int

	extensions    map[string]bool
	importLatency time.Duration

	listeners    map[int]func(scene.Change)
	nextListener int

	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtensions registers extension notations the serializer will write.
// Shapes and connections of any other extension notation are omitted from
// SerializeDocument.
func WithExtensions(notations ...string) Option {
	return func(e *Engine) {
		for _, n := range notations {
			e.extensions[strings.ToLower(n)] = true
		}
	}
}

// WithImportLatency delays the moment imported nodes become visible.
func WithImportLatency(d time.Duration) Option {
	return func(e *Engine) {
		e.importLatency = d
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger.OrNop(l)
	}
}

// New creates an engine with no document loaded.
func New(opts ...Option) *Engine {
	e := &Engine{
		nodes:      make(map[string]*scene.Node),
		extensions: make(map[string]bool),
		listeners:  make(map[int]func(scene.Change)),
		logger:     logger.Nop(),
		view:       defaultView(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultView() scene.ViewState {
	return scene.ViewState{Zoom: 1, Viewbox: geometry.Bounds{Width: 1200, Height: 800}}
}

// SerializeDocument writes every primary-notation node and every node of a
// registered extension notation.
func (e *Engine) SerializeDocument(_ context.Context) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return "", scene.ErrNoContent
	}

	doc := &document.Document{
		View: &document.View{
			Zoom:   e.view.Zoom,
			X:      e.view.Viewbox.X,
			Y:      e.view.Viewbox.Y,
			Width:  e.view.Viewbox.Width,
			Height: e.view.Viewbox.Height,
		},
	}

	for _, id := range e.order {
		n := e.nodes[id]
		if n.IsRoot() || !e.serializable(n) {
			continue
		}

		if n.IsConnection() {
			doc.Connections = append(doc.Connections, e.encodeConnection(n))
			continue
		}
		doc.Shapes = append(doc.Shapes, encodeShape(n))
	}

	return doc.Encode()
}

func (e *Engine) serializable(n *scene.Node) bool {
	if n.LabelTarget != nil {
		return e.serializable(n.LabelTarget)
	}
	if !scene.IsExtension(n.Type) {
		return true
	}
	return e.extensions[scene.Notation(n.Type)]
}

func encodeShape(n *scene.Node) document.Shape {
	s := document.Shape{
		ID:     n.ID,
		Type:   n.Type,
		Name:   n.Name,
		Text:   n.Text,
		Parent: n.ParentID(),
		X:      n.Bounds.X,
		Y:      n.Bounds.Y,
		Width:  n.Bounds.Width,
		Height: n.Bounds.Height,
	}
	if n.LabelTarget != nil {
		s.LabelTarget = n.LabelTarget.ID
	}
	s.ParentRef = n.BusinessParentRef()
	return s
}

// encodeConnection writes extension connections with their legacy endpoint
// attribute names, which must be normalized before they can be imported
// again.
func (e *Engine) encodeConnection(n *scene.Node) document.Connection {
	c := document.Connection{ID: n.ID, Type: n.Type}

	var source, target string
	if n.Source != nil {
		source = n.Source.ID
	}
	if n.Target != nil {
		target = n.Target.ID
	}
	if scene.IsExtension(n.Type) {
		c.Source, c.Target = source, target
	} else {
		c.SourceRef, c.TargetRef = source, target
	}

	for _, p := range n.Waypoints {
		c.Waypoints = append(c.Waypoints, document.Waypoint{X: p.X, Y: p.Y})
	}
	return c
}

// ImportDocument parses text and replaces the live diagram with it.
// Connections whose endpoints cannot be resolved through sourceRef and
// targetRef are dropped. With an import latency configured the new nodes
// become visible asynchronously.
func (e *Engine) ImportDocument(_ context.Context, text string) error {
	doc, err := document.Parse(text)
	if err != nil {
		return err
	}

	nodes, order, dropped := build(doc)
	if len(dropped) > 0 {
		e.logger.Debug("dropped unresolved connections on import", "ids", dropped)
	}

	view := defaultView()
	if doc.View != nil {
		view = scene.ViewState{
			Zoom:    doc.View.Zoom,
			Viewbox: geometry.Bounds{X: doc.View.X, Y: doc.View.Y, Width: doc.View.Width, Height: doc.View.Height},
		}
	}

	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.loaded = true
	e.view = view
	e.resetLocked()

	if e.importLatency <= 0 {
		e.publishLocked(nodes, order)
		e.mu.Unlock()
		e.notify(scene.Change{Kind: scene.ChangeImport, IDs: order})
		return nil
	}
	e.mu.Unlock()

	time.AfterFunc(e.importLatency, func() {
		e.mu.Lock()
		if e.generation != gen {
			e.mu.Unlock()
			return
		}
		e.publishLocked(nodes, order)
		e.mu.Unlock()
		e.notify(scene.Change{Kind: scene.ChangeImport, IDs: order})
	})
	return nil
}

func build(doc *document.Document) (map[string]*scene.Node, []string, []string) {
	nodes := make(map[string]*scene.Node, len(doc.Shapes)+len(doc.Connections))
	var order []string

	for _, s := range doc.Shapes {
		if s.ID == "" || s.ID == rootID {
			continue
		}
		n := &scene.Node{
			ID:     s.ID,
			Type:   s.Type,
			Name:   s.Name,
			Text:   s.Text,
			Bounds: geometry.Bounds{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height},
		}
		if s.ParentRef != "" || s.Name != "" {
			n.Business = &scene.BusinessObject{Name: s.Name, Type: s.Type, ParentRef: s.ParentRef}
		}
		if _, dup := nodes[s.ID]; !dup {
			order = append(order, s.ID)
		}
		nodes[s.ID] = n
	}

	// second pass resolves references once every shape exists
	for _, s := range doc.Shapes {
		n, ok := nodes[s.ID]
		if !ok {
			continue
		}
		if p, ok := nodes[s.Parent]; ok && p != n {
			n.Parent = p
		}
		if t, ok := nodes[s.LabelTarget]; ok && t != n {
			n.LabelTarget = t
			n.Type = scene.TypeLabel
		}
	}

	var dropped []string
	for _, c := range doc.Connections {
		source, okSource := nodes[c.SourceRef]
		target, okTarget := nodes[c.TargetRef]
		if c.ID == "" || !okSource || !okTarget {
			dropped = append(dropped, c.ID)
			continue
		}

		n := &scene.Node{ID: c.ID, Type: c.Type, Source: source, Target: target}
		for _, w := range c.Waypoints {
			n.Waypoints = append(n.Waypoints, geometry.Point{X: w.X, Y: w.Y})
		}
		if _, dup := nodes[c.ID]; !dup {
			order = append(order, c.ID)
		}
		nodes[c.ID] = n
	}

	return nodes, order, dropped
}

// CreateEmptyDocument resets the engine to an empty, loaded document.
func (e *Engine) CreateEmptyDocument(_ context.Context) error {
	e.mu.Lock()
	e.generation++
	e.loaded = true
	e.view = defaultView()
	e.resetLocked()
	e.mu.Unlock()

	e.notify(scene.Change{Kind: scene.ChangeReset})
	return nil
}

func (e *Engine) resetLocked() {
	root := &scene.Node{ID: rootID, Type: scene.TypeRoot}
	e.nodes = map[string]*scene.Node{rootID: root}
	e.order = []string{rootID}
}

func (e *Engine) publishLocked(nodes map[string]*scene.Node, order []string) {
	root := e.nodes[rootID]
	for _, id := range order {
		n := nodes[id]
		if n.Parent == nil && !n.IsConnection() {
			n.Parent = root
		}
		e.nodes[id] = n
		e.order = append(e.order, id)
	}
}

// Nodes returns detached copies of every live node, root included.
func (e *Engine) Nodes() []*scene.Node {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out, _ := e.cloneLocked()
	return out
}

// Node returns a detached copy of one live node. Its references point at
// detached copies of the neighbours, whose own references are cleared.
func (e *Engine) Node(id string) (*scene.Node, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n, ok := e.nodes[id]
	if !ok {
		return nil, false
	}

	c := copyNode(n)
	neighbour := func(r *scene.Node) *scene.Node {
		if r == nil {
			return nil
		}
		nc := copyNode(r)
		nc.Parent, nc.Source, nc.Target, nc.LabelTarget = nil, nil, nil, nil
		return nc
	}
	c.Parent = neighbour(n.Parent)
	c.Source = neighbour(n.Source)
	c.Target = neighbour(n.Target)
	c.LabelTarget = neighbour(n.LabelTarget)
	return c, true
}

// copyNode copies n without touching its references.
func copyNode(n *scene.Node) *scene.Node {
	c := *n
	c.Waypoints = geometry.Clone(n.Waypoints)
	if n.Business != nil {
		b := *n.Business
		c.Business = &b
	}
	return &c
}

// cloneLocked copies the graph and rewires references between the copies.
func (e *Engine) cloneLocked() ([]*scene.Node, map[string]*scene.Node) {
	out := make([]*scene.Node, 0, len(e.order))
	byID := make(map[string]*scene.Node, len(e.order))
	for _, id := range e.order {
		c := copyNode(e.nodes[id])
		byID[id] = c
		out = append(out, c)
	}

	ref := func(n *scene.Node) *scene.Node {
		if n == nil {
			return nil
		}
		return byID[n.ID]
	}
	for _, c := range out {
		c.Parent = ref(c.Parent)
		c.Source = ref(c.Source)
		c.Target = ref(c.Target)
		c.LabelTarget = ref(c.LabelTarget)
	}
	return out, byID
}

func (e *Engine) lookupLocked(n *scene.Node) (*scene.Node, error) {
	if n == nil {
		return nil, scene.ElementNotFoundError{}
	}
	live, ok := e.nodes[n.ID]
	if !ok {
		return nil, scene.ElementNotFoundError{ID: n.ID}
	}
	return live, nil
}

// CreateShape adds a shape. An empty spec ID gets a generated one.
func (e *Engine) CreateShape(_ context.Context, spec scene.ShapeSpec, position geometry.Point, parent *scene.Node) (*scene.Node, error) {
	e.mu.Lock()

	if !e.loaded {
		e.mu.Unlock()
		return nil, scene.ErrNoContent
	}

	id := spec.ID
	if id == "" {
		id = generateID(spec.Type)
	}
	if _, exists := e.nodes[id]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("element %q already exists", id)
	}

	liveParent := e.nodes[rootID]
	if parent != nil {
		p, err := e.lookupLocked(parent)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		liveParent = p
	}

	width, height := spec.Width, spec.Height
	isLabel := spec.LabelTarget != nil || spec.Type == scene.TypeLabel
	if width <= 0 {
		width = defaultShapeWidth
		if isLabel {
			width = defaultLabelWidth
		}
	}
	if height <= 0 {
		height = defaultShapeHeight
		if isLabel {
			height = defaultLabelHeight
		}
	}

	n := &scene.Node{
		ID:     id,
		Type:   spec.Type,
		Name:   spec.Name,
		Text:   spec.Text,
		Bounds: geometry.Bounds{X: position.X, Y: position.Y, Width: width, Height: height},
		Parent: liveParent,
	}
	if spec.Name != "" {
		n.Business = &scene.BusinessObject{Name: spec.Name, Type: spec.Type}
	}
	if spec.LabelTarget != nil {
		target, err := e.lookupLocked(spec.LabelTarget)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		n.LabelTarget = target
		n.Type = scene.TypeLabel
	}

	e.nodes[id] = n
	e.order = append(e.order, id)
	_, byID := e.cloneLocked()
	e.mu.Unlock()

	e.notify(scene.Change{Kind: scene.ChangeCreate, IDs: []string{id}})
	return byID[id], nil
}

// CreateConnection adds a connection between two live nodes. Without
// waypoints the connection is routed straight between the node centers.
func (e *Engine) CreateConnection(_ context.Context, source, target *scene.Node, spec scene.ConnectionSpec) (*scene.Node, error) {
	e.mu.Lock()

	if !e.loaded {
		e.mu.Unlock()
		return nil, scene.ErrNoContent
	}

	liveSource, err := e.lookupLocked(source)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	liveTarget, err := e.lookupLocked(target)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	id := spec.ID
	if id == "" {
		id = generateID(spec.Type)
	}
	if _, exists := e.nodes[id]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("element %q already exists", id)
	}

	points := geometry.Clone(spec.Waypoints)
	if !geometry.ValidWaypoints(points) {
		points = geometry.StraightRoute(liveSource.Bounds, liveTarget.Bounds)
	}

	n := &scene.Node{
		ID:        id,
		Type:      spec.Type,
		Source:    liveSource,
		Target:    liveTarget,
		Waypoints: points,
	}
	e.nodes[id] = n
	e.order = append(e.order, id)
	_, byID := e.cloneLocked()
	e.mu.Unlock()

	e.notify(scene.Change{Kind: scene.ChangeCreate, IDs: []string{id}})
	return byID[id], nil
}

// MoveNodes translates shapes and connection waypoints by offset.
func (e *Engine) MoveNodes(_ context.Context, nodes []*scene.Node, offset geometry.Point, newParent *scene.Node) error {
	if !offset.Finite() {
		return errors.New("move offset must be finite")
	}

	e.mu.Lock()

	var liveParent *scene.Node
	if newParent != nil {
		p, err := e.lookupLocked(newParent)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		liveParent = p
	}

	live := make([]*scene.Node, 0, len(nodes))
	for _, n := range nodes {
		l, err := e.lookupLocked(n)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		if liveParent != nil && l == liveParent {
			e.mu.Unlock()
			return fmt.Errorf("cannot move %q into itself", l.ID)
		}
		live = append(live, l)
	}

	ids := make([]string, 0, len(live))
	for _, l := range live {
		if l.IsConnection() {
			for i := range l.Waypoints {
				l.Waypoints[i] = l.Waypoints[i].Add(offset)
			}
		} else {
			l.Bounds.X += offset.X
			l.Bounds.Y += offset.Y
			if liveParent != nil {
				l.Parent = liveParent
			}
		}
		ids = append(ids, l.ID)
	}
	e.mu.Unlock()

	e.notify(scene.Change{Kind: scene.ChangeMove, IDs: ids})
	return nil
}

// UpdateWaypoints replaces the routed points of a connection.
func (e *Engine) UpdateWaypoints(_ context.Context, connection *scene.Node, points []geometry.Point) error {
	e.mu.Lock()

	live, err := e.lookupLocked(connection)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !live.IsConnection() {
		e.mu.Unlock()
		return fmt.Errorf("element %q is not a connection", live.ID)
	}
	live.Waypoints = geometry.Clone(points)
	e.mu.Unlock()

	e.notify(scene.Change{Kind: scene.ChangeUpdate, IDs: []string{connection.ID}})
	return nil
}

// SetBusinessParent points the semantic parent reference of child at parent.
func (e *Engine) SetBusinessParent(_ context.Context, child, parent *scene.Node) error {
	e.mu.Lock()

	liveChild, err := e.lookupLocked(child)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	liveParent, err := e.lookupLocked(parent)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	if liveChild.Business == nil {
		liveChild.Business = &scene.BusinessObject{Name: liveChild.Name, Type: liveChild.Type}
	}
	liveChild.Business.ParentRef = liveParent.ID
	e.mu.Unlock()

	e.notify(scene.Change{Kind: scene.ChangeUpdate, IDs: []string{child.ID}})
	return nil
}

// ViewState returns the current viewport.
func (e *Engine) ViewState() (scene.ViewState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return scene.ViewState{}, scene.ErrNoContent
	}
	return e.view, nil
}

// SetViewState replaces the viewport.
func (e *Engine) SetViewState(state scene.ViewState) error {
	if state.Zoom <= 0 || !state.Viewbox.Valid() {
		return fmt.Errorf("invalid view state: zoom %v viewbox %+v", state.Zoom, state.Viewbox)
	}

	e.mu.Lock()
	e.view = state
	e.mu.Unlock()
	return nil
}

// OnChange registers fn for change notifications.
func (e *Engine) OnChange(fn func(scene.Change)) func() {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify(c scene.Change) {
	e.mu.RLock()
	fns := make([]func(scene.Change), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func generateID(typeTag string) string {
	local := typeTag
	if _, after, ok := strings.Cut(typeTag, ":"); ok {
		local = after
	}
	if local == "" {
		local = "Element"
	}
	return local + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
