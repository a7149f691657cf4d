// Package inference derives containment relationships from a live node list.
//
// Three heuristics run in priority order. A child resolved by an earlier pass
// is never considered again, so the output holds at most one record per child:
//
//  1. visual: the live structural parent, when the pair is significant
//  2. proximity: the nearest top-level container within a distance threshold
//  3. derived-parent: an explicit semantic back-reference
//
// Proximity can attach a shape to the wrong container when two containers are
// close together. Ties go to the lexically smallest container ID and every
// proximity assignment is logged with its distance so mis-reconciliations can
// be traced.
package inference

import (
	"log/slog"
	"sort"
	"time"

	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/scene"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
)

// DefaultProximityThreshold is the maximum center distance, in diagram units,
// at which an extension shape is attached to a container.
const DefaultProximityThreshold = 400.0

// Config configures an Engine.
type Config struct {
	// ProximityThreshold defaults to DefaultProximityThreshold when zero.
	ProximityThreshold float64

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Engine runs the relationship heuristics.
type Engine struct {
	threshold float64
	now       func() time.Time
	logger    *slog.Logger
}

// NewEngine creates an inference engine.
func NewEngine(c Config) *Engine {
	e := &Engine{
		threshold: c.ProximityThreshold,
		now:       c.Now,
		logger:    c.Logger,
	}
	if e.threshold <= 0 {
		e.threshold = DefaultProximityThreshold
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = logger.Nop()
	}
	return e
}

// Threshold returns the proximity threshold in use.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Infer returns the deduplicated relationship records for nodes.
func (e *Engine) Infer(nodes []*scene.Node) []snapshot.RelationshipRecord {
	ts := e.now().UnixMilli()
	resolved := make(map[string]bool)
	records := make([]snapshot.RelationshipRecord, 0)

	emit := func(child, parent *scene.Node, p snapshot.Provenance) {
		resolved[child.ID] = true
		records = append(records, newRecord(child, parent, p, ts))
	}

	// visual
	for _, n := range nodes {
		if n.IsConnection() || n.Parent == nil || n.Parent.IsRoot() {
			continue
		}
		if rule, ok := MatchRule(n, n.Parent); ok {
			e.logger.Debug("visual containment",
				"child", n.ID,
				"parent", n.Parent.ID,
				"rule", rule.Name,
			)
			emit(n, n.Parent, snapshot.ProvenanceVisual)
		}
	}

	// proximity
	containers := topLevelContainers(nodes)
	for _, n := range nodes {
		if resolved[n.ID] || !proximityCandidate(n) {
			continue
		}

		nearest, dist := e.nearest(n, containers)
		if nearest == nil {
			continue
		}

		e.logger.Debug("proximity containment",
			"child", n.ID,
			"parent", nearest.ID,
			"distance", dist,
			"threshold", e.threshold,
		)
		emit(n, nearest, snapshot.ProvenanceProximity)
	}

	// derived-parent
	byID := make(map[string]*scene.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if resolved[n.ID] || n.IsConnection() {
			continue
		}
		ref := n.BusinessParentRef()
		if ref == "" || ref == n.ID {
			continue
		}
		parent, ok := byID[ref]
		if !ok || !IsSignificant(n, parent) {
			continue
		}
		e.logger.Debug("derived containment", "child", n.ID, "parent", parent.ID)
		emit(n, parent, snapshot.ProvenanceDerivedParent)
	}

	return records
}

// nearest returns the closest container within the threshold, or nil.
func (e *Engine) nearest(n *scene.Node, containers []*scene.Node) (*scene.Node, float64) {
	center := geometry.Center(n.Bounds)

	var best *scene.Node
	bestDist := 0.0
	for _, c := range containers {
		if c.ID == n.ID {
			continue
		}
		d := geometry.Distance(center, geometry.Center(c.Bounds))
		if d > e.threshold {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func topLevelContainers(nodes []*scene.Node) []*scene.Node {
	var out []*scene.Node
	for _, n := range nodes {
		if !n.IsConnection() && scene.IsTopLevelContainer(scene.Describe(n).TypeTag()) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func proximityCandidate(n *scene.Node) bool {
	if n.IsConnection() || n.IsLabel() {
		return false
	}
	t := scene.Describe(n).TypeTag()
	return scene.IsExtension(t) && !scene.IsTopLevelContainer(t)
}

func newRecord(child, parent *scene.Node, p snapshot.Provenance, ts int64) snapshot.RelationshipRecord {
	cd := scene.Describe(child)
	pd := scene.Describe(parent)
	co := child.Bounds.Origin()
	po := parent.Bounds.Origin()

	return snapshot.RelationshipRecord{
		ChildID:    child.ID,
		ParentID:   parent.ID,
		ChildName:  cd.DisplayName(),
		ParentName: pd.DisplayName(),
		ChildType:  cd.TypeTag(),
		ParentType: pd.TypeTag(),
		CapturedPosition: &snapshot.Position{
			ChildX:  co.X,
			ChildY:  co.Y,
			ParentX: po.X,
			ParentY: po.Y,
			Width:   child.Bounds.Sanitized().Width,
			Height:  child.Bounds.Sanitized().Height,
		},
		Provenance: p,
		Timestamp:  ts,
	}
}
