// Package restore rebuilds a live diagram from a snapshot.
//
// Restoration runs in phases. The primary document is reloaded, the auxiliary
// nodes it does not carry are materialized, and the restorer waits for every
// node the relationships reference. Containment is then re-applied, connection
// geometry repaired, and the auxiliary stores restored last.
//
// Only a primary document that cannot be imported even into a fresh diagram
// is fatal. Every other failure is logged, counted in the Report and skipped.
package restore

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/papercomputeco/keepsake/pkg/document"
	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/scene"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
	"github.com/papercomputeco/keepsake/pkg/waitfor"
	"github.com/papercomputeco/keepsake/pkg/workspace"
)

// DefaultSettleDelay is slept after the reload and after each auxiliary
// domain restore.
const DefaultSettleDelay = 100 * time.Millisecond

// DefaultLabelNudge is added to a label's move when the label overlaps its
// element.
var DefaultLabelNudge = geometry.Point{X: 0, Y: 20}

// PrimaryReloadError is returned when the primary document could not be
// imported, even after resetting to an empty diagram.
type PrimaryReloadError struct {
	Err error
}

func (e PrimaryReloadError) Error() string {
	return "reloading primary document: " + e.Err.Error()
}

func (e PrimaryReloadError) Unwrap() error {
	return e.Err
}

// Config configures a Restorer.
type Config struct {
	// Poll bounds the readiness wait.
	Poll waitfor.Options

	// SettleDelay is slept after the reload and after each auxiliary domain
	// is restored. Negative disables settling; zero uses the default.
	SettleDelay time.Duration

	// LabelNudge defaults to DefaultLabelNudge when nil.
	LabelNudge *geometry.Point

	Logger *slog.Logger
}

// Report summarizes one restore.
type Report struct {
	// NormalizedAttributes counts attributes renamed before reload.
	NormalizedAttributes int `json:"normalizedAttributes"`

	// Placeholders lists shapes injected into the document before reload.
	Placeholders []string `json:"placeholders,omitempty"`

	// EmptyDiagram is set when the restore started from an empty diagram
	// because the snapshot carried no document.
	EmptyDiagram bool `json:"emptyDiagram"`

	Created            []string `json:"created,omitempty"`
	ConnectionsCreated []string `json:"connectionsCreated,omitempty"`
	AlreadyPresent     int      `json:"alreadyPresent"`
	SkippedLabels      []string `json:"skippedLabels,omitempty"`

	// Missing lists relationship endpoints that never appeared.
	Missing []string `json:"missing,omitempty"`

	Applied        int      `json:"applied"`
	AlreadyCorrect int      `json:"alreadyCorrect"`
	Skipped        []string `json:"skipped,omitempty"`

	GeometryRepaired int `json:"geometryRepaired"`

	Indicators       int      `json:"indicators"`
	PrunedIndicators []string `json:"prunedIndicators,omitempty"`

	// Failed lists element IDs whose engine operation returned an error.
	Failed []string `json:"failed,omitempty"`
}

// Restorer applies snapshots to a workspace.
type Restorer struct {
	ws     *workspace.Workspace
	poll   waitfor.Options
	settle time.Duration
	nudge  geometry.Point
	logger *slog.Logger
}

// New creates a Restorer for ws.
func New(ws *workspace.Workspace, c Config) *Restorer {
	r := &Restorer{
		ws:     ws,
		poll:   c.Poll,
		settle: c.SettleDelay,
		nudge:  DefaultLabelNudge,
		logger: logger.OrNop(c.Logger),
	}
	if r.settle == 0 {
		r.settle = DefaultSettleDelay
	}
	if c.LabelNudge != nil {
		r.nudge = *c.LabelNudge
	}
	return r
}

// Restore rebuilds the workspace from snap. The returned error is a
// PrimaryReloadError or a context error; in every other case the Report
// carries the partial results.
func (r *Restorer) Restore(ctx context.Context, snap *snapshot.Snapshot) (*Report, error) {
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}

	report := &Report{}

	if err := r.reload(ctx, snap, report); err != nil {
		return report, err
	}
	if err := r.sleep(ctx); err != nil {
		return report, err
	}

	r.materialize(ctx, snap, report)
	r.repairGeometry(ctx, snap, report)

	missing, err := waitfor.Poll(ctx, r.poll, func() []string {
		return r.missing(requiredIDs(snap.Relationships))
	})
	if err != nil {
		return report, err
	}
	if len(missing) > 0 {
		r.logger.Warn("relationship endpoints never appeared", "missing", missing)
	}
	report.Missing = missing

	r.materializeConnections(ctx, snap, report)
	r.applyRelationships(ctx, snap, report)
	r.repairGeometry(ctx, snap, report)

	if err := r.restoreDomains(ctx, snap, report); err != nil {
		return report, err
	}

	r.logger.Info("restored snapshot",
		"created", len(report.Created),
		"applied", report.Applied,
		"already_correct", report.AlreadyCorrect,
		"missing", len(report.Missing),
		"geometry_repaired", report.GeometryRepaired,
	)
	return report, nil
}

func (r *Restorer) sleep(ctx context.Context) error {
	if r.settle < 0 {
		return ctx.Err()
	}
	return waitfor.Sleep(ctx, r.settle)
}

// reload imports the normalized primary document, with placeholders for
// relationship children that neither the document nor the auxiliary records
// carry.
func (r *Restorer) reload(ctx context.Context, snap *snapshot.Snapshot, report *Report) error {
	engine := r.ws.Engine

	if !snap.HasDocument() {
		report.EmptyDiagram = true
		if err := engine.CreateEmptyDocument(ctx); err != nil {
			return PrimaryReloadError{Err: err}
		}
		return nil
	}

	text, renamed := document.Normalize(*snap.PrimaryDocument)
	report.NormalizedAttributes = renamed

	text, injected, err := document.InjectPlaceholders(text, placeholders(snap))
	if err != nil {
		r.logger.Warn("could not inject placeholders", "error", err)
	}
	report.Placeholders = injected

	err = engine.ImportDocument(ctx, text)
	if err == nil {
		return nil
	}

	r.logger.Warn("primary document import failed, retrying on an empty diagram", "error", err)
	if resetErr := engine.CreateEmptyDocument(ctx); resetErr != nil {
		return PrimaryReloadError{Err: errors.Join(err, resetErr)}
	}
	if err := engine.ImportDocument(ctx, text); err != nil {
		return PrimaryReloadError{Err: err}
	}
	return nil
}

func placeholders(snap *snapshot.Snapshot) []document.Placeholder {
	text := *snap.PrimaryDocument
	aux := make(map[string]bool, len(snap.AuxiliaryNodes))
	for _, rec := range snap.AuxiliaryNodes {
		aux[rec.ID] = true
	}

	var out []document.Placeholder
	for _, rel := range snap.Relationships {
		if aux[rel.ChildID] || rel.ChildType == scene.TypeLabel || document.HasShape(text, rel.ChildID) {
			continue
		}
		p := document.Placeholder{ID: rel.ChildID, Type: rel.ChildType, Name: rel.ChildName}
		if pos := rel.CapturedPosition; pos != nil {
			p.Bounds = geometry.Bounds{X: pos.ChildX, Y: pos.ChildY, Width: pos.Width, Height: pos.Height}
		}
		out = append(out, p)
	}
	return out
}

// materialize creates the auxiliary nodes that are not live yet: containers
// first, then ordinary nodes, labels last.
func (r *Restorer) materialize(ctx context.Context, snap *snapshot.Snapshot, report *Report) {
	engine := r.ws.Engine

	records := append([]snapshot.AuxiliaryNodeRecord(nil), snap.AuxiliaryNodes...)
	sort.SliceStable(records, func(i, j int) bool {
		return materializeRank(records[i]) < materializeRank(records[j])
	})

	for _, rec := range records {
		if _, ok := engine.Node(rec.ID); ok {
			report.AlreadyPresent++
			continue
		}

		spec := scene.ShapeSpec{
			ID:     rec.ID,
			Type:   rec.Type,
			Name:   rec.Name,
			Text:   rec.Text,
			Width:  rec.Bounds.Width,
			Height: rec.Bounds.Height,
		}

		if rec.IsLabel() {
			target, ok := engine.Node(rec.LabelTargetID)
			if !ok {
				r.logger.Warn("skipping label without target", "label", rec.ID, "target", rec.LabelTargetID)
				report.SkippedLabels = append(report.SkippedLabels, rec.ID)
				continue
			}
			spec.LabelTarget = target
		}

		var parent *scene.Node
		if rec.ParentID != "" {
			if p, ok := engine.Node(rec.ParentID); ok {
				parent = p
			}
		}

		if _, err := engine.CreateShape(ctx, spec, rec.Bounds.Sanitized().Origin(), parent); err != nil {
			r.logger.Warn("could not create auxiliary node", "id", rec.ID, "type", rec.Type, "error", err)
			report.Failed = append(report.Failed, rec.ID)
			continue
		}
		report.Created = append(report.Created, rec.ID)
	}
}

// materializeConnections recreates captured connections that are not live
// once both of their endpoints are.
func (r *Restorer) materializeConnections(ctx context.Context, snap *snapshot.Snapshot, report *Report) {
	engine := r.ws.Engine

	for _, rec := range snap.ConnectionGeometry {
		if _, ok := engine.Node(rec.ID); ok {
			continue
		}
		source, okSource := engine.Node(rec.SourceID)
		target, okTarget := engine.Node(rec.TargetID)
		if !okSource || !okTarget {
			r.logger.Debug("connection endpoints not live", "connection", rec.ID, "source", rec.SourceID, "target", rec.TargetID)
			continue
		}

		spec := scene.ConnectionSpec{ID: rec.ID, Type: rec.Type, Waypoints: geometry.Clone(rec.Waypoints)}
		if _, err := engine.CreateConnection(ctx, source, target, spec); err != nil {
			r.logger.Warn("could not create connection", "id", rec.ID, "error", err)
			report.Failed = append(report.Failed, rec.ID)
			continue
		}
		report.ConnectionsCreated = append(report.ConnectionsCreated, rec.ID)
	}
}

func materializeRank(rec snapshot.AuxiliaryNodeRecord) int {
	switch {
	case rec.IsLabel():
		return 2
	case scene.IsTopLevelContainer(rec.Type):
		return 0
	default:
		return 1
	}
}

// requiredIDs returns the distinct non-label node IDs relationships refer to.
func requiredIDs(rels []snapshot.RelationshipRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id, typ string) {
		if id == "" || typ == scene.TypeLabel || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, rel := range rels {
		add(rel.ChildID, rel.ChildType)
		add(rel.ParentID, rel.ParentType)
	}
	return ids
}

func (r *Restorer) missing(ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, ok := r.ws.Engine.Node(id); !ok {
			out = append(out, id)
		}
	}
	return out
}

// applyRelationships re-parents every child whose live parent differs from
// the captured one, restoring its captured offset from the parent.
func (r *Restorer) applyRelationships(ctx context.Context, snap *snapshot.Snapshot, report *Report) {
	engine := r.ws.Engine

	for _, rel := range snap.Relationships {
		child, okChild := engine.Node(rel.ChildID)
		parent, okParent := engine.Node(rel.ParentID)
		if !okChild || !okParent {
			report.Skipped = append(report.Skipped, rel.ChildID)
			continue
		}

		if child.ParentID() == parent.ID {
			report.AlreadyCorrect++
			continue
		}

		delta := geometry.Point{}
		if pos := rel.CapturedPosition; pos != nil {
			target := parent.Bounds.Origin().Add(pos.Offset())
			delta = target.Sub(child.Bounds.Origin())
		}
		if !delta.Finite() {
			delta = geometry.Point{}
		}

		childBounds := child.Bounds
		if err := engine.MoveNodes(ctx, []*scene.Node{child}, delta, parent); err != nil {
			r.logger.Warn("could not re-parent node", "child", child.ID, "parent", parent.ID, "error", err)
			report.Failed = append(report.Failed, child.ID)
			continue
		}

		if label := scene.LabelOf(engine.Nodes(), child); label != nil {
			labelDelta := delta
			if label.Bounds.Overlaps(childBounds) {
				labelDelta = delta.Add(r.nudge)
			}
			if err := engine.MoveNodes(ctx, []*scene.Node{label}, labelDelta, parent); err != nil {
				r.logger.Warn("could not move label", "label", label.ID, "error", err)
			}
		}

		if err := engine.SetBusinessParent(ctx, child, parent); err != nil {
			r.logger.Warn("could not update business parent", "child", child.ID, "parent", parent.ID, "error", err)
		}

		r.logger.Debug("applied relationship",
			"child", child.ID,
			"parent", parent.ID,
			"provenance", rel.Provenance,
			"delta_x", delta.X,
			"delta_y", delta.Y,
		)
		report.Applied++
	}
}

// repairGeometry puts captured waypoints back on live connections and gives
// connections with unusable waypoints a synthetic route.
func (r *Restorer) repairGeometry(ctx context.Context, snap *snapshot.Snapshot, report *Report) {
	engine := r.ws.Engine

	captured := make(map[string][]geometry.Point, len(snap.ConnectionGeometry))
	for _, rec := range snap.ConnectionGeometry {
		captured[rec.ID] = rec.Waypoints
	}

	for _, conn := range scene.Connections(engine.Nodes()) {
		var want []geometry.Point
		if points, ok := captured[conn.ID]; ok && geometry.ValidWaypoints(points) {
			want = points
		} else if !geometry.ValidWaypoints(conn.Waypoints) {
			want = scene.Route(conn)
		}
		if want == nil || equalPoints(conn.Waypoints, want) {
			continue
		}

		if err := engine.UpdateWaypoints(ctx, conn, geometry.Clone(want)); err != nil {
			r.logger.Warn("could not update waypoints", "connection", conn.ID, "error", err)
			continue
		}
		report.GeometryRepaired++
	}
}

func equalPoints(a, b []geometry.Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// restoreDomains restores indicators, the responsibility matrix, the view
// state and form fields, settling after each.
func (r *Restorer) restoreDomains(ctx context.Context, snap *snapshot.Snapshot, report *Report) error {
	for _, rec := range snap.Indicators {
		if err := r.ws.Indicators.Add(rec); err != nil {
			r.logger.Warn("could not restore indicator", "id", rec.ID, "error", err)
			continue
		}
		report.Indicators++
	}
	report.PrunedIndicators = r.ws.Indicators.PruneOrphans(r.ws.Exists)
	if len(report.PrunedIndicators) > 0 {
		r.logger.Info("pruned orphan indicators", "ids", report.PrunedIndicators)
	}
	if err := r.sleep(ctx); err != nil {
		return err
	}

	r.ws.Matrix.SetRoles(snap.ResponsibilityMatrix.Roles)
	r.ws.Matrix.SetMatrix(snap.ResponsibilityMatrix.Matrix)
	if err := r.sleep(ctx); err != nil {
		return err
	}

	if err := r.ws.Engine.SetViewState(snap.ViewState); err != nil {
		r.logger.Debug("view state not restored", "error", err)
	}

	r.ws.Form.SetFields(snap.FormMetadata)
	return r.sleep(ctx)
}
