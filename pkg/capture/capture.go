// Package capture builds a snapshot of the live diagram and its auxiliary
// stores. Capture only reads from the diagram, with one exception: an engine
// that has never loaded a document is given an empty one so that there is
// something to serialize.
package capture

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/keepsake/pkg/document"
	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/inference"
	"github.com/papercomputeco/keepsake/pkg/logger"
	"github.com/papercomputeco/keepsake/pkg/scene"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
	"github.com/papercomputeco/keepsake/pkg/workspace"
)

// DefaultFormFields is the form field whitelist used when none is configured.
var DefaultFormFields = []string{"projectName", "author", "description"}

// Config configures a Capturer.
type Config struct {
	// Inference defaults to an engine with the default threshold.
	Inference *inference.Engine

	// FormFields is the whitelist of form fields saved with a snapshot.
	FormFields []string

	Now    func() time.Time
	Logger *slog.Logger
}

// Capturer snapshots a workspace.
type Capturer struct {
	ws         *workspace.Workspace
	infer      *inference.Engine
	formFields []string
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Capturer for ws.
func New(ws *workspace.Workspace, c Config) *Capturer {
	cp := &Capturer{
		ws:         ws,
		infer:      c.Inference,
		formFields: c.FormFields,
		now:        c.Now,
		logger:     logger.OrNop(c.Logger),
	}
	if cp.now == nil {
		cp.now = time.Now
	}
	if cp.infer == nil {
		cp.infer = inference.NewEngine(inference.Config{Now: cp.now, Logger: cp.logger})
	}
	if cp.formFields == nil {
		cp.formFields = DefaultFormFields
	}
	return cp
}

// Capture returns a fresh snapshot. Individual sub-captures that fail are
// replaced by empty values and logged; only context cancellation is returned
// as an error.
func (c *Capturer) Capture(ctx context.Context) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := snapshot.New(c.now().UnixMilli())
	snap.PrimaryDocument = c.primaryDocument(ctx)

	nodes := c.ws.Engine.Nodes()
	live := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		live[n.ID] = true
	}

	snap.Relationships = c.infer.Infer(nodes)
	snap.AuxiliaryNodes = auxiliaryNodes(nodes, snap.PrimaryDocument)
	snap.ConnectionGeometry = c.connectionGeometry(nodes)
	snap.ViewState = c.viewState()

	for _, rec := range c.ws.Indicators.All() {
		if live[rec.ElementID] {
			snap.Indicators = append(snap.Indicators, rec)
		}
	}
	snap.ResponsibilityMatrix = c.ws.Matrix.Snapshot(func(task string) bool { return live[task] })
	snap.FormMetadata = c.ws.Form.Select(c.formFields)

	c.logger.Info("captured snapshot",
		"document", snap.HasDocument(),
		"relationships", len(snap.Relationships),
		"auxiliary_nodes", len(snap.AuxiliaryNodes),
		"connections", len(snap.ConnectionGeometry),
		"indicators", len(snap.Indicators),
	)
	return snap, nil
}

func (c *Capturer) primaryDocument(ctx context.Context) *string {
	text, err := c.ws.Engine.SerializeDocument(ctx)
	if errors.Is(err, scene.ErrNoContent) {
		c.logger.Debug("no document loaded, creating an empty one")
		if err := c.ws.Engine.CreateEmptyDocument(ctx); err != nil {
			c.logger.Warn("could not create empty document", "error", err)
			return nil
		}
		text, err = c.ws.Engine.SerializeDocument(ctx)
	}
	if err != nil {
		c.logger.Warn("primary document not captured", "error", err)
		return nil
	}
	return &text
}

// auxiliaryNodes returns the extension-notation nodes the primary document
// does not carry, followed by the external labels of those nodes.
func auxiliaryNodes(nodes []*scene.Node, text *string) []snapshot.AuxiliaryNodeRecord {
	inDocument := func(id string) bool {
		return text != nil && document.ContainsID(*text, id)
	}

	out := []snapshot.AuxiliaryNodeRecord{}
	aux := make(map[string]bool)
	for _, n := range nodes {
		if n.IsRoot() || n.IsConnection() || n.IsLabel() {
			continue
		}
		d := scene.Describe(n)
		if !scene.IsExtension(d.TypeTag()) || inDocument(n.ID) {
			continue
		}
		aux[n.ID] = true
		out = append(out, snapshot.AuxiliaryNodeRecord{
			Type:     d.TypeTag(),
			ID:       n.ID,
			Bounds:   n.Bounds.Sanitized(),
			Text:     n.Text,
			Name:     n.Name,
			ParentID: n.ParentID(),
		})
	}

	for _, n := range nodes {
		if !n.IsLabel() || n.LabelTarget == nil || !aux[n.LabelTarget.ID] || inDocument(n.ID) {
			continue
		}
		out = append(out, snapshot.AuxiliaryNodeRecord{
			Type:          scene.TypeLabel,
			ID:            n.ID,
			Bounds:        n.Bounds.Sanitized(),
			Text:          n.Text,
			Name:          n.Name,
			LabelTargetID: n.LabelTarget.ID,
		})
	}
	return out
}

func (c *Capturer) connectionGeometry(nodes []*scene.Node) []snapshot.ConnectionGeometryRecord {
	out := []snapshot.ConnectionGeometryRecord{}
	for _, n := range scene.Connections(nodes) {
		rec := snapshot.ConnectionGeometryRecord{
			ID:        n.ID,
			Type:      scene.Describe(n).TypeTag(),
			Waypoints: scene.Route(n),
		}
		if n.Source != nil {
			rec.SourceID = n.Source.ID
		}
		if n.Target != nil {
			rec.TargetID = n.Target.ID
		}
		if !geometry.ValidWaypoints(n.Waypoints) {
			c.logger.Debug("replaced invalid waypoints", "connection", n.ID, "points", len(n.Waypoints))
		}
		out = append(out, rec)
	}
	return out
}

func (c *Capturer) viewState() scene.ViewState {
	state, err := c.ws.Engine.ViewState()
	if err != nil {
		c.logger.Warn("view state not captured", "error", err)
		return scene.ViewState{Zoom: 1}
	}
	return state
}
