// Package workspace bundles the live diagram engine with the auxiliary stores
// that are saved and restored alongside it. A Workspace is constructed once
// at startup and passed to every component that needs it.
package workspace

import (
	"github.com/papercomputeco/keepsake/pkg/form"
	"github.com/papercomputeco/keepsake/pkg/indicator"
	"github.com/papercomputeco/keepsake/pkg/raci"
	"github.com/papercomputeco/keepsake/pkg/scene"
)

// Workspace is one editing session.
type Workspace struct {
	Engine     scene.Engine
	Indicators *indicator.Manager
	Matrix     *raci.Store
	Form       *form.Store
}

// New creates a workspace around engine with empty auxiliary stores.
func New(engine scene.Engine) *Workspace {
	return &Workspace{
		Engine:     engine,
		Indicators: indicator.NewManager(),
		Matrix:     raci.NewStore(),
		Form:       form.NewStore(),
	}
}

// Exists reports whether a live node with id exists.
func (w *Workspace) Exists(id string) bool {
	_, ok := w.Engine.Node(id)
	return ok
}

// LiveIDs returns the set of live node IDs.
func (w *Workspace) LiveIDs() map[string]bool {
	nodes := w.Engine.Nodes()
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	return ids
}
