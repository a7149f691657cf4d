package restore_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/keepsake/pkg/capture"
	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/restore"
	"github.com/papercomputeco/keepsake/pkg/scene"
	"github.com/papercomputeco/keepsake/pkg/scene/inmemory"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
	"github.com/papercomputeco/keepsake/pkg/waitfor"
	"github.com/papercomputeco/keepsake/pkg/workspace"
)

const diagram = `<document>
  <shape id="Task_1" type="bpmn:Task" name="Review" x="0" y="0" width="100" height="80"></shape>
  <shape id="Task_2" type="bpmn:Task" x="300" y="0" width="100" height="80"></shape>
  <connection id="Flow_1" type="bpmn:SequenceFlow" sourceRef="Task_1" targetRef="Task_2">
    <waypoint x="100" y="40"></waypoint>
    <waypoint x="300" y="40"></waypoint>
  </connection>
</document>`

// flakyEngine fails the first N imports.
type flakyEngine struct {
	*inmemory.Engine
	failures int
}

func (f *flakyEngine) ImportDocument(ctx context.Context, text string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("renderer not ready")
	}
	return f.Engine.ImportDocument(ctx, text)
}

var (
	fastPoll = waitfor.Options{Interval: 5 * time.Millisecond, MaxAttempts: 20}
	noSettle = -1 * time.Nanosecond
)

func newRestorer(ws *workspace.Workspace) *restore.Restorer {
	return restore.New(ws, restore.Config{Poll: fastPoll, SettleDelay: noSettle})
}

func mustNode(engine scene.Engine, id string) *scene.Node {
	n, ok := engine.Node(id)
	ExpectWithOffset(1, ok).To(BeTrue(), "node %s should be live", id)
	return n
}

type placement struct {
	Bounds geometry.Bounds
	Parent string
}

func layout(engine scene.Engine) map[string]placement {
	out := map[string]placement{}
	for _, n := range engine.Nodes() {
		if !n.IsConnection() {
			out[n.ID] = placement{Bounds: n.Bounds, Parent: n.ParentID()}
		}
	}
	return out
}

var _ = Describe("Restorer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("capture and restore round trip", func() {
		var (
			source *workspace.Workspace
			snap   *snapshot.Snapshot
		)

		BeforeEach(func() {
			engine := inmemory.New()
			source = workspace.New(engine)
			Expect(engine.ImportDocument(ctx, diagram)).To(Succeed())

			ppi, err := engine.CreateShape(ctx, scene.ShapeSpec{ID: "PPI_1", Type: scene.TypePPI, Name: "Cycle time", Width: 300, Height: 200}, geometry.Point{X: 500, Y: 500}, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.CreateShape(ctx, scene.ShapeSpec{ID: "PPI_1_label", Text: "Cycle time", LabelTarget: ppi}, geometry.Point{X: 500, Y: 710}, nil)
			Expect(err).NotTo(HaveOccurred())
			m1, err := engine.CreateShape(ctx, scene.ShapeSpec{ID: "M1", Type: scene.TypeBaseMeasure, Width: 40, Height: 40}, geometry.Point{X: 530, Y: 540}, ppi)
			Expect(err).NotTo(HaveOccurred())
			task := mustNode(engine, "Task_1")
			_, err = engine.CreateConnection(ctx, m1, task, scene.ConnectionSpec{
				ID:        "Arc_1",
				Type:      scene.TypeToConnection,
				Waypoints: []geometry.Point{{X: 530, Y: 560}, {X: 300, Y: 560}, {X: 50, Y: 80}},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.SetViewState(scene.ViewState{Zoom: 1.5, Viewbox: geometry.Bounds{X: 10, Y: 20, Width: 800, Height: 600}})).To(Succeed())

			Expect(source.Indicators.Add(snapshot.IndicatorRecord{ID: "ind_1", ElementID: "PPI_1", Name: "Cycle time"})).To(Succeed())
			source.Matrix.SetRoles([]string{"Analyst"})
			source.Matrix.Assign("Task_1", "Analyst", "R")
			source.Form.Set("projectName", "Onboarding")

			snap, err = capture.New(source, capture.Config{}).Capture(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rebuilds the diagram in a fresh engine", func() {
			target := workspace.New(inmemory.New())
			report, err := newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())

			Expect(report.Created).To(Equal([]string{"PPI_1", "M1", "PPI_1_label"}))
			Expect(report.ConnectionsCreated).To(Equal([]string{"Arc_1"}))
			Expect(report.Missing).To(BeEmpty())
			Expect(report.AlreadyCorrect).To(Equal(1))

			Expect(layout(target.Engine)).To(Equal(layout(source.Engine)))

			label := mustNode(target.Engine, "PPI_1_label")
			Expect(label.LabelTarget.ID).To(Equal("PPI_1"))

			arc := mustNode(target.Engine, "Arc_1")
			Expect(arc.Source.ID).To(Equal("M1"))
			Expect(arc.Waypoints).To(HaveLen(3))

			view, err := target.Engine.ViewState()
			Expect(err).NotTo(HaveOccurred())
			Expect(view.Zoom).To(Equal(1.5))

			Expect(target.Indicators.All()).To(HaveLen(1))
			Expect(target.Matrix.Matrix()).To(HaveKey("Task_1"))
			Expect(target.Form.Fields()).To(HaveKeyWithValue("projectName", "Onboarding"))
		})

		It("is idempotent", func() {
			target := workspace.New(inmemory.New())
			restorer := newRestorer(target)

			_, err := restorer.Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			first := layout(target.Engine)

			_, err = restorer.Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			Expect(layout(target.Engine)).To(Equal(first))
			Expect(target.Indicators.All()).To(HaveLen(1))
		})

		It("captures the same relationships after restore", func() {
			target := workspace.New(inmemory.New())
			_, err := newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())

			again, err := capture.New(target, capture.Config{}).Capture(ctx)
			Expect(err).NotTo(HaveOccurred())

			type edge struct{ child, parent string }
			edges := func(s *snapshot.Snapshot) []edge {
				var out []edge
				for _, rel := range s.Relationships {
					out = append(out, edge{rel.ChildID, rel.ParentID})
				}
				return out
			}
			Expect(edges(again)).To(ConsistOf(edges(snap)))
		})
	})

	It("re-parents a proximity child next to its container", func() {
		engine := inmemory.New()
		source := workspace.New(engine)
		Expect(engine.CreateEmptyDocument(ctx)).To(Succeed())
		_, err := engine.CreateShape(ctx, scene.ShapeSpec{ID: "A", Type: scene.TypePPI, Width: 40, Height: 40}, geometry.Point{X: 100, Y: 100}, nil)
		Expect(err).NotTo(HaveOccurred())
		_, err = engine.CreateShape(ctx, scene.ShapeSpec{ID: "B", Type: scene.TypeTarget, Width: 40, Height: 40}, geometry.Point{X: 120, Y: 110}, nil)
		Expect(err).NotTo(HaveOccurred())

		snap, err := capture.New(source, capture.Config{}).Capture(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(snap.Relationships).To(HaveLen(1))
		Expect(snap.Relationships[0].ChildID).To(Equal("B"))
		Expect(snap.Relationships[0].ParentID).To(Equal("A"))
		Expect(snap.Relationships[0].Provenance).To(Equal(snapshot.ProvenanceProximity))

		target := workspace.New(inmemory.New())
		report, err := newRestorer(target).Restore(ctx, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Applied).To(Equal(1))

		b := mustNode(target.Engine, "B")
		Expect(b.ParentID()).To(Equal("A"))
		Expect(b.Bounds.Origin()).To(Equal(geometry.Point{X: 120, Y: 110}))
		Expect(b.BusinessParentRef()).To(Equal("A"))
	})

	Describe("child labels", func() {
		restoreLabel := func(labelAt geometry.Point) *scene.Node {
			engine := inmemory.New()
			source := workspace.New(engine)
			Expect(engine.CreateEmptyDocument(ctx)).To(Succeed())
			_, err := engine.CreateShape(ctx, scene.ShapeSpec{ID: "P", Type: scene.TypePPI, Width: 200, Height: 200}, geometry.Point{X: 500, Y: 500}, nil)
			Expect(err).NotTo(HaveOccurred())
			t, err := engine.CreateShape(ctx, scene.ShapeSpec{ID: "T", Type: scene.TypeTarget, Width: 20, Height: 20}, geometry.Point{X: 520, Y: 530}, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.CreateShape(ctx, scene.ShapeSpec{ID: "T_label", Text: "target", LabelTarget: t}, labelAt, nil)
			Expect(err).NotTo(HaveOccurred())

			snap, err := capture.New(source, capture.Config{}).Capture(ctx)
			Expect(err).NotTo(HaveOccurred())

			target := workspace.New(inmemory.New())
			_, err = newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			return mustNode(target.Engine, "T_label")
		}

		It("keeps a label that clears its element at the captured offset", func() {
			label := restoreLabel(geometry.Point{X: 520, Y: 560})
			Expect(label.Bounds.Origin()).To(Equal(geometry.Point{X: 520, Y: 560}))
			Expect(label.ParentID()).To(Equal("P"))
		})

		It("nudges a label that overlaps its element", func() {
			label := restoreLabel(geometry.Point{X: 520, Y: 540})
			Expect(label.Bounds.Origin()).To(Equal(geometry.Point{X: 520, Y: 560}))
			Expect(label.ParentID()).To(Equal("P"))
		})
	})

	Describe("primary reload", func() {
		It("normalizes drifted connection attributes", func() {
			opts := inmemory.WithExtensions(scene.NotationPPINOT)
			engine := inmemory.New(opts)
			source := workspace.New(engine)
			Expect(engine.ImportDocument(ctx, diagram)).To(Succeed())
			m, err := engine.CreateShape(ctx, scene.ShapeSpec{ID: "M1", Type: scene.TypeBaseMeasure}, geometry.Point{X: 0, Y: 300}, nil)
			Expect(err).NotTo(HaveOccurred())
			_, err = engine.CreateConnection(ctx, m, mustNode(engine, "Task_1"), scene.ConnectionSpec{ID: "Arc_1", Type: scene.TypeToConnection})
			Expect(err).NotTo(HaveOccurred())

			snap, err := capture.New(source, capture.Config{}).Capture(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.AuxiliaryNodes).To(BeEmpty())

			target := workspace.New(inmemory.New(opts))
			report, err := newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.NormalizedAttributes).To(Equal(2))
			Expect(report.ConnectionsCreated).To(BeEmpty())
			Expect(mustNode(target.Engine, "Arc_1").Target.ID).To(Equal("Task_1"))
		})

		It("injects placeholders for relationship children the document lacks", func() {
			doc := `<document><shape id="PPI_1" type="ppinot:Ppi" x="0" y="0" width="200" height="200"></shape></document>`
			snap := snapshot.New(1)
			snap.PrimaryDocument = &doc
			snap.Relationships = append(snap.Relationships, snapshot.RelationshipRecord{
				ChildID:          "T9",
				ParentID:         "PPI_1",
				ChildType:        scene.TypeTarget,
				ParentType:       scene.TypePPI,
				CapturedPosition: &snapshot.Position{ChildX: 30, ChildY: 40, Width: 20, Height: 20},
				Provenance:       snapshot.ProvenanceVisual,
			})

			target := workspace.New(inmemory.New())
			report, err := newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Placeholders).To(Equal([]string{"T9"}))
			Expect(report.Applied).To(Equal(1))

			t9 := mustNode(target.Engine, "T9")
			Expect(t9.ParentID()).To(Equal("PPI_1"))
			Expect(t9.Bounds).To(Equal(geometry.Bounds{X: 30, Y: 40, Width: 20, Height: 20}))
		})

		It("retries the import once on an empty diagram", func() {
			doc := diagram
			snap := snapshot.New(1)
			snap.PrimaryDocument = &doc

			engine := &flakyEngine{Engine: inmemory.New(), failures: 1}
			_, err := newRestorer(workspace.New(engine)).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			mustNode(engine, "Task_1")
		})

		It("fails when the document cannot be imported twice", func() {
			doc := "<document"
			snap := snapshot.New(1)
			snap.PrimaryDocument = &doc

			_, err := newRestorer(workspace.New(inmemory.New())).Restore(ctx, snap)
			var reloadErr restore.PrimaryReloadError
			Expect(errors.As(err, &reloadErr)).To(BeTrue())
		})

		It("starts from an empty diagram when no document was captured", func() {
			snap := snapshot.New(1)
			snap.AuxiliaryNodes = append(snap.AuxiliaryNodes, snapshot.AuxiliaryNodeRecord{
				ID: "PPI_1", Type: scene.TypePPI, Bounds: geometry.Bounds{X: 1, Y: 2, Width: 30, Height: 40},
			})

			target := workspace.New(inmemory.New())
			report, err := newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.EmptyDiagram).To(BeTrue())
			Expect(mustNode(target.Engine, "PPI_1").Bounds.Width).To(Equal(30.0))
		})
	})

	It("skips labels whose target never appears", func() {
		snap := snapshot.New(1)
		snap.AuxiliaryNodes = append(snap.AuxiliaryNodes, snapshot.AuxiliaryNodeRecord{
			ID: "Ghost_label", Type: scene.TypeLabel, LabelTargetID: "Ghost",
		})

		target := workspace.New(inmemory.New())
		report, err := newRestorer(target).Restore(ctx, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.SkippedLabels).To(Equal([]string{"Ghost_label"}))
		_, ok := target.Engine.Node("Ghost_label")
		Expect(ok).To(BeFalse())
	})

	It("reports relationship endpoints that never materialize", func() {
		snap := snapshot.New(1)
		snap.Relationships = append(snap.Relationships, snapshot.RelationshipRecord{
			ChildID: "Ghost", ParentID: "PPI_9", Provenance: snapshot.ProvenanceProximity,
		})

		report, err := newRestorer(workspace.New(inmemory.New())).Restore(ctx, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Missing).To(ConsistOf("Ghost", "PPI_9"))
		Expect(report.Skipped).To(Equal([]string{"Ghost"}))
	})

	It("waits for nodes that appear asynchronously after reload", func() {
		opts := inmemory.WithExtensions(scene.NotationPPINOT)
		doc := `<document>
  <shape id="PPI_1" type="ppinot:Ppi" x="0" y="0" width="200" height="200"></shape>
  <shape id="M1" type="ppinot:BaseMeasure" x="500" y="500" width="40" height="40"></shape>
</document>`
		snap := snapshot.New(1)
		snap.PrimaryDocument = &doc
		snap.Relationships = append(snap.Relationships, snapshot.RelationshipRecord{
			ChildID:          "M1",
			ParentID:         "PPI_1",
			CapturedPosition: &snapshot.Position{ChildX: 10, ChildY: 10},
			Provenance:       snapshot.ProvenanceProximity,
		})

		engine := inmemory.New(opts, inmemory.WithImportLatency(30*time.Millisecond))
		report, err := newRestorer(workspace.New(engine)).Restore(ctx, snap)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Missing).To(BeEmpty())
		Expect(report.Applied).To(Equal(1))

		m1 := mustNode(engine, "M1")
		Expect(m1.ParentID()).To(Equal("PPI_1"))
		Expect(m1.Bounds.Origin()).To(Equal(geometry.Point{X: 10, Y: 10}))
	})

	It("keeps the child in place when no position was captured", func() {
		opts := inmemory.WithExtensions(scene.NotationPPINOT)
		doc := `<document>
  <shape id="PPI_1" type="ppinot:Ppi" x="0" y="0" width="200" height="200"></shape>
  <shape id="M1" type="ppinot:BaseMeasure" x="500" y="500" width="40" height="40"></shape>
</document>`
		snap := snapshot.New(1)
		snap.PrimaryDocument = &doc
		snap.Relationships = append(snap.Relationships, snapshot.RelationshipRecord{
			ChildID: "M1", ParentID: "PPI_1", Provenance: snapshot.ProvenanceDerivedParent,
		})

		engine := inmemory.New(opts)
		_, err := newRestorer(workspace.New(engine)).Restore(ctx, snap)
		Expect(err).NotTo(HaveOccurred())

		m1 := mustNode(engine, "M1")
		Expect(m1.ParentID()).To(Equal("PPI_1"))
		Expect(m1.Bounds.Origin()).To(Equal(geometry.Point{X: 500, Y: 500}))
	})

	Describe("geometry", func() {
		It("puts captured waypoints back and repairs invalid ones", func() {
			doc := `<document>
  <shape id="A" type="bpmn:Task" x="0" y="0" width="20" height="20"></shape>
  <shape id="B" type="bpmn:Task" x="40" y="40" width="20" height="20"></shape>
  <shape id="C" type="bpmn:Task" x="100" y="0" width="20" height="20"></shape>
  <connection id="F1" type="bpmn:SequenceFlow" sourceRef="A" targetRef="B">
    <waypoint x="0" y="0"></waypoint>
  </connection>
  <connection id="F2" type="bpmn:SequenceFlow" sourceRef="A" targetRef="C">
    <waypoint x="20" y="10"></waypoint>
    <waypoint x="100" y="10"></waypoint>
  </connection>
</document>`
			snap := snapshot.New(1)
			snap.PrimaryDocument = &doc
			snap.ConnectionGeometry = append(snap.ConnectionGeometry, snapshot.ConnectionGeometryRecord{
				ID: "F2", SourceID: "A", TargetID: "C",
				Waypoints: []geometry.Point{{X: 20, Y: 10}, {X: 60, Y: 10}, {X: 100, Y: 10}},
			})

			engine := inmemory.New()
			report, err := newRestorer(workspace.New(engine)).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.GeometryRepaired).To(Equal(2))

			Expect(mustNode(engine, "F1").Waypoints).To(Equal([]geometry.Point{{X: 10, Y: 10}, {X: 50, Y: 50}}))
			Expect(mustNode(engine, "F2").Waypoints).To(HaveLen(3))
		})
	})

	Describe("auxiliary domains", func() {
		It("prunes orphan indicators and swallows view state failures", func() {
			snap := snapshot.New(1)
			snap.AuxiliaryNodes = append(snap.AuxiliaryNodes, snapshot.AuxiliaryNodeRecord{ID: "PPI_1", Type: scene.TypePPI})
			snap.Indicators = append(snap.Indicators,
				snapshot.IndicatorRecord{ID: "i1", ElementID: "PPI_1"},
				snapshot.IndicatorRecord{ID: "i2", ElementID: "Gone"},
			)
			snap.ResponsibilityMatrix.Roles = []string{"Owner"}
			snap.ResponsibilityMatrix.Matrix["Task_9"] = map[string]string{"Owner": "A"}
			snap.FormMetadata["author"] = "ops"
			snap.ViewState = scene.ViewState{Zoom: 0}

			target := workspace.New(inmemory.New())
			report, err := newRestorer(target).Restore(ctx, snap)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Indicators).To(Equal(2))
			Expect(report.PrunedIndicators).To(Equal([]string{"i2"}))
			Expect(target.Indicators.All()).To(HaveLen(1))

			Expect(target.Matrix.Roles()).To(Equal([]string{"Owner"}))
			Expect(target.Matrix.Matrix()).To(HaveKey("Task_9"))
			Expect(target.Form.Fields()).To(HaveKeyWithValue("author", "ops"))
		})
	})

	It("stops when the context is cancelled during settling", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		r := restore.New(workspace.New(inmemory.New()), restore.Config{Poll: fastPoll, SettleDelay: time.Hour})
		_, err := r.Restore(cctx, snapshot.New(1))
		Expect(err).To(MatchError(context.Canceled))
	})
})
