// Package snapshot defines the serializable value types produced by capture
// and consumed by restoration. Records are produced fresh on every capture and
// are never mutated in place.
package snapshot

import (
	"github.com/papercomputeco/keepsake/pkg/geometry"
	"github.com/papercomputeco/keepsake/pkg/scene"
)

// FormatVersion is the version written into every snapshot and durable record.
const FormatVersion = "1.0.0"

// Provenance names the heuristic that produced a RelationshipRecord.
type Provenance string

const (
	ProvenanceVisual        Provenance = "visual"
	ProvenanceProximity     Provenance = "proximity"
	ProvenanceDerivedParent Provenance = "derived-parent"
)

// Position is the absolute layout of a child and its parent at capture time.
type Position struct {
	ChildX  float64 `json:"childX" yaml:"childX"`
	ChildY  float64 `json:"childY" yaml:"childY"`
	ParentX float64 `json:"parentX" yaml:"parentX"`
	ParentY float64 `json:"parentY" yaml:"parentY"`
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
}

// Offset returns the child's position relative to its parent.
func (p *Position) Offset() geometry.Point {
	if p == nil {
		return geometry.Point{}
	}
	return geometry.Point{X: p.ChildX - p.ParentX, Y: p.ChildY - p.ParentY}
}

// RelationshipRecord is one captured containment edge.
type RelationshipRecord struct {
	ChildID          string     `json:"childId" yaml:"childId" validate:"required"`
	ParentID         string     `json:"parentId" yaml:"parentId" validate:"required,nefield=ChildID"`
	ChildName        string     `json:"childName" yaml:"childName"`
	ParentName       string     `json:"parentName" yaml:"parentName"`
	ChildType        string     `json:"childType" yaml:"childType"`
	ParentType       string     `json:"parentType" yaml:"parentType"`
	CapturedPosition *Position  `json:"capturedPosition,omitempty" yaml:"capturedPosition,omitempty"`
	Provenance       Provenance `json:"provenance" yaml:"provenance" validate:"oneof=visual proximity derived-parent"`
	Timestamp        int64      `json:"timestamp" yaml:"timestamp"`
}

// AuxiliaryNodeRecord snapshots a node the primary document will not carry.
type AuxiliaryNodeRecord struct {
	Type     string          `json:"type" yaml:"type" validate:"required"`
	ID       string          `json:"id" yaml:"id" validate:"required"`
	Bounds   geometry.Bounds `json:"bounds" yaml:"bounds"`
	Text     string          `json:"text,omitempty" yaml:"text,omitempty"`
	Name     string          `json:"name,omitempty" yaml:"name,omitempty"`
	ParentID string          `json:"parentId,omitempty" yaml:"parentId,omitempty"`

	// LabelTargetID is set on label records only.
	LabelTargetID string `json:"labelTargetId,omitempty" yaml:"labelTargetId,omitempty"`
}

// IsLabel reports whether the record describes an external label.
func (r AuxiliaryNodeRecord) IsLabel() bool {
	return r.LabelTargetID != "" || r.Type == scene.TypeLabel
}

// ConnectionGeometryRecord is the routed geometry of one connection.
type ConnectionGeometryRecord struct {
	ID        string           `json:"id" yaml:"id" validate:"required"`
	Type      string           `json:"type" yaml:"type"`
	SourceID  string           `json:"sourceId" yaml:"sourceId"`
	TargetID  string           `json:"targetId" yaml:"targetId"`
	Waypoints []geometry.Point `json:"waypoints" yaml:"waypoints"`
}

// IndicatorRecord is one derived indicator backed by a live node.
type IndicatorRecord struct {
	ID        string            `json:"id" yaml:"id" validate:"required"`
	ElementID string            `json:"elementId" yaml:"elementId" validate:"required"`
	Name      string            `json:"name,omitempty" yaml:"name,omitempty"`
	Kind      string            `json:"kind,omitempty" yaml:"kind,omitempty"`
	Target    string            `json:"target,omitempty" yaml:"target,omitempty"`
	Scope     string            `json:"scope,omitempty" yaml:"scope,omitempty"`
	Attrs     map[string]string `json:"attrs,omitempty" yaml:"attrs,omitempty"`
}

// ResponsibilityMatrix assigns a responsibility letter per task and role.
type ResponsibilityMatrix struct {
	Roles  []string                     `json:"roles" yaml:"roles"`
	Matrix map[string]map[string]string `json:"matrix" yaml:"matrix"`
}

// Snapshot is the complete serializable state of one diagram session.
type Snapshot struct {
	FormatVersion        string                     `json:"formatVersion" yaml:"formatVersion" validate:"required"`
	SavedAtEpoch         int64                      `json:"savedAtEpoch" yaml:"savedAtEpoch" validate:"gte=0"`
	PrimaryDocument      *string                    `json:"primaryDocument" yaml:"primaryDocument"`
	AuxiliaryNodes       []AuxiliaryNodeRecord      `json:"auxiliaryNodes" yaml:"auxiliaryNodes" validate:"dive"`
	Relationships        []RelationshipRecord       `json:"relationships" yaml:"relationships" validate:"dive"`
	ConnectionGeometry   []ConnectionGeometryRecord `json:"connectionGeometry" yaml:"connectionGeometry" validate:"dive"`
	ViewState            scene.ViewState            `json:"viewState" yaml:"viewState"`
	Indicators           []IndicatorRecord          `json:"indicators" yaml:"indicators" validate:"dive"`
	ResponsibilityMatrix ResponsibilityMatrix       `json:"responsibilityMatrix" yaml:"responsibilityMatrix"`
	FormMetadata         map[string]string          `json:"formMetadata" yaml:"formMetadata"`
}

// New returns an empty snapshot stamped with the current format version.
func New(savedAtEpoch int64) *Snapshot {
	return &Snapshot{
		FormatVersion:      FormatVersion,
		SavedAtEpoch:       savedAtEpoch,
		AuxiliaryNodes:     []AuxiliaryNodeRecord{},
		Relationships:      []RelationshipRecord{},
		ConnectionGeometry: []ConnectionGeometryRecord{},
		Indicators:         []IndicatorRecord{},
		ResponsibilityMatrix: ResponsibilityMatrix{
			Roles:  []string{},
			Matrix: map[string]map[string]string{},
		},
		FormMetadata: map[string]string{},
	}
}

// HasDocument reports whether a primary document was captured.
func (s *Snapshot) HasDocument() bool {
	return s != nil && s.PrimaryDocument != nil && *s.PrimaryDocument != ""
}

// DurableRecord is a snapshot plus the versioning metadata it is persisted
// with.
type DurableRecord struct {
	FormatVersion string    `json:"formatVersion" yaml:"formatVersion" validate:"required"`
	SavedAtEpoch  int64     `json:"savedAtEpoch" yaml:"savedAtEpoch" validate:"gte=0"`
	Snapshot      *Snapshot `json:"snapshot" yaml:"snapshot" validate:"required"`
}
