package scene

import "strings"

// Notation prefixes. The primary notation is carried by the primary document;
// everything else is an extension notation layered on top of it.
const (
	NotationBPMN   = "bpmn"
	NotationPPINOT = "ppinot"
	NotationRALph  = "ralph"
)

// Structural pseudo types that carry no notation prefix.
const (
	TypeRoot  = "root"
	TypeLabel = "label"
)

// Primary notation types the engine cares about.
const (
	TypeProcess       = "bpmn:Process"
	TypeParticipant   = "bpmn:Participant"
	TypeCollaboration = "bpmn:Collaboration"
	TypeTask          = "bpmn:Task"
	TypeSequenceFlow  = "bpmn:SequenceFlow"
	TypeMessageFlow   = "bpmn:MessageFlow"
	TypeAssociation   = "bpmn:Association"
)

// PPINOT (process performance indicator) types.
const (
	TypePPI                   = "ppinot:Ppi"
	TypeTarget                = "ppinot:Target"
	TypeScope                 = "ppinot:Scope"
	TypeBaseMeasure           = "ppinot:BaseMeasure"
	TypeAggregatedMeasure     = "ppinot:AggregatedMeasure"
	TypeDerivedMeasure        = "ppinot:DerivedMeasure"
	TypeTimeMeasure           = "ppinot:TimeMeasure"
	TypeCountMeasure          = "ppinot:CountMeasure"
	TypeDataMeasure           = "ppinot:DataMeasure"
	TypeStateConditionMeasure = "ppinot:StateConditionMeasure"

	TypeToConnection         = "ppinot:ToConnection"
	TypeFromConnection       = "ppinot:FromConnection"
	TypeAggregatedConnection = "ppinot:AggregatedConnection"
	TypeDashedLine           = "ppinot:DashedLine"
	TypeGroupedBy            = "ppinot:GroupedBy"
)

// RALph (resource assignment) types.
const (
	TypeRALphPerson   = "ralph:Person"
	TypeRALphRole     = "ralph:Role"
	TypeRALphPosition = "ralph:Position"
	TypeRALphUnit     = "ralph:OrganizationalUnit"

	TypeRALphResourceArc = "ralph:ResourceArc"
	TypeRALphSolidLine   = "ralph:SolidLine"
)

var processContainers = map[string]bool{
	TypeProcess:       true,
	TypeParticipant:   true,
	TypeCollaboration: true,
}

var ppiMembers = map[string]bool{
	TypeTarget:                true,
	TypeScope:                 true,
	TypeBaseMeasure:           true,
	TypeAggregatedMeasure:     true,
	TypeDerivedMeasure:        true,
	TypeTimeMeasure:           true,
	TypeCountMeasure:          true,
	TypeDataMeasure:           true,
	TypeStateConditionMeasure: true,
}

var anchoredMembers = map[string]bool{
	TypeTarget:            true,
	TypeScope:             true,
	TypeBaseMeasure:       true,
	TypeAggregatedMeasure: true,
	TypeDerivedMeasure:    true,
}

var connectionTypes = map[string]bool{
	TypeSequenceFlow:         true,
	TypeMessageFlow:          true,
	TypeAssociation:          true,
	TypeToConnection:         true,
	TypeFromConnection:       true,
	TypeAggregatedConnection: true,
	TypeDashedLine:           true,
	TypeGroupedBy:            true,
	TypeRALphResourceArc:     true,
	TypeRALphSolidLine:       true,
}

// Notation returns the notation prefix of a type tag, or "" when it has none.
func Notation(typeTag string) string {
	prefix, _, ok := strings.Cut(typeTag, ":")
	if !ok {
		return ""
	}
	return strings.ToLower(prefix)
}

// IsExtension reports whether typeTag belongs to a notation other than the
// primary one.
func IsExtension(typeTag string) bool {
	n := Notation(typeTag)
	return n != "" && n != NotationBPMN
}

// IsProcessContainer reports whether typeTag is a generic process container
// whose containment is automatic and never worth recording.
func IsProcessContainer(typeTag string) bool {
	return processContainers[typeTag]
}

// IsPPILike reports whether typeTag is an indicator container.
func IsPPILike(typeTag string) bool {
	return typeTag == TypePPI
}

// IsTopLevelContainer reports whether typeTag belongs to the family that
// extension shapes are attached to by proximity.
func IsTopLevelContainer(typeTag string) bool {
	return IsPPILike(typeTag)
}

// IsPPIMember reports whether typeTag is one of the shapes that live inside an
// indicator container (measures, targets, scopes).
func IsPPIMember(typeTag string) bool {
	return ppiMembers[typeTag]
}

// IsAnchoredMember reports whether typeTag is a target, scope, base,
// aggregated or derived measure. These are meaningful under any extension
// parent.
func IsAnchoredMember(typeTag string) bool {
	return anchoredMembers[typeTag]
}

// IsConnectionType reports whether typeTag names a connection.
func IsConnectionType(typeTag string) bool {
	return connectionTypes[typeTag]
}

// UsesOrthogonalRouting reports whether connections of typeTag get a
// four-point orthogonal fallback route instead of a straight one.
func UsesOrthogonalRouting(typeTag string) bool {
	return typeTag == TypeAggregatedConnection
}
