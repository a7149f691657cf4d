package scene

// Describable exposes the display identity of a node regardless of where its
// notation keeps the name and type.
type Describable interface {
	DisplayName() string
	TypeTag() string
}

// Describe resolves the notation-specific describer for n. A nil node yields a
// describer with an empty name and an "unknown" type.
func Describe(n *Node) Describable {
	if n == nil {
		return genericDescriber{}
	}

	switch Notation(n.Type) {
	case NotationBPMN:
		return bpmnDescriber{n: n}
	case NotationPPINOT:
		return ppinotDescriber{n: n}
	case NotationRALph:
		return ralphDescriber{n: n}
	default:
		return genericDescriber{n: n}
	}
}

// bpmnDescriber reads the name from the semantic model first.
type bpmnDescriber struct{ n *Node }

func (d bpmnDescriber) DisplayName() string {
	return firstNonEmpty(businessName(d.n), d.n.Name, d.n.ID)
}

func (d bpmnDescriber) TypeTag() string { return typeTag(d.n) }

// ppinotDescriber falls back to the rendered text, since indicator shapes
// usually keep their name in the label rather than the semantic model.
type ppinotDescriber struct{ n *Node }

func (d ppinotDescriber) DisplayName() string {
	return firstNonEmpty(businessName(d.n), d.n.Text, d.n.Name, d.n.ID)
}

func (d ppinotDescriber) TypeTag() string { return typeTag(d.n) }

type ralphDescriber struct{ n *Node }

func (d ralphDescriber) DisplayName() string {
	return firstNonEmpty(businessName(d.n), d.n.Name, d.n.ID)
}

func (d ralphDescriber) TypeTag() string { return typeTag(d.n) }

type genericDescriber struct{ n *Node }

func (d genericDescriber) DisplayName() string {
	if d.n == nil {
		return ""
	}
	return firstNonEmpty(businessName(d.n), d.n.Name, d.n.ID)
}

func (d genericDescriber) TypeTag() string {
	if d.n == nil {
		return "unknown"
	}
	return typeTag(d.n)
}

func businessName(n *Node) string {
	if n.Business == nil {
		return ""
	}
	return n.Business.Name
}

func typeTag(n *Node) string {
	if n.Type != "" {
		return n.Type
	}
	if n.Business != nil && n.Business.Type != "" {
		return n.Business.Type
	}
	return "unknown"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
