package inference

import "github.com/papercomputeco/keepsake/pkg/scene"

// Rule is one row of the significance table. Match receives the resolved type
// tags of the child and the candidate parent.
type Rule struct {
	Name  string
	Match func(child, parent string) bool
}

// rules is the fixed significance table, evaluated in order. A pair is
// significant when any rule matches, unless the parent is a generic process
// container.
var rules = []Rule{
	{
		Name: "ppi-member-in-ppi",
		Match: func(child, parent string) bool {
			return scene.IsPPIMember(child) && scene.IsPPILike(parent)
		},
	},
	{
		Name: "anchored-member-in-extension",
		Match: func(child, parent string) bool {
			return scene.IsAnchoredMember(child) && scene.IsExtension(parent)
		},
	},
	{
		Name: "non-process-extension-parent",
		Match: func(_, parent string) bool {
			return scene.IsExtension(parent) && !scene.IsProcessContainer(parent)
		},
	},
	{
		Name: "label-in-extension",
		Match: func(child, parent string) bool {
			return child == scene.TypeLabel && scene.IsExtension(parent)
		},
	},
	{
		Name: "extension-in-non-ppi-extension",
		Match: func(child, parent string) bool {
			return scene.IsExtension(child) && scene.IsExtension(parent) && !scene.IsPPILike(parent)
		},
	},
}

// IsSignificant reports whether the containment of child in parent is worth
// recording.
func IsSignificant(child, parent *scene.Node) bool {
	_, ok := MatchRule(child, parent)
	return ok
}

// MatchRule returns the first rule that makes the pair significant.
func MatchRule(child, parent *scene.Node) (Rule, bool) {
	if child == nil || parent == nil || parent.IsRoot() || child.ID == parent.ID {
		return Rule{}, false
	}

	childType := scene.Describe(child).TypeTag()
	parentType := scene.Describe(parent).TypeTag()
	if child.IsLabel() {
		childType = scene.TypeLabel
	}

	if scene.IsProcessContainer(parentType) {
		return Rule{}, false
	}

	for _, r := range rules {
		if r.Match(childType, parentType) {
			return r, true
		}
	}
	return Rule{}, false
}
