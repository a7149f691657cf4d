package inspectcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/papercomputeco/keepsake/pkg/cliui"
	"github.com/papercomputeco/keepsake/pkg/snapshot"
	"github.com/papercomputeco/keepsake/pkg/utils"
)

const (
	FormatSummary = "summary"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

const documentPreview = 240

// Render writes snap to w in format.
func Render(w io.Writer, snap *snapshot.Snapshot, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()

	case FormatSummary, "":
		rendered, err := cliui.RenderMarkdown(Summary(snap))
		if err != nil {
			return fmt.Errorf("rendering summary: %w", err)
		}
		_, err = io.WriteString(w, rendered)
		return err

	default:
		return fmt.Errorf("unknown format %q (valid: %s, %s, %s)", format, FormatSummary, FormatJSON, FormatYAML)
	}
}

// Summary returns a markdown overview of snap.
func Summary(snap *snapshot.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Snapshot %s\n\n", snap.FormatVersion)
	fmt.Fprintf(&b, "Saved %s\n\n", time.UnixMilli(snap.SavedAtEpoch).UTC().Format(time.RFC3339))

	b.WriteString("## Primary document\n\n")
	if snap.HasDocument() {
		fmt.Fprintf(&b, "```xml\n%s\n```\n\n", utils.Truncate(*snap.PrimaryDocument, documentPreview))
	} else {
		b.WriteString("_none_\n\n")
	}

	if len(snap.AuxiliaryNodes) > 0 {
		b.WriteString("## Auxiliary nodes\n\n| ID | Type | Parent |\n|---|---|---|\n")
		for _, n := range snap.AuxiliaryNodes {
			typ := n.Type
			if n.IsLabel() {
				typ = "label of " + n.LabelTargetID
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", n.ID, typ, dash(n.ParentID))
		}
		b.WriteString("\n")
	}

	if len(snap.Relationships) > 0 {
		b.WriteString("## Relationships\n\n| Child | Parent | Provenance |\n|---|---|---|\n")
		for _, r := range snap.Relationships {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", r.ChildID, r.ParentID, r.Provenance)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Other state\n\n")
	fmt.Fprintf(&b, "- Connections with geometry: %d\n", len(snap.ConnectionGeometry))
	fmt.Fprintf(&b, "- Indicators: %d\n", len(snap.Indicators))
	fmt.Fprintf(&b, "- Roles: %s\n", dash(strings.Join(snap.ResponsibilityMatrix.Roles, ", ")))
	fmt.Fprintf(&b, "- Zoom: %g\n", snap.ViewState.Zoom)

	if len(snap.FormMetadata) > 0 {
		keys := make([]string, 0, len(snap.FormMetadata))
		for k := range snap.FormMetadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, snap.FormMetadata[k])
		}
	}

	return b.String()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
