package export

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/vanderheijden86/clusterview/pkg/cluster"
)

// MermaidConfig configures the Mermaid graph generation.
type MermaidConfig struct {
	Direction   string // TD, LR, RL or BT (default TD)
	MaxClusters int    // Draw at most this many clusters, largest first (0 = all)
}

// GenerateMermaidGraph draws each cluster of g as a Mermaid subgraph.
// comps must be cluster.Components(g).
func GenerateMermaidGraph(g cluster.Graph, comps []cluster.Component, config MermaidConfig) string {
	var sb strings.Builder

	dir := config.Direction
	if dir == "" {
		dir = "TD"
	}
	sb.WriteString("graph " + dir + "\n")

	// Class definitions for styling, one per group
	groups := groupsOf(g)
	groupClass := make(map[cluster.Ident]string, len(groups))
	for i, grp := range groups {
		class := fmt.Sprintf("g%d", i)
		groupClass[grp] = class
		sb.WriteString(fmt.Sprintf("    classDef %s fill:%s,stroke:#333,color:#000\n", class, css(groupPalette[i%len(groupPalette)])))
	}
	sb.WriteString("\n")

	// Build deterministic, collision-free Mermaid IDs
	safeIDMap := make(map[cluster.Ident]string)
	usedSafe := make(map[string]bool)

	getSafeID := func(orig cluster.Ident) string {
		if safe, ok := safeIDMap[orig]; ok {
			return safe
		}
		base := "n_" + sanitizeMermaidID(string(orig))
		safe := base
		if usedSafe[safe] {
			// Collision: derive stable hash-based suffix
			h := fnv.New32a()
			_, _ = h.Write([]byte(orig))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		usedSafe[safe] = true
		safeIDMap[orig] = safe
		return safe
	}

	shown := comps
	if config.MaxClusters > 0 && len(shown) > config.MaxClusters {
		shown = shown[:config.MaxClusters]
	}

	for ci, c := range shown {
		sb.WriteString(fmt.Sprintf("    subgraph c%d[\"Cluster %d (%d)\"]\n", ci+1, ci+1, len(c.Nodes)))
		for _, n := range c.Nodes {
			safeID := getSafeID(n.ID)
			sb.WriteString(fmt.Sprintf("        %s[\"%s\"]\n", safeID, sanitizeMermaidText(n.Name())))
			sb.WriteString(fmt.Sprintf("        class %s %s\n", safeID, groupClass[n.Group]))
		}
		sb.WriteString("    end\n")
	}

	if len(shown) > 0 {
		sb.WriteString("\n")
	}

	for _, c := range shown {
		for _, e := range c.Edges {
			from, to := getSafeID(e.From), getSafeID(e.To)
			if e.Label != "" {
				sb.WriteString(fmt.Sprintf("    %s ---|%s| %s\n", from, sanitizeMermaidText(e.Label), to))
			} else {
				sb.WriteString(fmt.Sprintf("    %s --- %s\n", from, to))
			}
		}
	}

	if hidden := len(comps) - len(shown); hidden > 0 {
		sb.WriteString(fmt.Sprintf("    more[\"%d more clusters\"]\n", hidden))
	}

	return sb.String()
}
