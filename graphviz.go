package balsa

import (
	"fmt"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderGraph renders the grown tree as an SVG via Graphviz. Interior
// nodes show the split on the edge to their left child; every node shows
// its majority label and label counts.
func (t *IndexedTree[F]) RenderGraph(path string) error {
	gv := graphviz.New()
	graph, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("%w: creating graph: %v", ErrSupplier, err)
	}

	nodes := make([]*cgraph.Node, len(t.nodes))
	for id := range t.nodes {
		node := &t.nodes[id]
		gn, err := graph.CreateNode(fmt.Sprintf("node%d", id))
		if err != nil {
			return fmt.Errorf("%w: creating graph node: %v", ErrSupplier, err)
		}
		gn.Set("shape", "box")
		gn.Set("label", fmt.Sprintf("N%d = %d counts: %s", id, node.counts.MostFrequent(), countsText(&node.counts)))
		nodes[id] = gn
	}
	for id := range t.nodes {
		node := &t.nodes[id]
		if node.left == 0 {
			continue
		}
		leftEdge, err := graph.CreateEdge("", nodes[id], nodes[node.left])
		if err != nil {
			return fmt.Errorf("%w: creating graph edge: %v", ErrSupplier, err)
		}
		leftEdge.SetLabel(fmt.Sprintf("F%d < %v", node.split.Feature, node.split.Value))
		if _, err := graph.CreateEdge("", nodes[id], nodes[node.right]); err != nil {
			return fmt.Errorf("%w: creating graph edge: %v", ErrSupplier, err)
		}
	}

	if err := gv.RenderFilename(graph, graphviz.SVG, path); err != nil {
		return fmt.Errorf("%w: rendering %s: %v", ErrSupplier, path, err)
	}
	return nil
}

func countsText(t *FrequencyTable) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for l := 0; l < t.Size(); l++ {
		if l > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", t.Count(Label(l)))
	}
	sb.WriteByte(']')
	return sb.String()
}
