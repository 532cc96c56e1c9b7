package internal

// ApplyTrim propagates '-' markers in one node list onto text siblings. A node
// with a left marker sets TrimRight on the nearest preceding text node; a node
// with a right marker sets TrimLeft on the nearest following text node. Non-text
// siblings in between are skipped. Flags are only ever set, so the pass is
// idempotent.
func ApplyTrim(nodes []Node) {
	for i, node := range nodes {
		trimmer, ok := node.(Trimmer)
		if !ok {
			continue
		}
		left, right := trimmer.TrimMarkers()
		if left {
			for j := i - 1; j >= 0; j-- {
				if text, ok := nodes[j].(*TextNode); ok {
					text.TrimRight = true
					break
				}
			}
		}
		if right {
			for j := i + 1; j < len(nodes); j++ {
				if text, ok := nodes[j].(*TextNode); ok {
					text.TrimLeft = true
					break
				}
			}
		}
	}
}

// ApplyTrimTree runs ApplyTrim over every node list reachable from root:
// the template children, each block body, each branch body and each macro body.
func ApplyTrimTree(root *TemplateNode) {
	if root == nil {
		return
	}
	applyTrimRecursive(root.Children)
}

func applyTrimRecursive(nodes []Node) {
	ApplyTrim(nodes)
	for _, node := range nodes {
		block, ok := node.(*BlockNode)
		if !ok {
			continue
		}
		applyTrimRecursive(block.Children)
		for _, branch := range block.Branches {
			applyTrimRecursive(branch.Children)
		}
	}
}
