// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package plandef

import (
	"fmt"
	"io"
	"strings"

	"github.com/ebay/wbemql/query/parser"
)

// Node is a node in the tree of groups built from a query. Tree mode
// evaluates each node separately and combines the results.
type Node interface {
	// Children returns the node's child nodes.
	Children() []Node
	// Label describes the node on one line.
	Label() string
	aNode()
}

// Join is a group of triple patterns that must all match, along with the
// groups nested inside it. Its solution is the product of the solution of its
// own patterns and those of its children.
type Join struct {
	// The triple patterns directly in the group, after flattening nested
	// joins.
	Triples []*parser.Triple
	// The patterns grouped by subject, in evaluation order.
	Objects []*ObjectPattern
	// Set by the planner.
	Plan  *Plan
	Nodes []Node
}

// Union concatenates the solutions of its children.
type Union struct {
	Nodes []Node
}

// Projection passes the solution of its child through.
type Projection struct {
	// The projected variables, or nil for all variables.
	Vars  []string
	Child Node
}

func (*Join) aNode()       {}
func (*Union) aNode()      {}
func (*Projection) aNode() {}

// Children implements Node.
func (n *Join) Children() []Node { return n.Nodes }

// Children implements Node.
func (n *Union) Children() []Node { return n.Nodes }

// Children implements Node.
func (n *Projection) Children() []Node {
	if n.Child == nil {
		return nil
	}
	return []Node{n.Child}
}

// Label implements Node.
func (n *Join) Label() string {
	return fmt.Sprintf("Join (%d patterns)", len(n.Triples))
}

// Label implements Node.
func (n *Union) Label() string {
	return "Union"
}

// Label implements Node.
func (n *Projection) Label() string {
	if n.Vars == nil {
		return "Projection *"
	}
	return "Projection ?" + strings.Join(n.Vars, " ?")
}

// Walk calls visit for root and each of its descendants, parents before
// children.
func Walk(root Node, visit func(Node)) {
	visit(root)
	for _, c := range root.Children() {
		Walk(c, visit)
	}
}

// TreeString formats the tree one node per line, with the object patterns and
// plan steps of each join.
func TreeString(root Node) string {
	var b strings.Builder
	var format func(n Node, depth int)
	format = func(n Node, depth int) {
		indent := strings.Repeat("    ", depth)
		fmt.Fprintf(&b, "%s%s\n", indent, n.Label())
		if join, ok := n.(*Join); ok {
			for _, p := range join.Objects {
				fmt.Fprintf(&b, "%s  %v\n", indent, p)
			}
			if join.Plan != nil {
				for i, step := range join.Plan.Steps {
					fmt.Fprintf(&b, "%s  %d: %v\n", indent, i, step)
				}
			}
		}
		for _, c := range n.Children() {
			format(c, depth+1)
		}
	}
	format(root, 0)
	return b.String()
}

// WriteDot writes the tree as a Graphviz dot document.
func WriteDot(w io.Writer, root Node) {
	fmt.Fprintln(w, "digraph {")
	fmt.Fprintln(w, "node [shape=box fontname=Helvetica]")
	ids := make(map[Node]int)
	Walk(root, func(n Node) {
		id := len(ids)
		ids[n] = id
		label := n.Label()
		if join, ok := n.(*Join); ok {
			for _, p := range join.Objects {
				label += "\n" + p.String()
			}
		}
		fmt.Fprintf(w, "n%d [label=%q]\n", id, label)
	})
	Walk(root, func(n Node) {
		for _, c := range n.Children() {
			fmt.Fprintf(w, "n%d -> n%d\n", ids[n], ids[c])
		}
	})
	fmt.Fprintln(w, "}")
}
