package orgtree

import (
	"sort"
	"strconv"
	"strings"
)

// Directory systems deliver the hierarchy as segments separated by a currency
// sign, each segment holding pipe-separated fields: level|orgId|orgName.
const (
	SegmentDelimiter = "¤"
	FieldDelimiter   = "|"
)

// Node is one organizational unit at a given level of the hierarchy.
type Node struct {
	Level   int    `json:"level"`
	OrgID   string `json:"org_id"`
	OrgName string `json:"org_name"`
}

// Tree is the parsed organizational hierarchy, one node per level.
type Tree struct {
	byLevel map[int]Node
}

// Parse builds a Tree from the raw directory string. Segments whose level
// field is not a valid integer, or that do not carry exactly three fields,
// are skipped: upstream directory data is not guaranteed clean, and a partial
// tree is more useful than no tree.
func Parse(raw string) Tree {
	t := Tree{byLevel: map[int]Node{}}
	for _, segment := range strings.Split(raw, SegmentDelimiter) {
		fields := strings.Split(segment, FieldDelimiter)
		if len(fields) != 3 {
			continue
		}
		level, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		t.byLevel[level] = Node{
			Level:   level,
			OrgID:   strings.TrimSpace(fields[1]),
			OrgName: strings.TrimSpace(fields[2]),
		}
	}
	return t
}

// Levels returns the nodes ascending by level; the root (company level) first.
func (t Tree) Levels() []Node {
	nodes := make([]Node, 0, len(t.byLevel))
	for _, n := range t.byLevel {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Level < nodes[j].Level })
	return nodes
}

// At returns the node at the given level, if present.
func (t Tree) At(level int) (Node, bool) {
	n, ok := t.byLevel[level]
	return n, ok
}

// Root returns the node with the smallest level number.
func (t Tree) Root() (Node, bool) {
	levels := t.Levels()
	if len(levels) == 0 {
		return Node{}, false
	}
	return levels[0], true
}

// Size returns the number of levels parsed.
func (t Tree) Size() int {
	return len(t.byLevel)
}
