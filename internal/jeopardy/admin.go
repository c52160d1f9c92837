package jeopardy

import "strings"

// AdminGate authorizes privileged game-control commands against a
// configured allow-list of node ids.
type AdminGate struct {
	nodeIDs map[string]bool
}

// NewAdminGate creates a gate for the given allow-list. Ids are stored
// with the leading "!" marker stripped so callers may pass either form.
func NewAdminGate(nodeIDs []string) *AdminGate {
	g := &AdminGate{nodeIDs: make(map[string]bool, len(nodeIDs))}
	for _, id := range nodeIDs {
		g.nodeIDs[NormalizeNodeID(id)] = true
	}
	return g
}

// IsAdmin reports whether the node id is in the allow-list.
func (g *AdminGate) IsAdmin(nodeID string) bool {
	return g.nodeIDs[NormalizeNodeID(nodeID)]
}

// NormalizeNodeID strips the optional leading "!" marker so ids compare
// consistently regardless of how the caller formatted them.
func NormalizeNodeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "!")
}
