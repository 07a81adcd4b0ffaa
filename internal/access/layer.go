package access

import "strings"

// Layer is one of the three portal trust tiers. It is derived from the
// navigation path on every request and never stored.
type Layer string

const (
	// LayerNetwork is the public showcase tier and the fail-closed default.
	LayerNetwork Layer = "network"
	// LayerCollaboration is the contribution tier (projects, forum, practices).
	LayerCollaboration Layer = "collaboration"
	// LayerOperational is the expert/admin tier (dashboards, admin panels).
	LayerOperational Layer = "operational"
)

// Prefix sets are checked operational first so that an admin route can never
// be downgraded by a collaboration prefix that happens to be a substring.
var (
	operationalPrefixes = []string{
		"/admin",
		"/dashboard",
		"/security",
		"/analytics",
		"/monitoring",
	}
	collaborationPrefixes = []string{
		"/projects",
		"/practices",
		"/resources",
		"/forum",
		"/events",
		"/members",
	}
)

// Visibility is the full classification result for one navigation path.
type Visibility struct {
	Layer                Layer `json:"layer"`
	IsNetworkLayer       bool  `json:"is_network_layer"`
	IsCollaborationLayer bool  `json:"is_collaboration_layer"`
	IsOperationalLayer   bool  `json:"is_operational_layer"`
	ShowAdminUI          bool  `json:"show_admin_ui"`
	ShowSuggestions      bool  `json:"show_suggestions"`
	ShowKPIs             bool  `json:"show_kpis"`
}

// Classify resolves the access layer for a navigation path. Pure function;
// every input, however malformed, resolves to exactly one layer, with
// LayerNetwork as the catch-all.
func Classify(path string) Layer {
	if matchesAny(path, operationalPrefixes) {
		return LayerOperational
	}
	if matchesAny(path, collaborationPrefixes) {
		return LayerCollaboration
	}
	return LayerNetwork
}

// Resolve classifies the path and derives the UI visibility flags.
func Resolve(path string) Visibility {
	layer := Classify(path)
	return Visibility{
		Layer:                layer,
		IsNetworkLayer:       layer == LayerNetwork,
		IsCollaborationLayer: layer == LayerCollaboration,
		IsOperationalLayer:   layer == LayerOperational,
		ShowAdminUI:          layer == LayerOperational,
		ShowSuggestions:      layer != LayerNetwork,
		ShowKPIs:             layer == LayerOperational,
	}
}

// matchesAny reports whether path equals a prefix exactly or begins a child
// segment of it. Segment-aware on purpose: "/projectsxyz" must not match
// "/projects".
func matchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
