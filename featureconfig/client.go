package featureconfig

import "sort"

// Client answers flag questions for a single session. Construct one per
// session and pass it to whatever needs flags.
type Client struct {
	snap *Snapshot
}

// NewClient wraps a decoded snapshot. A nil snapshot answers every query with the default.
func NewClient(snap *Snapshot) *Client {
	if snap == nil {
		snap = emptySnapshot()
	}
	return &Client{snap: snap}
}

// IsEnabled matches name against gate keys first, then gate names.
func (c *Client) IsEnabled(name string, def bool) bool {
	if g, ok := c.snap.FeatureGates[name]; ok {
		return g.Value
	}
	for _, key := range sortedKeys(c.snap.FeatureGates) {
		if c.snap.FeatureGates[key].Name == name {
			return c.snap.FeatureGates[key].Value
		}
	}
	return def
}

// Value matches name against dynamic config keys first, then config names.
func (c *Client) Value(name string, def any) any {
	if dc, ok := c.snap.DynamicConfigs[name]; ok {
		return dc.Value
	}
	for _, key := range sortedKeys(c.snap.DynamicConfigs) {
		if c.snap.DynamicConfigs[key].Name == name {
			return c.snap.DynamicConfigs[key].Value
		}
	}
	return def
}

// Snapshot returns the underlying snapshot.
func (c *Client) Snapshot() *Snapshot {
	return c.snap
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
