package domain

// PanelState is the canvas layout persisted separately from membership.
// Edges are never stored, they are rebuilt from the intnet configuration.
type PanelState struct {
	Nodes    []Node   `json:"nodes"`
	Viewport Viewport `json:"viewport"`
}

// Configuration is the active network configuration served by the backend
type Configuration struct {
	Nodes    []Node       `json:"nodes"`
	Intnets  IntnetConfig `json:"intnets"`
	Viewport *Viewport    `json:"viewport,omitempty"`
}

// NewConfiguration creates an empty configuration
func NewConfiguration() *Configuration {
	return &Configuration{
		Nodes:   make([]Node, 0),
		Intnets: make(IntnetConfig),
	}
}

// EffectiveViewport returns the saved viewport or the default
func (c *Configuration) EffectiveViewport() Viewport {
	if c == nil || c.Viewport == nil {
		return DefaultViewport()
	}
	return c.Viewport.Normalize()
}

// IntnetNodes returns the intnet nodes of the configuration
func (c *Configuration) IntnetNodes() []Node {
	var nodes []Node
	for _, n := range c.Nodes {
		if n.IsIntnet() {
			nodes = append(nodes, n.Normalize())
		}
	}
	return nodes
}
