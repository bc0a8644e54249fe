package core

// PortType classifies an audio port of the routing matrix.
type PortType int

const (
	PortAnalogIn PortType = iota
	PortAnalogOut
	PortSpdifIn
	PortSpdifOut
	PortAdatIn
	PortAdatOut
	PortMixerOut
	PortPcmIn
	PortPcmOut
	PortDspIn
	PortDspOut
)

type Port struct {
	Type  PortType `json:"type"`
	Index int      `json:"index"`
	Name  string   `json:"name"`
}

// RoutingMatrix maps destinations to optional sources. Routes is indexed by
// destination; a nil entry means the destination is unrouted.
type RoutingMatrix struct {
	Sources      []Port `json:"sources"`
	Destinations []Port `json:"destinations"`
	Routes       []*int `json:"routes"`
}

func NewRoutingMatrix() RoutingMatrix {
	return RoutingMatrix{
		Sources:      []Port{},
		Destinations: []Port{},
		Routes:       []*int{},
	}
}

// SetRoute connects a destination to a source, or disconnects it when
// source is nil. Out-of-range destinations are ignored.
func (m *RoutingMatrix) SetRoute(dest int, source *int) {
	if dest >= 0 && dest < len(m.Routes) {
		m.Routes[dest] = source
	}
}

// Route returns the source routed to a destination, or nil.
func (m *RoutingMatrix) Route(dest int) *int {
	if dest < 0 || dest >= len(m.Routes) {
		return nil
	}
	return m.Routes[dest]
}
