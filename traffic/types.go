// Package traffic holds the client-side model of the city traffic feed
// and the Store that reduces decoded feed events into a snapshot.
package traffic

import "fmt"

// Point is a coordinate pair in the abstract map frame.
type Point = [2]float64

// Kind classifies a vehicle.
type Kind string

const (
	KindNormal    Kind = "normal"
	KindEmergency Kind = "emergency"
)

// Signal is the state of a traffic light.
type Signal string

const (
	SignalRed    Signal = "red"
	SignalYellow Signal = "yellow"
	SignalGreen  Signal = "green"
)

// ParseSignal returns the Signal named by s, or an error if s is not
// one of red, yellow or green.
func ParseSignal(s string) (Signal, error) {
	switch Signal(s) {
	case SignalRed, SignalYellow, SignalGreen:
		return Signal(s), nil
	}
	return "", fmt.Errorf("unknown signal state %q", s)
}

// Vehicle is the latest known position and speed of one vehicle.
type Vehicle struct {
	ID       string  `json:"id"`
	Position Point   `json:"position"`
	Speed    float64 `json:"speed"`
	Kind     Kind    `json:"type"`
}

// TrafficLight is a pre-seeded light whose State follows the feed.
type TrafficLight struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	State    Signal `json:"state"`
}

// Emergency is a dispatched emergency vehicle. Route[0] is its current
// position.
type Emergency struct {
	ID    string  `json:"id"`
	Route []Point `json:"route"`
}

// Snapshot is the full store state at one point in time. Values in a
// Snapshot are copies and never alias store memory.
type Snapshot struct {
	Vehicles         []Vehicle      `json:"vehicles"`
	TrafficLights    []TrafficLight `json:"trafficLights"`
	Emergencies      []Emergency    `json:"emergencies"`
	Congestion       int            `json:"congestion"`
	AvgSpeed         float64        `json:"avgSpeed"`
	SimulationActive bool           `json:"isSimulationActive"`
}

func (e Emergency) clone() Emergency {
	route := make([]Point, len(e.Route))
	copy(route, e.Route)
	return Emergency{ID: e.ID, Route: route}
}
