package traffic

import (
	"log/slog"
	"sort"
	"sync"
)

// Defaults for the aggregate metrics until the feed reports them.
const (
	DefaultCongestion = 0
	DefaultAvgSpeed   = 45
)

// Alerts receives the begin/end signals that drive sirens and ambient
// traffic sound in the front-end. Calls are never concurrent and arrive
// in the order of the mutations that caused them. Implementations must
// not call back into the Store's mutators.
type Alerts interface {
	EmergencyStarted(Emergency)
	SimulationChanged(active bool)
}

// LogAlerts is an Alerts that records each signal in the log.
type LogAlerts struct {
	Logger *slog.Logger
}

func (a LogAlerts) EmergencyStarted(e Emergency) {
	a.Logger.Info("siren alert begin", "emergency_id", e.ID, "route_points", len(e.Route))
}

func (a LogAlerts) SimulationChanged(active bool) {
	if active {
		a.Logger.Info("ambient traffic sound begin")
	} else {
		a.Logger.Info("ambient traffic sound end")
	}
}

type noAlerts struct{}

func (noAlerts) EmergencyStarted(Emergency) {}
func (noAlerts) SimulationChanged(bool)     {}

// Option configures a Store.
type Option func(*Store)

// WithLights pre-seeds the traffic lights. Feed events only change the
// state of lights present here.
func WithLights(lights []TrafficLight) Option {
	return func(s *Store) {
		s.lights = append([]TrafficLight(nil), lights...)
	}
}

// WithLogger sets the logger that receives diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithAlerts sets the collaborator notified of emergencies and
// simulation changes.
func WithAlerts(alerts Alerts) Option {
	return func(s *Store) { s.alerts = alerts }
}

// WithMetrics overrides the initial aggregate metrics.
func WithMetrics(congestion int, avgSpeed float64) Option {
	return func(s *Store) {
		s.congestion = congestion
		s.avgSpeed = avgSpeed
	}
}

type vehicleEntry struct {
	vehicle Vehicle
	seq     uint64
}

// Store is the single owner of the client's traffic state. Apply and
// ToggleSimulation are the only mutators; every accessor returns a copy.
// Store is safe for concurrent use: mutations are serialized and each
// Apply is atomic with respect to readers.
type Store struct {
	logger *slog.Logger
	alerts Alerts

	// alertMu is held from a mutation through its alert so that alerts
	// reach the collaborator in mutation order. Acquired before mu.
	alertMu sync.Mutex

	mu               sync.RWMutex
	vehicles         map[string]vehicleEntry
	nextSeq          uint64
	lights           []TrafficLight
	emergencies      []Emergency
	congestion       int
	avgSpeed         float64
	simulationActive bool
}

// NewStore returns an empty store with default metrics.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger:     slog.Default(),
		alerts:     noAlerts{},
		vehicles:   make(map[string]vehicleEntry),
		congestion: DefaultCongestion,
		avgSpeed:   DefaultAvgSpeed,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply reduces one event into the store. It never fails: an event of
// unknown type leaves the state untouched and is logged.
func (s *Store) Apply(ev Event) {
	switch ev := ev.(type) {
	case VehicleUpdate:
		s.upsertVehicle(ev.Vehicle())
	case LightChange:
		s.setLight(ev.ID, ev.State)
	case EmergencyStart:
		s.alertMu.Lock()
		defer s.alertMu.Unlock()
		s.mu.Lock()
		s.emergencies = append(s.emergencies, ev.Emergency.clone())
		s.mu.Unlock()
		s.alerts.EmergencyStarted(ev.Emergency.clone())
	case Unhandled:
		s.logger.Warn("unhandled event type", "type", ev.Type)
	default:
		s.logger.Warn("unhandled event type", "type", ev.EventType())
	}
}

func (s *Store) upsertVehicle(v Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	s.vehicles[v.ID] = vehicleEntry{vehicle: v, seq: s.nextSeq}
}

func (s *Store) setLight(id string, state Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lights {
		if s.lights[i].ID == id {
			s.lights[i].State = state
			return
		}
	}
	s.logger.Debug("traffic light not seeded, ignoring update", "light_id", id, "state", state)
}

// ToggleSimulation flips the simulation flag and returns its new value.
func (s *Store) ToggleSimulation() bool {
	s.alertMu.Lock()
	defer s.alertMu.Unlock()

	s.mu.Lock()
	s.simulationActive = !s.simulationActive
	active := s.simulationActive
	s.mu.Unlock()

	s.alerts.SimulationChanged(active)
	return active
}

// Snapshot returns a consistent copy of the whole state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Vehicles:         s.vehiclesLocked(),
		TrafficLights:    s.lightsLocked(),
		Emergencies:      s.emergenciesLocked(),
		Congestion:       s.congestion,
		AvgSpeed:         s.avgSpeed,
		SimulationActive: s.simulationActive,
	}
}

// Vehicles returns every known vehicle, least recently updated first.
func (s *Store) Vehicles() []Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vehiclesLocked()
}

// Vehicle returns the vehicle with the given id.
func (s *Store) Vehicle(id string) (Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.vehicles[id]
	return entry.vehicle, ok
}

func (s *Store) TrafficLights() []TrafficLight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lightsLocked()
}

// Emergencies returns all emergencies in the order they started.
func (s *Store) Emergencies() []Emergency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emergenciesLocked()
}

func (s *Store) Congestion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.congestion
}

func (s *Store) AvgSpeed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.avgSpeed
}

func (s *Store) SimulationActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulationActive
}

func (s *Store) vehiclesLocked() []Vehicle {
	entries := make([]vehicleEntry, 0, len(s.vehicles))
	for _, entry := range s.vehicles {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]Vehicle, len(entries))
	for i, entry := range entries {
		out[i] = entry.vehicle
	}
	return out
}

func (s *Store) lightsLocked() []TrafficLight {
	out := make([]TrafficLight, len(s.lights))
	copy(out, s.lights)
	return out
}

func (s *Store) emergenciesLocked() []Emergency {
	out := make([]Emergency, len(s.emergencies))
	for i, e := range s.emergencies {
		out[i] = e.clone()
	}
	return out
}
