package traffic

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Wire values of the "type" discriminant.
const (
	TypeVehicleUpdate  = "vehicle_update"
	TypeTrafficLight   = "traffic_light"
	TypeEmergencyStart = "emergency_start"
)

var (
	// ErrDecode reports a frame that is not a JSON object.
	ErrDecode = errors.New("undecodable frame")

	// ErrInvalidEvent reports a well-formed frame whose fields do not
	// satisfy the schema of its event type.
	ErrInvalidEvent = errors.New("invalid event")
)

// Event is one decoded feed event. The concrete type is one of
// VehicleUpdate, LightChange, EmergencyStart or Unhandled.
type Event interface {
	// EventType returns the wire discriminant.
	EventType() string

	event()
}

// VehicleUpdate carries a full replacement record for one vehicle.
type VehicleUpdate struct {
	ID          string
	Lat, Lng    float64
	Speed       float64
	IsEmergency bool
}

// LightChange sets the signal of an existing traffic light.
type LightChange struct {
	ID    string
	State Signal
}

// EmergencyStart announces a new emergency dispatch.
type EmergencyStart struct {
	Emergency Emergency
}

// Unhandled is an event whose type this client does not know. It is
// accepted so that newer servers can add event kinds.
type Unhandled struct {
	Type string
}

func (VehicleUpdate) EventType() string  { return TypeVehicleUpdate }
func (LightChange) EventType() string    { return TypeTrafficLight }
func (EmergencyStart) EventType() string { return TypeEmergencyStart }
func (u Unhandled) EventType() string    { return u.Type }

func (VehicleUpdate) event()  {}
func (LightChange) event()    {}
func (EmergencyStart) event() {}
func (Unhandled) event()      {}

// Vehicle builds the store record for the update.
func (u VehicleUpdate) Vehicle() Vehicle {
	kind := KindNormal
	if u.IsEmergency {
		kind = KindEmergency
	}
	return Vehicle{ID: u.ID, Position: Point{u.Lat, u.Lng}, Speed: u.Speed, Kind: kind}
}

// Decode parses one frame into an Event. Errors wrap ErrDecode when the
// frame is not a JSON object and ErrInvalidEvent when a known event type
// is missing or has malformed fields. Unknown types decode to Unhandled.
func Decode(frame []byte) (Event, error) {
	var fields wireFields
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: frame is null", ErrDecode)
	}

	eventType, err := fields.str("type")
	if err != nil {
		return nil, err
	}

	switch eventType {
	case TypeVehicleUpdate:
		return decodeVehicleUpdate(fields)
	case TypeTrafficLight:
		return decodeLightChange(fields)
	case TypeEmergencyStart:
		return decodeEmergencyStart(fields)
	default:
		return Unhandled{Type: eventType}, nil
	}
}

func decodeVehicleUpdate(fields wireFields) (Event, error) {
	var (
		update VehicleUpdate
		err    error
	)
	if update.ID, err = fields.str("id"); err != nil {
		return nil, err
	}
	if update.Lat, err = fields.number("lat"); err != nil {
		return nil, err
	}
	if update.Lng, err = fields.number("lng"); err != nil {
		return nil, err
	}
	if update.Speed, err = fields.number("speed"); err != nil {
		return nil, err
	}
	if update.Speed < 0 {
		return nil, fmt.Errorf("%w: field \"speed\" is negative (%g)", ErrInvalidEvent, update.Speed)
	}
	update.IsEmergency = fields.truthy("isEmergency")
	return update, nil
}

func decodeLightChange(fields wireFields) (Event, error) {
	id, err := fields.str("id")
	if err != nil {
		return nil, err
	}
	raw, err := fields.str("state")
	if err != nil {
		return nil, err
	}
	state, err := ParseSignal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return LightChange{ID: id, State: state}, nil
}

func decodeEmergencyStart(fields wireFields) (Event, error) {
	id, err := fields.str("id")
	if err != nil {
		return nil, err
	}
	raw, ok := fields["route"]
	if !ok {
		return nil, fmt.Errorf("%w: missing field \"route\"", ErrInvalidEvent)
	}
	var points [][]*float64
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, fmt.Errorf("%w: field \"route\": %v", ErrInvalidEvent, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: field \"route\" is empty", ErrInvalidEvent)
	}
	route := make([]Point, len(points))
	for i, p := range points {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: route point %d has %d coordinates", ErrInvalidEvent, i, len(p))
		}
		if p[0] == nil || p[1] == nil {
			return nil, fmt.Errorf("%w: route point %d has a null coordinate", ErrInvalidEvent, i)
		}
		route[i] = Point{*p[0], *p[1]}
	}
	return EmergencyStart{Emergency: Emergency{ID: id, Route: route}}, nil
}

// wireFields is a frame split into its top-level members.
type wireFields map[string]json.RawMessage

var jsonNull = []byte("null")

func (f wireFields) present(name string) (json.RawMessage, error) {
	raw, ok := f[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil, fmt.Errorf("%w: missing field %q", ErrInvalidEvent, name)
	}
	return raw, nil
}

// str returns a required non-empty string member.
func (f wireFields) str(name string) (string, error) {
	raw, err := f.present(name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", ErrInvalidEvent, name)
	}
	if s == "" {
		return "", fmt.Errorf("%w: field %q is empty", ErrInvalidEvent, name)
	}
	return s, nil
}

// number returns a required numeric member. Numeric strings are
// rejected.
func (f wireFields) number(name string) (float64, error) {
	raw, err := f.present(name)
	if err != nil {
		return 0, err
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("%w: field %q is not a number", ErrInvalidEvent, name)
	}
	return n, nil
}

// truthy evaluates an optional member the way the browser client did:
// false, 0, "", null and absence are false; everything else is true.
func (f wireFields) truthy(name string) bool {
	raw, ok := f[name]
	if !ok {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
