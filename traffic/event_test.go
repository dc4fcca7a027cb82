package traffic

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeKnownEvents(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "vehicle update",
			frame: `{"type":"vehicle_update","id":"V1","lat":1.0,"lng":2.0,"speed":30,"isEmergency":false}`,
			want:  VehicleUpdate{ID: "V1", Lat: 1, Lng: 2, Speed: 30},
		},
		{
			name:  "vehicle update without isEmergency",
			frame: `{"type":"vehicle_update","id":"V2","lat":-3.5,"lng":0,"speed":0}`,
			want:  VehicleUpdate{ID: "V2", Lat: -3.5, Speed: 0},
		},
		{
			name:  "truthy numeric isEmergency",
			frame: `{"type":"vehicle_update","id":"E1","lat":0,"lng":0,"speed":80,"isEmergency":1}`,
			want:  VehicleUpdate{ID: "E1", Speed: 80, IsEmergency: true},
		},
		{
			name:  "traffic light",
			frame: `{"type":"traffic_light","id":"L1","state":"yellow"}`,
			want:  LightChange{ID: "L1", State: SignalYellow},
		},
		{
			name:  "emergency start",
			frame: `{"type":"emergency_start","id":"AMB-7","route":[[1,2],[3,4]],"priority":"high"}`,
			want:  EmergencyStart{Emergency: Emergency{ID: "AMB-7", Route: []Point{{1, 2}, {3, 4}}}},
		},
		{
			name:  "unknown type",
			frame: `{"type":"weather","rain":true}`,
			want:  Unhandled{Type: "weather"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Decode([]byte(test.frame))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("Decode = %#v, want %#v", got, test.want)
			}
		})
	}
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"not json", `{"type":`, ErrDecode},
		{"json array", `[1,2,3]`, ErrDecode},
		{"json null", `null`, ErrDecode},
		{"missing type", `{"id":"V1"}`, ErrInvalidEvent},
		{"non-string type", `{"type":7}`, ErrInvalidEvent},
		{"vehicle missing lat", `{"type":"vehicle_update","id":"V1","lng":2,"speed":3}`, ErrInvalidEvent},
		{"vehicle null speed", `{"type":"vehicle_update","id":"V1","lat":1,"lng":2,"speed":null}`, ErrInvalidEvent},
		{"vehicle string lat", `{"type":"vehicle_update","id":"V1","lat":"1.0","lng":2,"speed":3}`, ErrInvalidEvent},
		{"vehicle negative speed", `{"type":"vehicle_update","id":"V1","lat":1,"lng":2,"speed":-1}`, ErrInvalidEvent},
		{"vehicle empty id", `{"type":"vehicle_update","id":"","lat":1,"lng":2,"speed":3}`, ErrInvalidEvent},
		{"light bad state", `{"type":"traffic_light","id":"L1","state":"blue"}`, ErrInvalidEvent},
		{"light missing id", `{"type":"traffic_light","state":"red"}`, ErrInvalidEvent},
		{"emergency empty route", `{"type":"emergency_start","id":"E1","route":[]}`, ErrInvalidEvent},
		{"emergency short point", `{"type":"emergency_start","id":"E1","route":[[1]]}`, ErrInvalidEvent},
		{"emergency null coordinate", `{"type":"emergency_start","id":"E1","route":[[1,null]]}`, ErrInvalidEvent},
		{"emergency null point", `{"type":"emergency_start","id":"E1","route":[[0,0],[null,null]]}`, ErrInvalidEvent},
		{"emergency route not array", `{"type":"emergency_start","id":"E1","route":"north"}`, ErrInvalidEvent},
		{"emergency missing route", `{"type":"emergency_start","id":"E1"}`, ErrInvalidEvent},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			event, err := Decode([]byte(test.frame))
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("Decode error = %v, want %v", err, test.wantErr)
			}
			if event != nil {
				t.Errorf("Decode returned event %#v alongside error", event)
			}
		})
	}
}

func TestVehicleUpdateKind(t *testing.T) {
	if got := (VehicleUpdate{ID: "a"}).Vehicle().Kind; got != KindNormal {
		t.Errorf("kind = %q, want %q", got, KindNormal)
	}
	if got := (VehicleUpdate{ID: "a", IsEmergency: true}).Vehicle().Kind; got != KindEmergency {
		t.Errorf("kind = %q, want %q", got, KindEmergency)
	}
}
