package seed

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/harkirath1511/AV-TFOS/traffic"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lights.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSeed(t, `
lights:
  - id: L1
    position: [0, 0]
    state: red
  - id: L2
    position: [10.5, -4]
    state: green
`)
	lights, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := []traffic.TrafficLight{
		{ID: "L1", Position: traffic.Point{0, 0}, State: traffic.SignalRed},
		{ID: "L2", Position: traffic.Point{10.5, -4}, State: traffic.SignalGreen},
	}
	if !reflect.DeepEqual(lights, want) {
		t.Errorf("lights = %+v, want %+v", lights, want)
	}
}

func TestLoadFileRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad state", "lights:\n  - id: L1\n    state: blue\n", "unknown signal state"},
		{"duplicate", "lights:\n  - {id: L1, state: red}\n  - {id: L1, state: green}\n", "duplicate light id"},
		{"missing id", "lights:\n  - {state: red}\n", "no id"},
		{"not yaml", "lights: [", "parsing light seed"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadFile(writeSeed(t, test.content))
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("LoadFile error = %v, want containing %q", err, test.wantErr)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile of a missing file succeeded")
	}
}

func TestLoadRedis(t *testing.T) {
	server := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: server.Addr(), Protocol: 2})
	defer rdb.Close()

	server.HSet("trafficlights",
		"L2", `{"position":[1,2],"state":"yellow"}`,
		"L1", `{"position":[0,0],"state":"red"}`,
	)

	lights, err := LoadRedis(context.Background(), rdb, "trafficlights")
	if err != nil {
		t.Fatalf("LoadRedis: %v", err)
	}
	want := []traffic.TrafficLight{
		{ID: "L1", Position: traffic.Point{0, 0}, State: traffic.SignalRed},
		{ID: "L2", Position: traffic.Point{1, 2}, State: traffic.SignalYellow},
	}
	if !reflect.DeepEqual(lights, want) {
		t.Errorf("lights = %+v, want %+v", lights, want)
	}

	server.HSet("broken", "L1", `not json`)
	if _, err := LoadRedis(context.Background(), rdb, "broken"); err == nil {
		t.Error("LoadRedis accepted a malformed light")
	}

	lights, err = LoadRedis(context.Background(), rdb, "absent")
	if err != nil || len(lights) != 0 {
		t.Errorf("LoadRedis(absent) = %v, %v; want empty", lights, err)
	}
}
