// Package seed loads the fixed set of traffic lights the store starts
// with. The feed only changes the state of lights that were seeded.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/harkirath1511/AV-TFOS/traffic"
)

// lightRecord is the on-disk and in-Redis shape of one light.
type lightRecord struct {
	ID       string     `yaml:"id" json:"id,omitempty"`
	Position [2]float64 `yaml:"position" json:"position"`
	State    string     `yaml:"state" json:"state"`
}

type lightFile struct {
	Lights []lightRecord `yaml:"lights"`
}

// LoadFile reads lights from a YAML file of the form
//
//	lights:
//	  - id: L1
//	    position: [0, 0]
//	    state: red
func LoadFile(path string) ([]traffic.TrafficLight, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading light seed: %w", err)
	}
	var file lightFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing light seed %s: %w", path, err)
	}
	lights, err := convert(file.Lights)
	if err != nil {
		return nil, fmt.Errorf("light seed %s: %w", path, err)
	}
	return lights, nil
}

// LoadRedis reads lights from the hash at key. Each field is a light id
// and each value a JSON object {"position":[x,y],"state":"red"}. Lights
// are returned sorted by id.
func LoadRedis(ctx context.Context, rdb *redis.Client, key string) ([]traffic.TrafficLight, error) {
	fields, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading light seed %s: %w", key, err)
	}

	records := make([]lightRecord, 0, len(fields))
	for id, value := range fields {
		var record lightRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, fmt.Errorf("light %s in %s: %w", id, key, err)
		}
		record.ID = id
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	lights, err := convert(records)
	if err != nil {
		return nil, fmt.Errorf("light seed %s: %w", key, err)
	}
	return lights, nil
}

func convert(records []lightRecord) ([]traffic.TrafficLight, error) {
	seen := make(map[string]bool, len(records))
	lights := make([]traffic.TrafficLight, 0, len(records))
	for i, record := range records {
		if record.ID == "" {
			return nil, fmt.Errorf("light %d has no id", i)
		}
		if seen[record.ID] {
			return nil, fmt.Errorf("duplicate light id %q", record.ID)
		}
		seen[record.ID] = true

		state, err := traffic.ParseSignal(record.State)
		if err != nil {
			return nil, fmt.Errorf("light %s: %w", record.ID, err)
		}
		lights = append(lights, traffic.TrafficLight{
			ID:       record.ID,
			Position: record.Position,
			State:    state,
		})
	}
	return lights, nil
}
