package routes

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// seedFile is the TOML layout accepted by LoadTOML:
//
//	[[route]]
//	departure_area = "Calais"
//	arrival_area   = "London"
//	boarding_port  = "Calais"
//	landing_port   = "Dover"
type seedFile struct {
	Routes []Route `toml:"route"`
}

// LoadTOML reads a route seed file. IDs in the file are ignored.
func LoadTOML(path string) ([]*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	var seed seedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse route file: %w", err)
	}

	out := make([]*Route, 0, len(seed.Routes))
	for i := range seed.Routes {
		r := seed.Routes[i]
		if r.DepartureArea == "" || r.ArrivalArea == "" || r.BoardingPort == "" || r.LandingPort == "" {
			return nil, fmt.Errorf("route %d in %s has empty fields", i+1, path)
		}
		r.ID = 0
		out = append(out, &r)
	}
	return out, nil
}
