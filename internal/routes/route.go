// Package routes looks up which ferry connects two areas.
package routes

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when no route matches
var ErrNotFound = errors.New("route not found")

// Route is one directional ferry connection
type Route struct {
	ID            int64  `json:"id" toml:"id"`
	DepartureArea string `json:"departure_area" toml:"departure_area"`
	ArrivalArea   string `json:"arrival_area" toml:"arrival_area"`
	BoardingPort  string `json:"boarding_port" toml:"boarding_port"`
	LandingPort   string `json:"landing_port" toml:"landing_port"`
}

// Store is the persistent route table
type Store interface {
	// GetRoute returns the exact directional match or ErrNotFound
	GetRoute(ctx context.Context, departure, arrival string) (*Route, error)
}
