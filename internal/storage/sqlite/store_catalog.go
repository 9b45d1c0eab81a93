package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/seddaluca/racing-analytics/internal/domain"
	"github.com/seddaluca/racing-analytics/internal/storage"
)

// CircuitByName resolves a circuit by its unique name.
func (s *Store) CircuitByName(ctx context.Context, name string) (domain.Circuit, error) {
	if err := ctx.Err(); err != nil {
		return domain.Circuit{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Circuit{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Circuit{}, fmt.Errorf("circuit name is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, country, length_meters FROM circuits WHERE name = ?
`, name)
	var circuit domain.Circuit
	if err := row.Scan(&circuit.ID, &circuit.Name, &circuit.Country, &circuit.LengthMeters); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Circuit{}, storage.ErrNotFound
		}
		return domain.Circuit{}, fmt.Errorf("scan circuit: %w", err)
	}
	return circuit, nil
}

// VehicleByName resolves a vehicle by its unique name.
func (s *Store) VehicleByName(ctx context.Context, name string) (domain.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Vehicle{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Vehicle{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Vehicle{}, fmt.Errorf("vehicle name is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, manufacturer, category, game_car_id FROM vehicles WHERE name = ?
`, name)
	var vehicle domain.Vehicle
	if err := row.Scan(&vehicle.ID, &vehicle.Name, &vehicle.Manufacturer, &vehicle.Category, &vehicle.GameCarID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Vehicle{}, storage.ErrNotFound
		}
		return domain.Vehicle{}, fmt.Errorf("scan vehicle: %w", err)
	}
	return vehicle, nil
}

// ListCircuits lists the circuit catalog ordered by name.
func (s *Store) ListCircuits(ctx context.Context) ([]domain.Circuit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, country, length_meters FROM circuits ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list circuits: %w", err)
	}
	defer rows.Close()

	var circuits []domain.Circuit
	for rows.Next() {
		var circuit domain.Circuit
		if err := rows.Scan(&circuit.ID, &circuit.Name, &circuit.Country, &circuit.LengthMeters); err != nil {
			return nil, fmt.Errorf("scan circuit: %w", err)
		}
		circuits = append(circuits, circuit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate circuits: %w", err)
	}
	return circuits, nil
}

// ListVehicles lists the vehicle catalog ordered by manufacturer and name.
func (s *Store) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, manufacturer, category, game_car_id FROM vehicles ORDER BY manufacturer, name
`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var vehicle domain.Vehicle
		if err := rows.Scan(&vehicle.ID, &vehicle.Name, &vehicle.Manufacturer, &vehicle.Category, &vehicle.GameCarID); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return vehicles, nil
}
