// Package domain holds the core telemetry types shared by the capture and
// processing services: decoded physics samples, their normalized persisted
// form, sessions, laps, and the circuit/vehicle catalog.
package domain

import (
	"strconv"
	"time"
)

// Vector is a 3-axis reading in the simulator's world coordinates.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotation is the vehicle attitude in radians.
type Rotation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Wheel carries per-corner suspension and tire readings.
type Wheel struct {
	SuspensionHeight float64 `json:"suspension_height"`
	Temperature      float64 `json:"temperature"`
}

// Wheels groups the four corners in FL/FR/RL/RR order.
type Wheels struct {
	FrontLeft  Wheel `json:"front_left"`
	FrontRight Wheel `json:"front_right"`
	RearLeft   Wheel `json:"rear_left"`
	RearRight  Wheel `json:"rear_right"`
}

// Flags is the decoded state bitfield of one sample.
type Flags struct {
	CarOnTrack       bool `json:"car_on_track"`
	Paused           bool `json:"paused"`
	InGear           bool `json:"in_gear"`
	RevLimiterActive bool `json:"rev_limiter_active"`
}

// Sample is one decoded physics reading as produced by the external device
// decoder. Units are the device's native ones: speed in m/s, pedals 0-255.
type Sample struct {
	ReceivedAt       time.Time `json:"received_at"`
	CarID            int       `json:"car_id"`
	Position         Vector    `json:"position"`
	Velocity         Vector    `json:"velocity"`
	AngularVelocity  Vector    `json:"angular_velocity"`
	Rotation         Rotation  `json:"rotation"`
	Wheels           Wheels    `json:"wheels"`
	Flags            Flags     `json:"flags"`
	CarSpeed         float64   `json:"car_speed"`
	EngineRPM        float64   `json:"engine_rpm"`
	Throttle         uint8     `json:"throttle"`
	Brake            uint8     `json:"brake"`
	Clutch           float64   `json:"clutch"`
	Steering         float64   `json:"steering"`
	CurrentGear      int       `json:"current_gear"`
	SuggestedGear    int       `json:"suggested_gear"`
	FuelLevel        float64   `json:"fuel_level"`
	FuelCapacity     float64   `json:"fuel_capacity"`
	OilTemperature   float64   `json:"oil_temperature"`
	WaterTemperature float64   `json:"water_temperature"`
	OilPressure      float64   `json:"oil_pressure"`
	BodyHeight       float64   `json:"body_height"`
	TurboBoost       float64   `json:"turbo_boost"`
	TimeOfDay        int       `json:"time_of_day"`
}

// SampleStatus classifies a sample for persistence and live broadcast.
type SampleStatus string

const (
	StatusActive SampleStatus = "active"
	StatusPaused SampleStatus = "paused"
)

// TelemetrySample is one normalized, session-scoped telemetry row. Speed is
// km/h, pedals are 0-1, rotation stays in radians.
type TelemetrySample struct {
	SessionID        string
	Time             time.Time
	Position         Vector
	Velocity         Vector
	AngularVelocity  Vector
	Rotation         Rotation
	SpeedKMH         float64
	Throttle         float64
	Brake            float64
	Steering         float64
	Clutch           float64
	EngineRPM        float64
	CurrentGear      int
	SuggestedGear    int
	FuelLevel        float64
	FuelCapacity     float64
	OilTemperature   float64
	WaterTemperature float64
	OilPressure      float64
	TireTempFL       float64
	TireTempFR       float64
	TireTempRL       float64
	TireTempRR       float64
	SuspensionFL     float64
	SuspensionFR     float64
	SuspensionRL     float64
	SuspensionRR     float64
	OnTrack          bool
	Paused           bool
	InGear           bool
	RevLimiter       bool
	RideHeight       float64
	TurboBoost       float64
	TimeOfDay        int
	Status           SampleStatus
}

// Normalize converts a decoded sample into its canonical persisted form.
// A sample taken while the game is paused or the car is off track keeps its
// position and identity fields but has the dynamic fields zeroed.
func Normalize(sessionID string, s Sample) TelemetrySample {
	row := TelemetrySample{
		SessionID:        sessionID,
		Time:             s.ReceivedAt.UTC(),
		Position:         s.Position,
		Velocity:         s.Velocity,
		AngularVelocity:  s.AngularVelocity,
		Rotation:         s.Rotation,
		SpeedKMH:         s.CarSpeed * 3.6,
		Throttle:         float64(s.Throttle) / 255.0,
		Brake:            float64(s.Brake) / 255.0,
		Steering:         s.Steering,
		Clutch:           s.Clutch,
		EngineRPM:        s.EngineRPM,
		CurrentGear:      s.CurrentGear,
		SuggestedGear:    s.SuggestedGear,
		FuelLevel:        s.FuelLevel,
		FuelCapacity:     s.FuelCapacity,
		OilTemperature:   s.OilTemperature,
		WaterTemperature: s.WaterTemperature,
		OilPressure:      s.OilPressure,
		TireTempFL:       s.Wheels.FrontLeft.Temperature,
		TireTempFR:       s.Wheels.FrontRight.Temperature,
		TireTempRL:       s.Wheels.RearLeft.Temperature,
		TireTempRR:       s.Wheels.RearRight.Temperature,
		SuspensionFL:     s.Wheels.FrontLeft.SuspensionHeight,
		SuspensionFR:     s.Wheels.FrontRight.SuspensionHeight,
		SuspensionRL:     s.Wheels.RearLeft.SuspensionHeight,
		SuspensionRR:     s.Wheels.RearRight.SuspensionHeight,
		OnTrack:          s.Flags.CarOnTrack,
		Paused:           s.Flags.Paused,
		InGear:           s.Flags.InGear,
		RevLimiter:       s.Flags.RevLimiterActive,
		RideHeight:       s.BodyHeight,
		TurboBoost:       s.TurboBoost,
		TimeOfDay:        s.TimeOfDay,
		Status:           StatusActive,
	}

	if s.Flags.Paused || !s.Flags.CarOnTrack {
		row.Status = StatusPaused
		row.SpeedKMH = 0
		row.EngineRPM = 0
		row.Throttle = 0
		row.Brake = 0
	}

	return row
}

// GearLabel renders the current gear for display, using "N" when the sample
// is paused or the gearbox reports neutral.
func (t TelemetrySample) GearLabel() string {
	if t.Status == StatusPaused || t.CurrentGear <= 0 {
		return "N"
	}
	return strconv.Itoa(t.CurrentGear)
}

// FuelPercentage returns fuel level as a 0-100 percentage of capacity.
func (t TelemetrySample) FuelPercentage() float64 {
	if t.FuelCapacity <= 0 {
		return 0
	}
	return t.FuelLevel / t.FuelCapacity * 100
}
