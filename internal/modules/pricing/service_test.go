package pricing

import (
	"errors"
	"testing"

	"routematch/internal/modules/driver"
)

func TestService_Quote(t *testing.T) {
	svc := NewService(nil)

	tests := []struct {
		name    string
		req     QuoteRequest
		wantFee int64
	}{
		{
			name:    "Bike standard (15000 + 2km * 5000)",
			req:     QuoteRequest{VehicleClass: driver.VehicleBike, ServiceClass: "standard", DistanceKm: 2},
			wantFee: 25000,
		},
		{
			name:    "Bike fast doubles",
			req:     QuoteRequest{VehicleClass: driver.VehicleBike, ServiceClass: "fast", DistanceKm: 2},
			wantFee: 50000,
		},
		{
			name:    "Bike prioritize triples",
			req:     QuoteRequest{VehicleClass: driver.VehicleBike, ServiceClass: "prioritize", DistanceKm: 2},
			wantFee: 75000,
		},
		{
			name:    "Rain surcharge 30%",
			req:     QuoteRequest{VehicleClass: driver.VehicleBike, ServiceClass: "standard", DistanceKm: 2, Raining: true},
			wantFee: 32500,
		},
		{
			name:    "Medium truck (130000 + 10km * 15000)",
			req:     QuoteRequest{VehicleClass: driver.VehicleMediumTruck, ServiceClass: "standard", DistanceKm: 10},
			wantFee: 280000,
		},
		{
			name:    "Large truck prioritize in rain (200000 + 4km * 15000) * 3 * 1.3",
			req:     QuoteRequest{VehicleClass: driver.VehicleLargeTruck, ServiceClass: "prioritize", DistanceKm: 4, Raining: true},
			wantFee: 1014000,
		},
		{
			name:    "Fractions dropped",
			req:     QuoteRequest{VehicleClass: driver.VehicleBike, ServiceClass: "standard", DistanceKm: 1.00003},
			wantFee: 20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Quote(tt.req)
			if err != nil {
				t.Fatalf("Quote() error = %v", err)
			}
			if got.Amount != tt.wantFee {
				t.Errorf("Quote() = %d, want %d (breakdown %v)", got.Amount, tt.wantFee, got.Breakdown)
			}
			if got.Currency != Currency {
				t.Errorf("currency = %q", got.Currency)
			}
		})
	}
}

func TestService_QuoteRejectsBadInput(t *testing.T) {
	svc := NewService(nil)
	for _, req := range []QuoteRequest{
		{VehicleClass: "scooter", DistanceKm: 1},
		{VehicleClass: driver.VehicleBike, DistanceKm: 0},
		{VehicleClass: driver.VehicleBike, DistanceKm: -3},
		{VehicleClass: driver.VehicleBike, ServiceClass: "express", DistanceKm: 2},
		{VehicleClass: driver.VehicleBike, ServiceClass: "", DistanceKm: 2},
	} {
		if _, err := svc.Quote(req); !errors.Is(err, ErrBadRequest) {
			t.Errorf("Quote(%+v) error = %v, want ErrBadRequest", req, err)
		}
	}
}
