package domain

import "time"

// Order is a primary record: an order row enriched by reconciliation.
type Order struct {
	ID         string      `json:"id" db:"id"`
	OrderCode  string      `json:"order_code" db:"order_code"`
	ClientName string      `json:"client_name" db:"client_name"`
	Charges    *ChargeTier `json:"charges,omitempty"`
	Attributes Attributes  `json:"attributes,omitempty" db:"attributes"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// ChargeTier holds the derived weight and distance fields. Only the
// reconciliation engine writes them. Nil means never reconciled.
type ChargeTier struct {
	WeightBand          string  `json:"weight_band" db:"weight_band"`
	RoundDownWeight     int     `json:"round_down_weight" db:"round_down_weight"`
	RoundUpWeight       int     `json:"round_up_weight" db:"round_up_weight"`
	WeightFraction      float64 `json:"weight_fraction" db:"weight_fraction"`
	OverweightSurcharge int64   `json:"overweight_surcharge" db:"overweight_surcharge"`
	RoundDownDistance   int     `json:"round_down_distance" db:"round_down_distance"`
	RoundUpDistance     int     `json:"round_up_distance" db:"round_up_distance"`
}

// Measurement is a reference record from the external measurement system.
type Measurement struct {
	ID         string     `json:"id" db:"id"`
	OrderNo    string     `json:"order_no" db:"order_no"`
	HubName    string     `json:"hub_name" db:"hub_name"`
	DriverName string     `json:"driver_name" db:"driver_name"`
	Weight     float64    `json:"weight" db:"weight"`
	DistanceKm float64    `json:"distance_km" db:"distance_km"`
	Attributes Attributes `json:"attributes,omitempty" db:"attributes"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
