package domain

import "time"

// Shipment is one delivery row. String fields hold "-" when the upload left
// them empty.
type Shipment struct {
	ID            string     `json:"id" db:"id"`
	OrderCode     string     `json:"order_code" db:"order_code"`
	ClientName    string     `json:"client_name" db:"client_name"`
	ProjectName   string     `json:"project_name" db:"project_name"`
	Hub           string     `json:"hub" db:"hub"`
	MitraName     string     `json:"mitra_name" db:"mitra_name"`
	DeliveryDate  string     `json:"delivery_date" db:"delivery_date"`
	DeliveryMonth int        `json:"delivery_month,omitempty" db:"delivery_month"`
	DeliveryYear  int        `json:"delivery_year,omitempty" db:"delivery_year"`
	Weekly        string     `json:"weekly" db:"weekly"`
	Attributes    Attributes `json:"attributes,omitempty" db:"attributes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ShipmentStats summarizes the shipment table.
type ShipmentStats struct {
	Total          int `json:"total"`
	UniqueClients  int `json:"unique_clients"`
	UniqueProjects int `json:"unique_projects"`
	UniqueHubs     int `json:"unique_hubs"`
	UniqueMitras   int `json:"unique_mitras"`
	UniqueWeeks    int `json:"unique_weeks"`
}

// ShipmentFilters lists distinct values usable as list filters.
type ShipmentFilters struct {
	Clients  []string `json:"clients"`
	Projects []string `json:"projects"`
	Hubs     []string `json:"hubs"`
	Weeks    []string `json:"weeks"`
}

// ShipmentUpdate carries the editable shipment fields. Nil means unchanged.
type ShipmentUpdate struct {
	OrderCode    *string `json:"order_code" validate:"omitempty,max=100"`
	ClientName   *string `json:"client_name" validate:"omitempty,max=200"`
	ProjectName  *string `json:"project_name" validate:"omitempty,max=200"`
	Hub          *string `json:"hub" validate:"omitempty,max=200"`
	MitraName    *string `json:"mitra_name" validate:"omitempty,max=200"`
	DeliveryDate *string `json:"delivery_date" validate:"omitempty,max=32"`
	Weekly       *string `json:"weekly" validate:"omitempty,max=64"`
}
