package loader

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/ignite/courier-ops/internal/datanorm"
	"github.com/ignite/courier-ops/internal/domain"
)

// Dataset describes how one uploadable dataset is validated and stored.
type Dataset struct {
	Name      domain.Dataset
	Table     Table
	Required  []datanorm.CanonicalField
	Fields    map[datanorm.CanonicalField]bool // typed columns; the rest go to attributes
	BatchSize int
	build     func(rec map[string]any) []any
}

func fieldSet(fs ...datanorm.CanonicalField) map[datanorm.CanonicalField]bool {
	m := make(map[datanorm.CanonicalField]bool, len(fs))
	for _, f := range fs {
		m[f] = true
	}
	return m
}

// attributesJSON renders every non-typed field as the JSONB attribute bag.
func attributesJSON(rec map[string]any, typed map[datanorm.CanonicalField]bool) string {
	bag := make(map[string]any)
	for k, v := range rec {
		if !typed[datanorm.CanonicalField(k)] {
			bag[k] = v
		}
	}
	data, err := json.Marshal(bag)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func nullableInt(n int, ok bool) any {
	if !ok {
		return nil
	}
	return n
}

// DefaultDatasets returns the built-in dataset definitions.
func DefaultDatasets() map[domain.Dataset]*Dataset {
	out := make(map[domain.Dataset]*Dataset)
	for _, d := range []*Dataset{ordersDataset(), measurementsDataset(), shipmentsDataset(), mitrasDataset(), phoneMessagesDataset(), tasksDataset()} {
		out[d.Name] = d
	}
	return out
}

func ordersDataset() *Dataset {
	d := &Dataset{
		Name: domain.DatasetOrders,
		Table: Table{
			Name:      "orders",
			Columns:   []string{"id", "order_code", "client_name", "attributes"},
			KeyColumn: "order_code",
		},
		Required:  []datanorm.CanonicalField{datanorm.FieldOrderCode},
		Fields:    fieldSet(datanorm.FieldOrderCode, datanorm.FieldClientName),
		BatchSize: 500,
	}
	d.build = func(rec map[string]any) []any {
		return []any{
			uuid.NewString(),
			datanorm.ToString(rec[string(datanorm.FieldOrderCode)]),
			datanorm.OrSentinel(rec[string(datanorm.FieldClientName)]),
			attributesJSON(rec, d.Fields),
		}
	}
	return d
}

func measurementsDataset() *Dataset {
	d := &Dataset{
		Name: domain.DatasetMeasurements,
		Table: Table{
			Name:      "measurements",
			Columns:   []string{"id", "order_no", "hub_name", "driver_name", "weight", "distance_km", "attributes"},
			KeyColumn: "order_no",
		},
		Required: []datanorm.CanonicalField{datanorm.FieldOrderNo, datanorm.FieldHubName, datanorm.FieldDriverName},
		Fields: fieldSet(datanorm.FieldOrderNo, datanorm.FieldHubName, datanorm.FieldDriverName,
			datanorm.FieldWeight, datanorm.FieldDistanceKm),
		BatchSize: 3000,
	}
	d.build = func(rec map[string]any) []any {
		return []any{
			uuid.NewString(),
			datanorm.ToString(rec[string(datanorm.FieldOrderNo)]),
			datanorm.ToString(rec[string(datanorm.FieldHubName)]),
			datanorm.ToString(rec[string(datanorm.FieldDriverName)]),
			datanorm.ToFloat(rec[string(datanorm.FieldWeight)]),
			datanorm.ToFloat(rec[string(datanorm.FieldDistanceKm)]),
			attributesJSON(rec, d.Fields),
		}
	}
	return d
}

func shipmentsDataset() *Dataset {
	d := &Dataset{
		Name: domain.DatasetShipments,
		Table: Table{
			Name: "shipments",
			Columns: []string{"id", "order_code", "client_name", "project_name", "hub", "mitra_name",
				"delivery_date", "delivery_month", "delivery_year", "weekly", "attributes"},
		},
		Required: []datanorm.CanonicalField{datanorm.FieldMitraName},
		Fields: fieldSet(datanorm.FieldOrderCode, datanorm.FieldClientName, datanorm.FieldProjectName,
			datanorm.FieldHub, datanorm.FieldMitraName, datanorm.FieldDeliveryDate, datanorm.FieldWeekly),
		BatchSize: 1000,
	}
	d.build = func(rec map[string]any) []any {
		deliveryDate := datanorm.OrSentinel(rec[string(datanorm.FieldDeliveryDate)])
		parsed, ok := datanorm.ParseDeliveryDate(deliveryDate)
		return []any{
			uuid.NewString(),
			datanorm.OrSentinel(rec[string(datanorm.FieldOrderCode)]),
			datanorm.OrSentinel(rec[string(datanorm.FieldClientName)]),
			datanorm.OrSentinel(rec[string(datanorm.FieldProjectName)]),
			datanorm.OrSentinel(rec[string(datanorm.FieldHub)]),
			datanorm.OrSentinel(rec[string(datanorm.FieldMitraName)]),
			deliveryDate,
			nullableInt(int(parsed.Month()), ok),
			nullableInt(parsed.Year(), ok),
			datanorm.OrSentinel(rec[string(datanorm.FieldWeekly)]),
			attributesJSON(rec, d.Fields),
		}
	}
	return d
}

func mitrasDataset() *Dataset {
	d := &Dataset{
		Name: domain.DatasetMitras,
		Table: Table{
			Name: "mitras",
			Columns: []string{"id", "full_name", "phone_number", "status", "city",
				"registered_at_raw", "registered_at", "attributes"},
			KeyColumn: "phone_number",
			KeyFold:   true,
		},
		Required: []datanorm.CanonicalField{datanorm.FieldFullName, datanorm.FieldPhoneNumber},
		Fields: fieldSet(datanorm.FieldFullName, datanorm.FieldPhoneNumber, datanorm.FieldStatus,
			datanorm.FieldCity, datanorm.FieldRegisteredAt),
		BatchSize: 1000,
	}
	d.build = func(rec map[string]any) []any {
		status := datanorm.ToString(rec[string(datanorm.FieldStatus)])
		if status == "" {
			status = string(domain.StatusUnknown)
		}
		raw := datanorm.ToString(rec[string(datanorm.FieldRegisteredAt)])
		var registered any
		if t, ok := datanorm.ParseDate(raw); ok {
			registered = t
		}
		return []any{
			uuid.NewString(),
			datanorm.ToString(rec[string(datanorm.FieldFullName)]),
			datanorm.ToString(rec[string(datanorm.FieldPhoneNumber)]),
			status,
			datanorm.OrSentinel(rec[string(datanorm.FieldCity)]),
			raw,
			registered,
			attributesJSON(rec, d.Fields),
		}
	}
	return d
}

func phoneMessagesDataset() *Dataset {
	d := &Dataset{
		Name: domain.DatasetPhoneMessages,
		Table: Table{
			Name:      "phone_messages",
			Columns:   []string{"id", "phone", "message", "attributes"},
			KeyColumn: "phone",
		},
		Required:  []datanorm.CanonicalField{datanorm.FieldPhone, datanorm.FieldMessage},
		Fields:    fieldSet(datanorm.FieldPhone, datanorm.FieldMessage),
		BatchSize: 1000,
	}
	d.build = func(rec map[string]any) []any {
		return []any{
			uuid.NewString(),
			datanorm.ToString(rec[string(datanorm.FieldPhone)]),
			datanorm.ToString(rec[string(datanorm.FieldMessage)]),
			attributesJSON(rec, d.Fields),
		}
	}
	return d
}

func tasksDataset() *Dataset {
	d := &Dataset{
		Name: domain.DatasetTasks,
		Table: Table{
			Name: "tasks",
			Columns: []string{"id", "user_name", "project_name", "city", "final_status", "reply_record",
				"task_date_raw", "task_date", "attributes"},
		},
		Fields: fieldSet(datanorm.FieldUser, datanorm.FieldProjectName, datanorm.FieldCity,
			datanorm.FieldFinalStatus, datanorm.FieldReplyRecord, datanorm.FieldTaskDate),
		BatchSize: 1000,
	}
	d.build = func(rec map[string]any) []any {
		raw := datanorm.ToString(rec[string(datanorm.FieldTaskDate)])
		var date any
		if t, ok := datanorm.ParseDate(raw); ok {
			date = t
		}
		return []any{
			uuid.NewString(),
			datanorm.ToString(rec[string(datanorm.FieldUser)]),
			datanorm.ToString(rec[string(datanorm.FieldProjectName)]),
			datanorm.ToString(rec[string(datanorm.FieldCity)]),
			datanorm.ToString(rec[string(datanorm.FieldFinalStatus)]),
			datanorm.ToString(rec[string(datanorm.FieldReplyRecord)]),
			raw,
			date,
			attributesJSON(rec, d.Fields),
		}
	}
	return d
}
