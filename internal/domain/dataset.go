package domain

// Dataset names an uploadable collection. The value is the URL segment.
type Dataset string

const (
	DatasetOrders        Dataset = "orders"
	DatasetMeasurements  Dataset = "measurements"
	DatasetShipments     Dataset = "shipments"
	DatasetMitras        Dataset = "mitras"
	DatasetPhoneMessages Dataset = "phone-messages"
	DatasetTasks         Dataset = "tasks"
)

// Datasets lists every uploadable dataset.
var Datasets = []Dataset{
	DatasetOrders,
	DatasetMeasurements,
	DatasetShipments,
	DatasetMitras,
	DatasetPhoneMessages,
	DatasetTasks,
}

// Valid reports whether d is a known dataset.
func (d Dataset) Valid() bool {
	for _, known := range Datasets {
		if d == known {
			return true
		}
	}
	return false
}

// LoadMode selects whether an upload replaces or extends a dataset.
type LoadMode string

const (
	ModeReplace LoadMode = "replace"
	ModeAppend  LoadMode = "append"
)

// Attributes is the opaque bag of uploaded fields that no engine inspects.
type Attributes map[string]any
