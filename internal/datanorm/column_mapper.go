package datanorm

import (
	"strings"
	"unicode"
)

// CanonicalField is a normalized field name used across all upload sources.
type CanonicalField string

const (
	FieldOrderCode    CanonicalField = "order_code"
	FieldClientName   CanonicalField = "client_name"
	FieldProjectName  CanonicalField = "project_name"
	FieldHub          CanonicalField = "hub"
	FieldMitraName    CanonicalField = "mitra_name"
	FieldDeliveryDate CanonicalField = "delivery_date"
	FieldWeekly       CanonicalField = "weekly"
	FieldOrderNo      CanonicalField = "order_no"
	FieldHubName      CanonicalField = "hub_name"
	FieldDriverName   CanonicalField = "driver_name"
	FieldWeight       CanonicalField = "weight"
	FieldDistanceKm   CanonicalField = "distance_km"
	FieldFullName     CanonicalField = "full_name"
	FieldPhoneNumber  CanonicalField = "phone_number"
	FieldStatus       CanonicalField = "status"
	FieldCity         CanonicalField = "city"
	FieldRegisteredAt CanonicalField = "registered_at"
	FieldPhone        CanonicalField = "phone"
	FieldMessage      CanonicalField = "message"
	FieldUser         CanonicalField = "user"
	FieldFinalStatus  CanonicalField = "final_status"
	FieldReplyRecord  CanonicalField = "reply_record"
	FieldTaskDate     CanonicalField = "task_date"
)

// columnAliases maps folded header names (lowercase, no spaces, dashes or
// underscores) to canonical fields.
var columnAliases = map[string]CanonicalField{
	"ordercode":   FieldOrderCode,
	"ordercodes":  FieldOrderCode,
	"awb":         FieldOrderCode,
	"clientname":  FieldClientName,
	"client":      FieldClientName,
	"projectname": FieldProjectName,
	"project":     FieldProjectName,
	"hub":         FieldHub,
	"mitraname":   FieldMitraName,
	"mitra":       FieldMitraName,
	"ridername":   FieldMitraName,

	"deliverydate": FieldDeliveryDate,
	"weekly":       FieldWeekly,
	"week":         FieldWeekly,

	"orderno":     FieldOrderNo,
	"ordernumber": FieldOrderNo,
	"hubname":     FieldHubName,
	"drivername":  FieldDriverName,
	"driver":      FieldDriverName,
	"weight":      FieldWeight,
	"weightkg":    FieldWeight,
	"berat":       FieldWeight,
	"distance":    FieldDistanceKm,
	"distancekm":  FieldDistanceKm,
	"jarak":       FieldDistanceKm,

	"fullname":     FieldFullName,
	"name":         FieldFullName,
	"nama":         FieldFullName,
	"phonenumber":  FieldPhoneNumber,
	"nohp":         FieldPhoneNumber,
	"mitrastatus":  FieldStatus,
	"status":       FieldStatus,
	"city":         FieldCity,
	"kota":         FieldCity,
	"registeredat": FieldRegisteredAt,
	"registered":   FieldRegisteredAt,

	"phone":   FieldPhone,
	"message": FieldMessage,
	"pesan":   FieldMessage,

	"user":        FieldUser,
	"username":    FieldUser,
	"pic":         FieldUser,
	"finalstatus": FieldFinalStatus,
	"replyrecord": FieldReplyRecord,
	"reply":       FieldReplyRecord,
	"date":        FieldTaskDate,
	"taskdate":    FieldTaskDate,
	"tanggal":     FieldTaskDate,
}

func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		if r == ' ' || r == '_' || r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalKey maps an uploaded field name to its canonical form. Unknown
// names are converted to snake_case so that the attribute bag stays uniform.
func CanonicalKey(raw string) string {
	if f, ok := columnAliases[foldHeader(raw)]; ok {
		return string(f)
	}
	return snakeCase(raw)
}

// CanonicalKeyFor is CanonicalKey restricted to a dataset's own fields:
// aliases that resolve outside allowed fall back to snake_case. This keeps
// "status" from meaning a roster status on a shipment row, for example.
func CanonicalKeyFor(raw string, allowed map[CanonicalField]bool) string {
	if f, ok := columnAliases[foldHeader(raw)]; ok && allowed[f] {
		return string(f)
	}
	return snakeCase(raw)
}

func snakeCase(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	prevUnderscore := true
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if !prevUnderscore && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// ColumnMapping maps spreadsheet column indices to canonical keys.
type ColumnMapping struct {
	Keys     []string // canonical key per column; "" for skipped columns
	RawNames []string
}

// MapColumns builds a mapping from a header row. Empty headers are skipped.
func MapColumns(headers []string) *ColumnMapping {
	m := &ColumnMapping{
		Keys:     make([]string, len(headers)),
		RawNames: headers,
	}
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		m.Keys[i] = CanonicalKey(h)
	}
	return m
}

// Has reports whether some column maps to field.
func (m *ColumnMapping) Has(field CanonicalField) bool {
	for _, k := range m.Keys {
		if k == string(field) {
			return true
		}
	}
	return false
}

// Record converts one spreadsheet row into a raw record. Returns nil when
// every mapped cell is empty, so trailing blank rows can be dropped.
func (m *ColumnMapping) Record(row []string) map[string]any {
	rec := make(map[string]any, len(m.Keys))
	empty := true
	for i, key := range m.Keys {
		if key == "" {
			continue
		}
		val := ""
		if i < len(row) {
			val = strings.TrimSpace(row[i])
		}
		if val != "" {
			empty = false
		}
		rec[key] = val
	}
	if empty {
		return nil
	}
	return rec
}
