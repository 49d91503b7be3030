package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultMarkerField is the payload field that tags records of a run.
const DefaultMarkerField = "dataType"

// DefaultMarkerValue is the marker value used when none is configured.
const DefaultMarkerValue = "entitlements"

// Record is one logical unit of test data.
type Record struct {
	// ID is the caller-assigned logical identifier, "1".."N".
	ID string

	// Payload is the JSON body sent to the store, including id and marker.
	Payload map[string]any
}

// Marker is the predicate that selects exactly the records of one run.
type Marker struct {
	Field string
	Value string
}

// Predicate renders the marker as a query language expression.
func (m Marker) Predicate() string {
	return fmt.Sprintf("select * where %s='%s'", m.Field, strings.ReplaceAll(m.Value, "'", "\\'"))
}

// Validate checks the marker can be rendered into a predicate.
func (m Marker) Validate() error {
	if m.Field == "" {
		return fmt.Errorf("%w: marker field is required", ErrInvalidConfig)
	}
	if m.Value == "" {
		return fmt.Errorf("%w: marker value is required", ErrInvalidConfig)
	}
	return nil
}

// Template is the payload every record is built from.
type Template map[string]any

// DefaultTemplate returns the customer status payload used by the index test.
func DefaultTemplate() Template {
	return Template{
		"type":     "customerstatuses",
		"created":  int64(1454769737888),
		"modified": int64(1454781811473),
		"address": map[string]any{
			"zip":    "35873",
			"city":   "málaga",
			"street": "3430 calle de bravo murillo",
			"state":  "melilla",
		},
		"DOB":                  "787264244",
		"email":                "begoña.caballero29@example.com",
		"firstName":            "Begoña",
		"lastName":             "Caballero",
		"lastSeenDateTime":     int64(1447737158857),
		"locationStatus":       "Entrance",
		"loyaltyAccountNumber": "1234",
		"loyaltyLevel":         "basic",
		"phone":                "966-450-469",
		"profilePictureUrl":    "http://api.randomuser.me/portraits/thumb/women/61.jpg",
		"status":               "Entrance",
		"storeId":              12121,
		"nest1": map[string]any{
			"nest2": map[string]any{
				"nest3": []any{nil, nil, "foo"},
			},
		},
	}
}

// Build returns the record with logical id n. The template is deep-copied so
// records never share nested maps or slices.
func (t Template) Build(n int, marker Marker) Record {
	payload := copyValue(map[string]any(t)).(map[string]any)
	id := strconv.Itoa(n)
	payload["id"] = id
	payload[marker.Field] = marker.Value
	return Record{ID: id, Payload: payload}
}

func copyValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = copyValue(val)
		}
		return out
	case Template:
		return copyValue(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = copyValue(val)
		}
		return out
	default:
		return v
	}
}

// CreatedSet maps store-assigned uuids to the record that was written.
// Only successful writes are present.
type CreatedSet map[string]Record

// MissingRecord is a created record absent from a query result.
type MissingRecord struct {
	UUID string
	ID   string
}

// Missing returns the records whose uuid is not in observed, ordered by
// logical id.
func (c CreatedSet) Missing(observed map[string]struct{}) []MissingRecord {
	var missing []MissingRecord
	for uuid, rec := range c {
		if _, ok := observed[uuid]; !ok {
			missing = append(missing, MissingRecord{UUID: uuid, ID: rec.ID})
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		return lessID(missing[i].ID, missing[j].ID)
	})
	return missing
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}
