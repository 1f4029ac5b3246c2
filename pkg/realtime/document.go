package realtime

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chemtech-ke/pharmos-backend/pkg/db/models"
)

// RemoteDocument is the decode boundary between raw document rows and typed
// collection records. Field accessors never fail: absent or malformed values
// fall back to the zero value so one bad document cannot poison a snapshot.
type RemoteDocument struct {
	Collection string
	Key        string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	fields map[string]any
}

// FromModel decodes a stored row. Rows whose data is not a JSON object are
// treated as empty documents.
func FromModel(row models.Document) RemoteDocument {
	doc := RemoteDocument{
		Collection: row.Collection,
		Key:        row.Key,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
		fields:     map[string]any{},
	}
	if len(row.Data) > 0 {
		var fields map[string]any
		if err := json.Unmarshal(row.Data, &fields); err == nil && fields != nil {
			doc.fields = fields
		}
	}
	return doc
}

// NewRemoteDocument builds a document from already-decoded fields. Used by
// tests and by services that re-decode documents they just wrote.
func NewRemoteDocument(collection, key string, fields map[string]any) RemoteDocument {
	if fields == nil {
		fields = map[string]any{}
	}
	return RemoteDocument{Collection: collection, Key: key, fields: fields}
}

// Has reports whether the field is present at all.
func (d RemoteDocument) Has(field string) bool {
	_, ok := d.fields[field]
	return ok
}

// String returns the field as a string, or "" when absent or not a string.
func (d RemoteDocument) String(field string) string {
	if v, ok := d.fields[field].(string); ok {
		return v
	}
	return ""
}

// Bool returns the field as a bool, or false when absent or not a bool.
func (d RemoteDocument) Bool(field string) bool {
	if v, ok := d.fields[field].(bool); ok {
		return v
	}
	return false
}

// Int64 returns the field as an integer. JSON numbers arrive as float64;
// numeric strings are parsed as a fallback. Anything else decodes to 0.
func (d RemoteDocument) Int64(field string) int64 {
	return d.Decimal(field).IntPart()
}

// Decimal returns the field as an exact decimal. Accepts JSON numbers and
// numeric strings; anything else decodes to zero.
func (d RemoteDocument) Decimal(field string) decimal.Decimal {
	switch v := d.fields[field].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		if parsed, err := decimal.NewFromString(v.String()); err == nil {
			return parsed
		}
	case string:
		if parsed, err := decimal.NewFromString(v); err == nil {
			return parsed
		}
	}
	return decimal.Zero
}

// Time returns the field parsed as RFC 3339, or the zero time when absent or
// malformed.
func (d RemoteDocument) Time(field string) time.Time {
	raw, ok := d.fields[field].(string)
	if !ok {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// StringSlice returns the field as a list of strings, skipping non-string
// elements. Absent or malformed fields decode to nil.
func (d RemoteDocument) StringSlice(field string) []string {
	raw, ok := d.fields[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Objects returns the field as a list of nested documents. Used for order
// line items stored as arrays of objects.
func (d RemoteDocument) Objects(field string) []RemoteDocument {
	raw, ok := d.fields[field].([]any)
	if !ok {
		return nil
	}
	out := make([]RemoteDocument, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, RemoteDocument{Collection: d.Collection, Key: d.Key, fields: obj})
	}
	return out
}

// Fields returns a shallow copy of the decoded field map.
func (d RemoteDocument) Fields() map[string]any {
	out := make(map[string]any, len(d.fields))
	for k, v := range d.fields {
		out[k] = v
	}
	return out
}
