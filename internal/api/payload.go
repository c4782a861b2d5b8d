package api

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/njbennett/changepoll/internal/model"
)

// Collection is the normalized form of one endpoint's XML payload: an
// ordered sequence of entity records keyed by their singular kind.
type Collection struct {
	// Name is the plural collection name from the document root
	// (e.g., "people").
	Name string

	// Kind is the singular entity kind taken from the record elements
	// (e.g., "person"). Empty when the payload carried no records.
	Kind string

	// Records preserves the remote ordering.
	Records []model.RawEntity
}

// Wire shapes. The remote format encodes every field as a single-element
// wrapper: <person><id type="integer">42</id>...</person>. Decoding
// flattens each record into a field map and lifts the identifier and
// creation timestamp; everything else stays opaque.
type xmlCollection struct {
	XMLName xml.Name
	Records []xmlRecord `xml:",any"`
}

type xmlRecord struct {
	XMLName xml.Name
	Fields  []xmlField `xml:",any"`
}

type xmlField struct {
	XMLName xml.Name
	Nil     string `xml:"nil,attr"`
	Value   string `xml:",chardata"`
}

// Timestamp layouts accepted for created-at fields, in order of preference.
var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
}

// ParseCollection decodes one endpoint's XML payload.
func ParseCollection(data []byte) (*Collection, error) {
	var doc xmlCollection
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode collection xml: %w", err)
	}
	if doc.XMLName.Local == "" {
		return nil, fmt.Errorf("collection payload has no root element")
	}

	col := &Collection{Name: doc.XMLName.Local}

	for _, rec := range doc.Records {
		if col.Kind == "" {
			col.Kind = rec.XMLName.Local
		}

		entity := model.RawEntity{
			Kind:   rec.XMLName.Local,
			Fields: make(map[string]string, len(rec.Fields)),
		}

		for _, f := range rec.Fields {
			if f.Nil == "true" {
				continue
			}
			name := f.XMLName.Local
			value := strings.TrimSpace(f.Value)
			entity.Fields[name] = value

			switch name {
			case "id":
				entity.ID = value
			case "created-at", "created_at":
				if ts, ok := parseCreatedAt(value); ok {
					entity.CreatedAt = &ts
				}
			}
		}

		col.Records = append(col.Records, entity)
	}

	return col, nil
}

// parseCreatedAt parses a creation timestamp, tolerating the layout drift
// seen across endpoint versions. Unparseable values are dropped rather than
// failing the record; the timestamp is only a classification heuristic.
func parseCreatedAt(s string) (time.Time, bool) {
	for _, layout := range createdAtLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
