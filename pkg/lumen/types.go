package lumen

import (
	"encoding/json"
	"fmt"
)

// Record is one raw result body. The engine never interprets record contents;
// typed decoding belongs to the caller (see Decode).
type Record = json.RawMessage

// Meta carries the pagination metadata returned with every list response.
type Meta struct {
	Count      int    `json:"count"                 yaml:"count"`
	Page       int    `json:"page,omitempty"        yaml:"page,omitempty"`
	PerPage    int    `json:"per_page,omitempty"    yaml:"per_page,omitempty"`
	NextCursor string `json:"next_cursor,omitempty" yaml:"next_cursor,omitempty"`
}

// Group is one aggregate bucket of a group_by response.
type Group struct {
	Key            string `json:"key"              yaml:"key"`
	KeyDisplayName string `json:"key_display_name" yaml:"key_display_name"`
	Count          int    `json:"count"            yaml:"count"`
}

// ListResponse is one page as returned by the API: metadata plus either raw
// records or aggregate groups, never both.
type ListResponse struct {
	Meta    Meta     `json:"meta"               yaml:"meta"`
	Results []Record `json:"results,omitempty"  yaml:"results,omitempty"`
	GroupBy []Group  `json:"group_by,omitempty" yaml:"group_by,omitempty"`
}

// Decode unmarshals raw records into the caller's entity type.
func Decode[T any](records []Record) ([]T, error) {
	out := make([]T, 0, len(records))

	for i, raw := range records {
		var entity T

		err := json.Unmarshal(raw, &entity)
		if err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}

		out = append(out, entity)
	}

	return out, nil
}

// SortDirection orders a sort key ascending or descending.
type SortDirection string

const (
	// SortAsc sorts ascending (the wire default).
	SortAsc SortDirection = "asc"

	// SortDesc sorts descending.
	SortDesc SortDirection = "desc"
)

// SortKey is one field in an ordered sort clause.
type SortKey struct {
	Field     string        `json:"field"     yaml:"field"`
	Direction SortDirection `json:"direction" yaml:"direction"`
}
