// Package ror defines the typed model for one record of a ROR registry
// snapshot and the decoding of the full snapshot array.
//
// The source file is a single JSON array of organization records. Records are
// decoded strictly enough to catch shape violations (a missing or non-string
// id) but tolerantly enough to survive schema growth: unknown fields are
// ignored, absent optional sub-structures decode to empty collections.
package ror

import (
	"encoding/json"
	"fmt"
)

// Record is one decoded element of the registry snapshot array.
type Record struct {
	ID            string         `json:"id"`
	Names         []Name         `json:"names"`
	Status        string         `json:"status"`
	Established   *int           `json:"established"`
	Locations     []Location     `json:"locations"`
	ExternalIDs   []ExternalID   `json:"external_ids"`
	Links         []Link         `json:"links"`
	Types         []string       `json:"types"`
	Relationships []Relationship `json:"relationships"`
	Domains       []string       `json:"domains"`
	Admin         Admin          `json:"admin"`
}

// Name is one name entry. Types carries the role tags (ror_display, label,
// alias, acronym); an entry can carry more than one.
type Name struct {
	Value  string   `json:"value"`
	Types  []string `json:"types"`
	Lang   string   `json:"lang"`
	Script string   `json:"script"`
}

// Name role tags as they appear in the source data.
const (
	RoleDisplay = "ror_display"
	RoleLabel   = "label"
	RoleAlias   = "alias"
	RoleAcronym = "acronym"
)

// Location is one geocoded location entry.
type Location struct {
	GeonamesID int64           `json:"geonames_id"`
	Details    LocationDetails `json:"geonames_details"`
}

type LocationDetails struct {
	Name        string   `json:"name"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
	CountryCode string   `json:"country_code"`
	CountryName string   `json:"country_name"`
}

// ExternalID is one external identifier entry. All holds every value for the
// scheme; Preferred names the one the registry considers canonical (may be
// empty, and may not appear in All for dirty records).
type ExternalID struct {
	Type      string   `json:"type"`
	All       []string `json:"all"`
	Preferred string   `json:"preferred"`
}

// External identifier scheme tags counted individually by the admin table.
const (
	SchemeISNI     = "isni"
	SchemeGRID     = "grid"
	SchemeFundref  = "fundref"
	SchemeWikidata = "wikidata"
)

// Link is one link entry (kind tag + URL).
type Link struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Link kind tags counted individually by the admin table.
const (
	LinkWebsite   = "website"
	LinkWikipedia = "wikipedia"
)

// Relationship is one relationship entry. ID is the related record's full
// URI-form identifier.
type Relationship struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Relationship kind tags.
const (
	RelParent      = "parent"
	RelChild       = "child"
	RelRelated     = "related"
	RelSuccessor   = "successor"
	RelPredecessor = "predecessor"
)

// Admin carries the registry's own bookkeeping for a record.
type Admin struct {
	Created      Stamp `json:"created"`
	LastModified Stamp `json:"last_modified"`
}

// Stamp is a date plus the schema version the record was written under.
type Stamp struct {
	Date          string `json:"date"`
	SchemaVersion string `json:"schema_version"`
}

// DecodeError reports a source document that is malformed or violates a
// required shape invariant. Index is the array index of the offending record,
// or -1 when the array itself could not be parsed. Field names the offending
// field path when known.
type DecodeError struct {
	Index int
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("decode source array: %v", e.Err)
	case e.Field != "":
		return fmt.Sprintf("decode record %d: field %q: %v", e.Index, e.Field, e.Err)
	default:
		return fmt.Sprintf("decode record %d: %v", e.Index, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeRecords parses the full snapshot into an ordered record sequence.
//
// The whole document must parse before anything is returned; a failure at any
// element yields a *DecodeError and no records. The two-step decode (raw
// elements first, typed records second) exists so the error can name the
// array index of the record that broke.
func DecodeRecords(data []byte) ([]Record, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	out := make([]Record, 0, len(raw))
	for i, el := range raw {
		var r Record
		if err := json.Unmarshal(el, &r); err != nil {
			return nil, &DecodeError{Index: i, Field: fieldPath(err), Err: err}
		}
		if r.ID == "" {
			return nil, &DecodeError{Index: i, Field: "id", Err: fmt.Errorf("identifier is missing or empty")}
		}
		out = append(out, r)
	}
	return out, nil
}

// fieldPath extracts the offending field path from a type-mismatch error,
// when the stdlib decoder provides one.
func fieldPath(err error) string {
	if te, ok := err.(*json.UnmarshalTypeError); ok {
		return te.Field
	}
	return ""
}
