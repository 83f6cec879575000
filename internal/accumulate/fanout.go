package accumulate

import "rorimport/internal/ror"

// DisplayName picks the record's display name: the entry tagged ror_display,
// else the first name value, else "". It is repeated on every detail row so
// the tables can be read without a join.
func DisplayName(r *ror.Record) string {
	for _, n := range r.Names {
		if hasTag(n.Types, ror.RoleDisplay) {
			return n.Value
		}
	}
	if len(r.Names) > 0 {
		return r.Names[0].Value
	}
	return ""
}

func coreRow(r *ror.Record, id string) []any {
	var location, countryCode any
	if len(r.Locations) > 0 {
		location = nullString(r.Locations[0].Details.Name)
		countryCode = nullString(r.Locations[0].Details.CountryCode)
	}
	return []any{
		id, r.ID, DisplayName(r), r.Status,
		nullIntPtr(r.Established), location, countryCode,
	}
}

// adminRow builds the counter row. Every counter is computed from the same
// row builder that feeds the matching detail table, so the counter always
// equals the number of detail rows emitted for this record.
func adminRow(r *ror.Record, id string) []any {
	names := nameRows(r, id)
	extIDs := externalIDRows(r, id)
	links := linkRows(r, id)
	rels := relationshipRows(r, id)

	var nLabels, nAliases, nAcronyms, nLangCodes int
	for _, row := range names {
		switch row[2] {
		case ror.RoleLabel:
			nLabels++
		case ror.RoleAlias:
			nAliases++
		case ror.RoleAcronym:
			nAcronyms++
		}
		if row[4] != nil {
			nLangCodes++
		}
	}

	var nISNI, nGRID, nFundref, nWikidata int
	for _, row := range extIDs {
		switch row[2] {
		case ror.SchemeISNI:
			nISNI++
		case ror.SchemeGRID:
			nGRID++
		case ror.SchemeFundref:
			nFundref++
		case ror.SchemeWikidata:
			nWikidata++
		}
	}

	var nWikipedia, nWebsite int
	for _, row := range links {
		switch row[2] {
		case ror.LinkWikipedia:
			nWikipedia++
		case ror.LinkWebsite:
			nWebsite++
		}
	}

	var nRel, nPar, nCh, nSuc, nPred int
	for _, row := range rels {
		switch row[2] {
		case ror.RelRelated:
			nRel++
		case ror.RelParent:
			nPar++
		case ror.RelChild:
			nCh++
		case ror.RelSuccessor:
			nSuc++
		case ror.RelPredecessor:
			nPred++
		}
	}

	return []any{
		id, DisplayName(r),
		len(r.Locations), nLabels, nAliases, nAcronyms, len(names), nLangCodes,
		nISNI, nGRID, nFundref, nWikidata,
		nWikipedia, nWebsite,
		len(r.Types),
		nRel, nPar, nCh, nSuc, nPred,
		len(r.Domains),
		r.Admin.Created.Date, r.Admin.Created.SchemaVersion,
		r.Admin.LastModified.Date, r.Admin.LastModified.SchemaVersion,
	}
}

// nameRows emits one row per name entry. The stored role is the first
// non-display tag, so an entry tagged both ror_display and label surfaces as
// a label with is_ror_name set; entries tagged only ror_display keep that tag.
func nameRows(r *ror.Record, id string) [][]any {
	rows := make([][]any, 0, len(r.Names))
	for _, n := range r.Names {
		role := ror.RoleDisplay
		for _, t := range n.Types {
			if t != ror.RoleDisplay {
				role = t
				break
			}
		}
		rows = append(rows, []any{
			id, n.Value, role, hasTag(n.Types, ror.RoleDisplay),
			nullString(n.Lang), nullString(n.Script),
		})
	}
	return rows
}

func locationRows(r *ror.Record, id string) [][]any {
	name := DisplayName(r)
	rows := make([][]any, 0, len(r.Locations))
	for _, l := range r.Locations {
		var geoID any
		if l.GeonamesID != 0 {
			geoID = l.GeonamesID
		}
		rows = append(rows, []any{
			id, name, geoID, nullString(l.Details.Name),
			nullFloatPtr(l.Details.Lat), nullFloatPtr(l.Details.Lng),
			nullString(l.Details.CountryCode), nullString(l.Details.CountryName),
		})
	}
	return rows
}

// externalIDRows emits one row per value of each scheme entry; the preferred
// value is flagged. A preferred value missing from the entry's value list
// still gets its own flagged row.
func externalIDRows(r *ror.Record, id string) [][]any {
	name := DisplayName(r)
	var rows [][]any
	for _, e := range r.ExternalIDs {
		preferredSeen := false
		for _, v := range e.All {
			preferred := v == e.Preferred && e.Preferred != ""
			preferredSeen = preferredSeen || preferred
			rows = append(rows, []any{id, name, e.Type, v, preferred})
		}
		if e.Preferred != "" && !preferredSeen {
			rows = append(rows, []any{id, name, e.Type, e.Preferred, true})
		}
	}
	return rows
}

func linkRows(r *ror.Record, id string) [][]any {
	name := DisplayName(r)
	rows := make([][]any, 0, len(r.Links))
	for _, l := range r.Links {
		rows = append(rows, []any{id, name, l.Type, l.Value})
	}
	return rows
}

func typeRows(r *ror.Record, id string) [][]any {
	name := DisplayName(r)
	rows := make([][]any, 0, len(r.Types))
	for _, t := range r.Types {
		rows = append(rows, []any{id, name, t})
	}
	return rows
}

func relationshipRows(r *ror.Record, id string) [][]any {
	name := DisplayName(r)
	rows := make([][]any, 0, len(r.Relationships))
	for _, rel := range r.Relationships {
		rows = append(rows, []any{
			id, name, rel.Type, ror.ExtractID(rel.ID), rel.Label,
		})
	}
	return rows
}

func domainRows(r *ror.Record, id string) [][]any {
	name := DisplayName(r)
	rows := make([][]any, 0, len(r.Domains))
	for _, d := range r.Domains {
		rows = append(rows, []any{id, name, d})
	}
	return rows
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIntPtr(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloatPtr(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
