// Package accumulate turns decoded registry records into batched rows for the
// nine normalized tables.
//
// Buffers are grouped the way the tables relate to the source record: Core
// (one row per record, always), Required (collections every well-formed record
// has), and NonRequired (collections that may be absent). Row expansion is a
// pure mapping from a record to per-table rows, so the admin counters are
// derived from the very row slices the detail tables receive and cannot drift
// from them.
package accumulate

// Target table names, in the order the import summary reports them.
const (
	TableCoreData      = "core_data"
	TableAdminData     = "admin_data"
	TableNames         = "names"
	TableLocations     = "locations"
	TableExternalIDs   = "external_ids"
	TableLinks         = "links"
	TableType          = "type"
	TableRelationships = "relationships"
	TableDomains       = "domains"
)

// AllTables lists every target table in summary order.
func AllTables() []string {
	return []string{
		TableCoreData,
		TableAdminData,
		TableNames,
		TableLocations,
		TableExternalIDs,
		TableLinks,
		TableType,
		TableRelationships,
		TableDomains,
	}
}

var (
	coreDataColumns = []string{
		"id", "ror_full_id", "ror_name", "status", "established",
		"location", "country_code",
	}

	adminDataColumns = []string{
		"id", "ror_name",
		"n_locs", "n_labels", "n_aliases", "n_acronyms", "n_names", "n_langcodes",
		"n_isni", "n_grid", "n_fundref", "n_wikidata",
		"n_wikipaedia", "n_website",
		"n_types",
		"n_relrels", "n_parrels", "n_chrels", "n_sucrels", "n_predrels",
		"n_doms",
		"created", "cr_schema", "last_modified", "lm_schema",
	}

	namesColumns = []string{
		"id", "value", "name_type", "is_ror_name", "lang_code", "script_code",
	}

	locationsColumns = []string{
		"id", "ror_name", "geonames_id", "geonames_name",
		"lat", "lng", "country_code", "country_name",
	}

	externalIDsColumns = []string{
		"id", "ror_name", "id_type", "id_value", "is_preferred",
	}

	linksColumns = []string{"id", "ror_name", "link_type", "link"}

	typeColumns = []string{"id", "ror_name", "org_type"}

	relationshipsColumns = []string{
		"id", "ror_name", "rel_type", "related_id", "related_name",
	}

	domainsColumns = []string{"id", "ror_name", "domain"}
)
