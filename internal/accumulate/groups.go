package accumulate

import (
	"context"

	"rorimport/internal/ror"
	"rorimport/internal/storage"
)

type buffer struct {
	table   string
	columns []string
	rows    [][]any
}

func (b *buffer) flush(ctx context.Context, ins storage.Inserter) error {
	if len(b.rows) == 0 {
		return nil
	}
	_, err := ins.InsertRows(ctx, b.table, b.columns, b.rows)
	return err
}

func (b *buffer) reset() { b.rows = b.rows[:0] }

// Core buffers the two singleton tables: one core_data and one admin_data row
// per record.
type Core struct {
	coreData  buffer
	adminData buffer
}

func NewCore(capacity int) *Core {
	return &Core{
		coreData:  buffer{table: TableCoreData, columns: coreDataColumns, rows: make([][]any, 0, capacity)},
		adminData: buffer{table: TableAdminData, columns: adminDataColumns, rows: make([][]any, 0, capacity)},
	}
}

func (g *Core) Add(r *ror.Record, id string) {
	g.coreData.rows = append(g.coreData.rows, coreRow(r, id))
	g.adminData.rows = append(g.adminData.rows, adminRow(r, id))
}

// Len reports the number of buffered records.
func (g *Core) Len() int { return len(g.coreData.rows) }

// Flush writes the buffered rows and clears the buffers. Buffers are cleared
// even when a write fails so a retried cadence never re-inserts rows that may
// already be durable.
func (g *Core) Flush(ctx context.Context, ins storage.Inserter) error {
	defer g.coreData.reset()
	defer g.adminData.reset()
	if err := g.coreData.flush(ctx, ins); err != nil {
		return err
	}
	return g.adminData.flush(ctx, ins)
}

// Required buffers the collections every well-formed record carries: names
// and organization types.
type Required struct {
	names buffer
	types buffer
}

func NewRequired(capacity int) *Required {
	return &Required{
		names: buffer{table: TableNames, columns: namesColumns, rows: make([][]any, 0, capacity)},
		types: buffer{table: TableType, columns: typeColumns, rows: make([][]any, 0, capacity)},
	}
}

func (g *Required) Add(r *ror.Record, id string) {
	g.names.rows = append(g.names.rows, nameRows(r, id)...)
	g.types.rows = append(g.types.rows, typeRows(r, id)...)
}

func (g *Required) Len() int { return len(g.names.rows) + len(g.types.rows) }

func (g *Required) Flush(ctx context.Context, ins storage.Inserter) error {
	defer g.names.reset()
	defer g.types.reset()
	if err := g.names.flush(ctx, ins); err != nil {
		return err
	}
	return g.types.flush(ctx, ins)
}

// NonRequired buffers the collections a record may lack entirely: locations,
// external ids, links, relationships and domains.
type NonRequired struct {
	locations     buffer
	externalIDs   buffer
	links         buffer
	relationships buffer
	domains       buffer
}

func NewNonRequired(capacity int) *NonRequired {
	return &NonRequired{
		locations:     buffer{table: TableLocations, columns: locationsColumns, rows: make([][]any, 0, capacity)},
		externalIDs:   buffer{table: TableExternalIDs, columns: externalIDsColumns, rows: make([][]any, 0, capacity)},
		links:         buffer{table: TableLinks, columns: linksColumns, rows: make([][]any, 0, capacity)},
		relationships: buffer{table: TableRelationships, columns: relationshipsColumns, rows: make([][]any, 0, capacity)},
		domains:       buffer{table: TableDomains, columns: domainsColumns, rows: make([][]any, 0, capacity)},
	}
}

func (g *NonRequired) Add(r *ror.Record, id string) {
	g.locations.rows = append(g.locations.rows, locationRows(r, id)...)
	g.externalIDs.rows = append(g.externalIDs.rows, externalIDRows(r, id)...)
	g.links.rows = append(g.links.rows, linkRows(r, id)...)
	g.relationships.rows = append(g.relationships.rows, relationshipRows(r, id)...)
	g.domains.rows = append(g.domains.rows, domainRows(r, id)...)
}

func (g *NonRequired) Len() int {
	return len(g.locations.rows) + len(g.externalIDs.rows) + len(g.links.rows) +
		len(g.relationships.rows) + len(g.domains.rows)
}

func (g *NonRequired) Flush(ctx context.Context, ins storage.Inserter) error {
	buffers := []*buffer{&g.locations, &g.externalIDs, &g.links, &g.relationships, &g.domains}
	defer func() {
		for _, b := range buffers {
			b.reset()
		}
	}()
	for _, b := range buffers {
		if err := b.flush(ctx, ins); err != nil {
			return err
		}
	}
	return nil
}
