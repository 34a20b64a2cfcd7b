package inmemory

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx/blastxml"
	"github.com/letmevibethatforyou/blastx/store"
)

// LoadStore adds the hits of every table in st and returns the number of
// tables loaded.
func (c *Catalog) LoadStore(ctx context.Context, st store.Store) (int, error) {
	ids, err := st.ListTables(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		table, err := st.GetTable(ctx, id)
		if err != nil {
			return 0, err
		}
		rows, err := blastxml.ParseTable(strings.NewReader(table))
		if err != nil {
			return 0, errors.Wrapf(err, "table for %s", id)
		}
		c.AddRows(id, rows)
	}
	return len(ids), nil
}
