package catalog

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/golang/glog"
	"github.com/lib/pq"
)

// NewDBFetcher returns a Fetcher which reads product definitions from a
// Postgres database. queryMaker builds the SELECT for a single product id;
// it must return rows of (id, data) where data is the product JSON.
func NewDBFetcher(db *sql.DB, queryMaker func() string) Fetcher {
	if db == nil {
		glog.Fatalf("The Postgres product fetcher requires a database connection. Please report this as a bug.")
	}
	if queryMaker == nil {
		glog.Fatalf("The Postgres product fetcher requires a queryMaker function. Please report this as a bug.")
	}
	return &dbFetcher{
		db:         db,
		queryMaker: queryMaker,
	}
}

// dbFetcher fetches products from a database. This should be instantiated
// through the NewDBFetcher() function.
type dbFetcher struct {
	db         *sql.DB
	queryMaker func() (query string)
}

func (fetcher *dbFetcher) FetchProduct(ctx context.Context, productID string) (*ProductDefinition, error) {
	query := fetcher.queryMaker()

	rows, err := fetcher.db.QueryContext(ctx, query, productID)
	if err != nil {
		if err != context.DeadlineExceeded && !isBadInput(err) {
			glog.Errorf("Error reading from product DB: %s", err.Error())
		}
		if isBadInput(err) {
			return nil, &NotFoundError{ID: productID}
		}
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			glog.Errorf("error closing DB connection: %v", err)
		}
	}()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		var product ProductDefinition
		if err := json.Unmarshal(data, &product); err != nil {
			glog.Errorf("Postgres result set with id=%s has invalid product JSON: %v", id, err)
			return nil, err
		}
		if product.ProductID == "" {
			product.ProductID = id
		}
		return &product, rows.Err()
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nil, &NotFoundError{ID: productID}
}

// Returns true if the Postgres error signifies some sort of bad user input,
// and false otherwise.
//
// These errors are documented here: https://www.postgresql.org/docs/9.3/static/errcodes-appendix.html
func isBadInput(err error) bool {
	// Postgres queries fail outright if a non-UUID is passed into a query for
	// a UUID column. Buyers can send arbitrary product id strings, so treat
	// that class of failure as a plain not-found.
	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == "22P02" {
		return true
	}
	return false
}
