// Package catalogdb persists the storefront catalog with bun and answers the
// lookups cache tag handlers need.
package catalogdb

import (
	"context"
	"database/sql"
	"strings"

	perr "github.com/jmgilman/go/errors"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-output-cache/entity"
)

const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Open connects to dsn with the given dialect and registers the join models.
func Open(dialect, dsn string) (*bun.DB, error) {
	var db *bun.DB
	switch strings.ToLower(dialect) {
	case DialectSQLite, "sqlite3", "":
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, perr.Wrap(err, perr.CodeDatabase, "open sqlite")
		}
		// a single connection keeps in-memory databases alive and avoids
		// SQLITE_BUSY on concurrent writers
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DialectPostgres, "pg":
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, perr.Wrap(err, perr.CodeDatabase, "open postgres")
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, perr.Newf(perr.CodeInvalidConfig, "unsupported database dialect %q", dialect)
	}

	RegisterModels(db)
	return db, nil
}

// RegisterModels registers the m2m join tables with db.
func RegisterModels(db *bun.DB) {
	db.RegisterModel(
		(*entity.ProductTagMapping)(nil),
		(*entity.DiscountCategoryMapping)(nil),
		(*entity.DiscountProductMapping)(nil),
		(*entity.DiscountManufacturerMapping)(nil),
	)
}

// Models lists every table in creation order.
func Models() []any {
	return []any{
		(*entity.Product)(nil),
		(*entity.Category)(nil),
		(*entity.Manufacturer)(nil),
		(*entity.ProductCategory)(nil),
		(*entity.ProductManufacturer)(nil),
		(*entity.ProductTag)(nil),
		(*entity.ProductTagMapping)(nil),
		(*entity.SpecificationAttribute)(nil),
		(*entity.SpecificationAttributeOption)(nil),
		(*entity.ProductSpecificationAttribute)(nil),
		(*entity.ProductVariantAttribute)(nil),
		(*entity.ProductVariantAttributeValue)(nil),
		(*entity.ProductBundleItem)(nil),
		(*entity.TierPrice)(nil),
		(*entity.ProductMediaFile)(nil),
		(*entity.Discount)(nil),
		(*entity.DiscountCategoryMapping)(nil),
		(*entity.DiscountProductMapping)(nil),
		(*entity.DiscountManufacturerMapping)(nil),
		(*entity.Topic)(nil),
		(*entity.Menu)(nil),
		(*entity.MenuItem)(nil),
		(*entity.BlogPost)(nil),
		(*entity.BlogComment)(nil),
		(*entity.NewsItem)(nil),
		(*entity.NewsComment)(nil),
		(*entity.LocalizedProperty)(nil),
		(*entity.Setting)(nil),
	}
}

// CreateSchema creates all catalog tables that do not exist yet.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return perr.Wrapf(err, perr.CodeDatabase, "create table for %T", m)
		}
	}
	return nil
}
