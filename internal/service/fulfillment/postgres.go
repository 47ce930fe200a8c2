package fulfillment

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"

	"ebook-storefront/internal/db"
	cartrepo "ebook-storefront/internal/repository/cart"
	entitlementrepo "ebook-storefront/internal/repository/entitlement"
	orderrepo "ebook-storefront/internal/repository/order"
)

type postgresUnitOfWork struct {
	conn   db.DBTX
	logger *log.Logger
}

// NewPostgresUnitOfWork binds the order, entitlement and cart repositories to
// a single Postgres transaction per unit of work.
func NewPostgresUnitOfWork(conn db.DBTX, logger *log.Logger) UnitOfWork {
	return &postgresUnitOfWork{conn: conn, logger: logger}
}

func (u *postgresUnitOfWork) WithinTx(ctx context.Context, fn func(Stores) error) error {
	return db.InTx(ctx, u.conn, func(tx pgx.Tx) error {
		return fn(Stores{
			Orders:       orderrepo.NewPostgres(tx, u.logger),
			Entitlements: entitlementrepo.NewPostgres(tx, u.logger),
			Carts:        cartrepo.NewPostgres(tx, u.logger),
		})
	})
}
