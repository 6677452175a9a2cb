package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/port"
)

// MySQLSchema is the table layout MySQLAdapter expects.
const MySQLSchema = `
CREATE TABLE IF NOT EXISTS stores (
	user_id    BIGINT       NOT NULL,
	email      VARCHAR(320) NOT NULL,
	products   JSON         NOT NULL,
	version    BIGINT       NOT NULL DEFAULT 0,
	updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, email)
)`

// productList stores a product slice in a JSON column.
type productList []domain.Product

func (p productList) Value() (driver.Value, error) {
	if p == nil {
		p = productList{}
	}
	b, err := json.Marshal([]domain.Product(p))
	if err != nil {
		return nil, fmt.Errorf("encode products: %w", err)
	}
	return b, nil
}

func (p *productList) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*p = productList{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("decode products: unsupported type %T", src)
	}
	var out []domain.Product
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("decode products: %w", err)
	}
	if out == nil {
		out = []domain.Product{}
	}
	*p = out
	return nil
}

type storeRow struct {
	UserID   int64       `db:"user_id"`
	Email    string      `db:"email"`
	Products productList `db:"products"`
	Version  int64       `db:"version"`
}

type MySQLAdapter struct {
	db *sqlx.DB
}

func NewMySQLAdapter(db *sqlx.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, MySQLSchema); err != nil {
		return fmt.Errorf("create stores table: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Provision(ctx context.Context, owner domain.Owner) error {
	owner = owner.Normalized()
	_, err := m.db.ExecContext(ctx, `
		INSERT IGNORE INTO stores (user_id, email, products, version)
		VALUES (?, ?, '[]', 0)`,
		owner.UserID, owner.Email,
	)
	if err != nil {
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) FindByOwner(ctx context.Context, owner domain.Owner) (*domain.Store, error) {
	var row storeRow
	err := m.db.GetContext(ctx, &row, `
		SELECT user_id, email, products, version
		FROM stores WHERE user_id = ? AND email = ?`,
		owner.UserID, domain.NormalizeEmail(owner.Email),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	return &domain.Store{
		Owner:    domain.Owner{UserID: row.UserID, Email: row.Email},
		Products: []domain.Product(row.Products),
		Version:  row.Version,
	}, nil
}

func (m *MySQLAdapter) ReplaceProducts(ctx context.Context, owner domain.Owner, products []domain.Product, expectedVersion int64) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE stores
		SET products = ?, version = version + 1
		WHERE user_id = ? AND email = ? AND version = ?`,
		productList(products), owner.UserID, domain.NormalizeEmail(owner.Email), expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update products: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return port.ErrVersionConflict
	}
	return nil
}
