package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/customer-import/internal/domain"
	"github.com/ignite/customer-import/internal/ingest"
)

// insertChunkRows bounds the number of rows per INSERT statement so a
// maximum-size batch stays under the Postgres bind-parameter limit.
const insertChunkRows = 500

// commitChannel is the pg_notify channel fired after every committed
// batch mutation; the composition root bridges it to the progress
// broker's recent-customers cache.
const commitChannel = "customer_committed"

// CustomerRepo implements ingest.CustomerRepo against PostgreSQL.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, customer_id, first_name, last_name, email, company, city, country,
       phone1, phone2, website, about_customer, subscription_date, created_at, updated_at`

func scanCustomer(scan func(dest ...any) error) (domain.Customer, error) {
	var c domain.Customer
	var subDate sql.NullTime
	err := scan(
		&c.ID, &c.CustomerID, &c.FirstName, &c.LastName, &c.Email, &c.Company,
		&c.City, &c.Country, &c.Phone1, &c.Phone2, &c.Website, &c.AboutCustomer,
		&subDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return c, err
	}
	if subDate.Valid {
		c.SubscriptionDate = &subDate.Time
	}
	return c, nil
}

func subscriptionValue(c *domain.Customer) any {
	if c.SubscriptionDate == nil {
		return nil
	}
	return *c.SubscriptionDate
}

func (r *CustomerRepo) ExistingIDs(ctx context.Context, customerIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(customerIDs))
	if len(customerIDs) == 0 {
		return existing, nil
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id FROM customers WHERE customer_id = ANY($1)
	`, pq.Array(customerIDs))
	if err != nil {
		return nil, fmt.Errorf("probe existing customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan existing customer id: %w", err)
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

// BulkInsert inserts new rows inside one transaction, ignoring
// duplicate-key conflicts as the safety net for overlapping resume
// windows. Statements are chunked to stay under the bind-parameter limit;
// the transaction keeps the whole insert set atomic.
func (r *CustomerRepo) BulkInsert(ctx context.Context, customers []domain.Customer) (int, error) {
	if len(customers) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for start := 0; start < len(customers); start += insertChunkRows {
		end := start + insertChunkRows
		if end > len(customers) {
			end = len(customers)
		}
		chunk := customers[start:end]

		placeholders := make([]string, 0, len(chunk))
		args := make([]any, 0, len(chunk)*12)
		for i, c := range chunk {
			base := i * 12
			placeholders = append(placeholders, fmt.Sprintf(
				"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,NOW(),NOW())",
				base+1, base+2, base+3, base+4, base+5, base+6,
				base+7, base+8, base+9, base+10, base+11, base+12,
			))
			args = append(args,
				c.CustomerID, c.FirstName, c.LastName, c.Email, c.Company, c.City,
				c.Country, c.Phone1, c.Phone2, c.Website, c.AboutCustomer, subscriptionValue(&c),
			)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO customers
				(customer_id, first_name, last_name, email, company, city, country,
				 phone1, phone2, website, about_customer, subscription_date,
				 created_at, updated_at)
			VALUES `+strings.Join(placeholders, ",")+`
			ON CONFLICT (customer_id) DO NOTHING
		`, args...)
		if err != nil {
			return 0, fmt.Errorf("bulk insert customers: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, commitChannel, fmt.Sprintf("%d", inserted)); err != nil {
		return 0, fmt.Errorf("notify commit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk insert: %w", err)
	}
	return inserted, nil
}

// BulkUpdate updates existing rows by customer_id inside one transaction:
// the batch is fully applied or fully rolled back.
func (r *CustomerRepo) BulkUpdate(ctx context.Context, customers []domain.Customer) (int, error) {
	if len(customers) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE customers
		SET first_name = $2, last_name = $3, email = $4, company = $5, city = $6,
		    country = $7, phone1 = $8, phone2 = $9, website = $10,
		    about_customer = $11, subscription_date = $12, updated_at = NOW()
		WHERE customer_id = $1
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare bulk update: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for i := range customers {
		c := &customers[i]
		res, err := stmt.ExecContext(ctx,
			c.CustomerID, c.FirstName, c.LastName, c.Email, c.Company, c.City,
			c.Country, c.Phone1, c.Phone2, c.Website, c.AboutCustomer, subscriptionValue(c),
		)
		if err != nil {
			return 0, fmt.Errorf("update customer %s: %w", c.CustomerID, err)
		}
		n, _ := res.RowsAffected()
		updated += int(n)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, commitChannel, fmt.Sprintf("%d", updated)); err != nil {
		return 0, fmt.Errorf("notify commit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk update: %w", err)
	}
	return updated, nil
}

func (r *CustomerRepo) RecentSince(ctx context.Context, since time.Time, limit int) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE updated_at >= $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recent customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CustomerRepo) Get(ctx context.Context, customerID string) (*domain.Customer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE customer_id = $1
	`, customerID)
	c, err := scanCustomer(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ingest.ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

func (r *CustomerRepo) List(ctx context.Context, limit, offset int) ([]domain.Customer, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		ORDER BY customer_id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var out []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *CustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO customers
			(customer_id, first_name, last_name, email, company, city, country,
			 phone1, phone2, website, about_customer, subscription_date,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`, c.CustomerID, c.FirstName, c.LastName, c.Email, c.Company, c.City,
		c.Country, c.Phone1, c.Phone2, c.Website, c.AboutCustomer, subscriptionValue(c),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ingest.ErrDuplicateCustomer
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepo) Update(ctx context.Context, customerID string, c *domain.Customer) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET first_name = $2, last_name = $3, email = $4, company = $5, city = $6,
		    country = $7, phone1 = $8, phone2 = $9, website = $10,
		    about_customer = $11, subscription_date = $12, updated_at = NOW()
		WHERE customer_id = $1
	`, customerID, c.FirstName, c.LastName, c.Email, c.Company, c.City,
		c.Country, c.Phone1, c.Phone2, c.Website, c.AboutCustomer, subscriptionValue(c))
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ingest.ErrCustomerNotFound
	}
	return nil
}

func (r *CustomerRepo) Delete(ctx context.Context, customerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE customer_id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ingest.ErrCustomerNotFound
	}
	return nil
}
