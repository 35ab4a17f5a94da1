// Package hrimport reads employee master data from a legacy HR database
// (MySQL/MariaDB) for bulk enrollment. The HR system stays the source of
// truth for names and shifts; faces are captured separately.
package hrimport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Record is one employee row from the HR database.
type Record struct {
	EmployeeID string
	Name       string
	ShiftName  string
	PhotoPath  string // optional path to an enrollment photo on shared storage
}

// Pool manages a MySQL connection pool against the HR database.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new HR database connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("HR database DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open HR database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping HR database: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing HR database connection: %w", err)
		}
	}
	return nil
}

// ListEmployees returns all active employees from the HR database.
func (p *Pool) ListEmployees(ctx context.Context) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT emp_code, emp_name, COALESCE(shift_name, ''), COALESCE(photo_path, '')
		FROM employees
		WHERE status = 'active'
		ORDER BY emp_code
	`)
	if err != nil {
		return nil, fmt.Errorf("query HR employees: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.EmployeeID, &rec.Name, &rec.ShiftName, &rec.PhotoPath); err != nil {
			return nil, fmt.Errorf("scan HR employee: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate HR employees: %w", err)
	}
	return records, nil
}
