package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/store"
)

const employeeColumns = "id, employee_id, name, embedding, shift_id, active, created_at"

// ListActive implements store.EmployeeStore.
func (r *Repository) ListActive(ctx context.Context) ([]store.Employee, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM employees
		WHERE active = TRUE
		ORDER BY id
	`, employeeColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query active employees: %w", err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

// Get implements store.EmployeeStore.
func (r *Repository) Get(ctx context.Context, id int64) (*store.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM employees WHERE id = $1", employeeColumns)
	emp, err := scanEmployee(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get employee %d: %w", id, err)
	}
	return emp, nil
}

// GetByEmployeeID implements store.EmployeeStore.
func (r *Repository) GetByEmployeeID(ctx context.Context, employeeID string) (*store.Employee, error) {
	query := fmt.Sprintf("SELECT %s FROM employees WHERE employee_id = $1", employeeColumns)
	emp, err := scanEmployee(r.pool.QueryRow(ctx, query, employeeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get employee %s: %w", employeeID, err)
	}
	return emp, nil
}

// Create implements store.EmployeeStore.
func (r *Repository) Create(ctx context.Context, emp *store.Employee) (*store.Employee, error) {
	var shiftID sql.NullInt64
	if emp.ShiftID != nil {
		shiftID = sql.NullInt64{Int64: *emp.ShiftID, Valid: true}
	}

	created := *emp
	err := r.pool.QueryRow(ctx, `
		INSERT INTO employees (employee_id, name, embedding, shift_id, active)
		VALUES ($1, $2, $3::vector, $4, $5)
		RETURNING id, created_at
	`,
		emp.EmployeeID,
		emp.Name,
		pgvector.NewVector(emp.Embedding),
		shiftID,
		emp.Active,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert employee %s: %w", emp.EmployeeID, err)
	}
	return &created, nil
}

// Delete implements store.EmployeeStore.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete employee %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete employee %d: %w", id, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// scanEmployee scans a single employee row.
func scanEmployee(scanner interface{ Scan(...any) error }) (*store.Employee, error) {
	var emp store.Employee
	var vec pgvector.Vector
	var shiftID sql.NullInt64

	err := scanner.Scan(
		&emp.ID,
		&emp.EmployeeID,
		&emp.Name,
		&vec,
		&shiftID,
		&emp.Active,
		&emp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	emp.Embedding = vec.Slice()
	if shiftID.Valid {
		id := shiftID.Int64
		emp.ShiftID = &id
	}
	return &emp, nil
}

// Verify interface compliance.
var _ store.Store = (*Repository)(nil)

func scanEmployees(rows *sql.Rows) ([]store.Employee, error) {
	var employees []store.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, *emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return employees, nil
}
