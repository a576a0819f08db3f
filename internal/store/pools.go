package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/renderfarm/framefarm/internal/farm"
)

// CreatePool inserts a new pool. Fails with farm.ErrConflict on a
// duplicate id.
func (s *Store) CreatePool(p *farm.Pool) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.conn.Exec(`
		INSERT INTO pools (id, name, description, priority, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.Priority, p.CreatedAt)
	if err != nil {
		return classifyErr(err)
	}
	return nil
}

// ListPools returns every pool, highest priority first.
func (s *Store) ListPools() ([]*farm.Pool, error) {
	rows, err := s.conn.Query(`SELECT id, name, description, priority, created_at FROM pools ORDER BY priority DESC, name`)
	if err != nil {
		return nil, classifyErr(err)
	}
	defer rows.Close()

	var pools []*farm.Pool
	for rows.Next() {
		p := &farm.Pool{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Priority, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}

// GetPool returns one pool by id, or farm.ErrNotFound.
func (s *Store) GetPool(id string) (*farm.Pool, error) {
	p := &farm.Pool{}
	err := s.conn.QueryRow(`SELECT id, name, description, priority, created_at FROM pools WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Priority, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: pool %q", farm.ErrNotFound, id)
	}
	if err != nil {
		return nil, classifyErr(err)
	}
	return p, nil
}

// DeletePool removes a pool after migrating its jobs and workers to
// the default pool, all as one atomic unit (spec.md §4.1, tested by
// spec.md §8 invariant 5). Deleting the default pool itself fails
// with farm.ErrInvalidArgument.
func (s *Store) DeletePool(id string) error {
	if id == farm.DefaultPoolID {
		return fmt.Errorf("%w: cannot delete the default pool", farm.ErrInvalidArgument)
	}
	return s.withTx(func(conn *sql.DB) error {
		if _, err := conn.Exec(`UPDATE jobs SET pool_id = ? WHERE pool_id = ?`, farm.DefaultPoolID, id); err != nil {
			return classifyErr(err)
		}
		if _, err := conn.Exec(`UPDATE workers SET pool_id = ? WHERE pool_id = ?`, farm.DefaultPoolID, id); err != nil {
			return classifyErr(err)
		}
		res, err := conn.Exec(`DELETE FROM pools WHERE id = ?`, id)
		if err != nil {
			return classifyErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("%w: pool %q", farm.ErrNotFound, id)
		}
		return nil
	})
}
