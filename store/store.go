package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/apperrors"
)

// DefaultTimeout bounds every store operation; a query that outlives it
// surfaces as a timeout error rather than blocking the request.
const DefaultTimeout = 5 * time.Second

// Store is the single persistence boundary. All uniqueness and referential
// integrity checks live here; business transitions live in services.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, timeout: DefaultTimeout}
}

// WithTimeout returns a copy using a different operation bound. Used by tests.
func (s *Store) WithTimeout(d time.Duration) *Store {
	return &Store{db: s.db, timeout: d}
}

// DB exposes the underlying handle for the state machine's transactions.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, s.timeout)
}

// inTx runs fn in a single transaction under the operation deadline.
// Check-then-act sequences (reference counts before delete, uniqueness
// checks before create) must not interleave with concurrent writers.
func (s *Store) inTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tctx, cancel := s.ctx(ctx)
	defer cancel()
	return translate(s.db.WithContext(tctx).Transaction(fn))
}

// ListOptions carries pagination and sorting for list queries. Sort is a
// column name with an optional "-" prefix for descending order; columns are
// whitelisted per entity.
type ListOptions struct {
	Limit  int
	Offset int
	Sort   string
}

func (o ListOptions) apply(q *gorm.DB, sortable map[string]bool) *gorm.DB {
	if o.Limit > 0 {
		q = q.Limit(o.Limit)
	}
	if o.Offset > 0 {
		q = q.Offset(o.Offset)
	}
	if o.Sort != "" {
		col := o.Sort
		dir := "asc"
		if strings.HasPrefix(col, "-") {
			col = col[1:]
			dir = "desc"
		}
		if sortable[col] {
			q = q.Order(col + " " + dir)
		}
	}
	return q
}

// translate lifts driver errors into the typed taxonomy. Unknown errors pass
// through untouched so the facade maps them to 500.
func translate(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.NotFound, err, "record not found")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.Timeout, err, "store operation timed out")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrap(apperrors.Validation, err, "duplicate value for unique field")
	}
	return err
}
