package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	loadSlotSQL = `SELECT value FROM session_slots WHERE session_id = $1 AND slot = $2`

	saveSlotSQL = `INSERT INTO session_slots (session_id, slot, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, slot) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	deleteSlotsSQL = `DELETE FROM session_slots WHERE session_id = $1 AND slot = ANY($2)`

	deleteExpiredSlotsSQL = `DELETE FROM session_slots WHERE updated_at < $1`
)

var _ cart.Storage = (*SlotStorage)(nil)

// SlotStorage keeps session slots in the session_slots table.
type SlotStorage struct {
	pool *pgxpool.Pool
}

// NewSlotStorage returns a SlotStorage that uses the given pool.
func NewSlotStorage(pool *pgxpool.Pool) *SlotStorage {
	return &SlotStorage{pool: pool}
}

// Load returns the slot value, or cart.ErrSlotEmpty.
func (s *SlotStorage) Load(ctx context.Context, session, slot string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, loadSlotSQL, session, slot).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrSlotEmpty
		}
		return nil, errors.Wrapf(err, "load slot %s", slot)
	}
	return value, nil
}

// Save writes the slot value.
func (s *SlotStorage) Save(ctx context.Context, session, slot string, value []byte) error {
	if _, err := s.pool.Exec(ctx, saveSlotSQL, session, slot, value); err != nil {
		return errors.Wrapf(err, "save slot %s", slot)
	}
	return nil
}

// Delete removes the given slots in one statement.
func (s *SlotStorage) Delete(ctx context.Context, session string, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, deleteSlotsSQL, session, slots); err != nil {
		return errors.Wrap(err, "delete slots")
	}
	return nil
}

// DeleteExpired removes slots not written since before and returns how many
// were deleted.
func (s *SlotStorage) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteExpiredSlotsSQL, before)
	if err != nil {
		return 0, errors.Wrap(err, "delete expired slots")
	}
	return tag.RowsAffected(), nil
}
