package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/repository"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
)

// moveWindow is the renumbering plan for moving one scan within its group:
// shift every sequence number in [Low, High] by Delta, then place the
// moved scan at Target.
type moveWindow struct {
	Low    int
	High   int
	Delta  int
	Target int
	NoOp   bool
}

// planMove computes the renumbering needed to move the scan currently at
// position from to the slot after position after. after may be 0 (front)
// up to max (back); anything else is a range error. The plan keeps the
// group dense: every vacated slot is closed in the same transaction.
func planMove(from, after, max int) (moveWindow, error) {
	if after < 0 || after > max {
		return moveWindow{}, appErrors.Clone(appErrors.ErrRange,
			fmt.Sprintf("after must be between 0 and %d, got %d", max, after))
	}
	if after == from || after == from-1 {
		return moveWindow{Target: from, NoOp: true}, nil
	}
	if after > from {
		return moveWindow{Low: from + 1, High: after, Delta: -1, Target: after}, nil
	}
	return moveWindow{Low: after + 1, High: from - 1, Delta: 1, Target: after + 1}, nil
}

// SequenceManager owns every mutation of the dense per-group sequence.
// All renumbering runs in a single transaction under the scans table lock
// so concurrent mutations cannot interleave and leave gaps or duplicates.
type SequenceManager struct {
	db     *sqlx.DB
	scans  *repository.ScanRepository
	images *repository.ScanImageRepository
}

// NewSequenceManager constructs the manager.
func NewSequenceManager(db *sqlx.DB, scans *repository.ScanRepository, images *repository.ScanImageRepository) *SequenceManager {
	return &SequenceManager{db: db, scans: scans, images: images}
}

func (m *SequenceManager) withLock(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sequence transaction: %w", err)
	}
	if err := m.scans.LockTable(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sequence transaction: %w", err)
	}
	return nil
}

// Insert appends the scan at the end of its group and persists it.
func (m *SequenceManager) Insert(ctx context.Context, scan *models.Scan) error {
	return m.withLock(ctx, func(tx *sqlx.Tx) error {
		max, err := m.scans.MaxSequence(ctx, tx, scan.GroupKey())
		if err != nil {
			return err
		}
		scan.SequenceNumber = max + 1
		return m.scans.Create(ctx, tx, scan)
	})
}

// Remove deletes the scan together with its image rows and closes the
// gap it leaves behind. It returns the deleted scan and the peers that
// were renumbered.
func (m *SequenceManager) Remove(ctx context.Context, number int) (*models.Scan, []repository.SequenceRef, error) {
	var (
		scan    *models.Scan
		shifted []repository.SequenceRef
	)
	err := m.withLock(ctx, func(tx *sqlx.Tx) error {
		s, err := m.scans.GetByNumber(ctx, tx, number)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("scan %d not found", number))
		}
		if err != nil {
			return err
		}
		max, err := m.scans.MaxSequence(ctx, tx, s.GroupKey())
		if err != nil {
			return err
		}
		if err := m.images.DeleteByScan(ctx, tx, number); err != nil {
			return err
		}
		if err := m.scans.Delete(ctx, tx, number); err != nil {
			return err
		}
		refs, err := m.scans.ShiftRange(ctx, tx, s.GroupKey(), s.SequenceNumber+1, max, -1)
		if err != nil {
			return err
		}
		scan, shifted = s, refs
		return nil
	})
	return scan, shifted, err
}

// Move repositions the scan after the given sequence number within its
// group. It returns the scan with its new position and the renumbered
// peers. A move to the slot it already occupies is a no-op.
func (m *SequenceManager) Move(ctx context.Context, number, after int) (*models.Scan, []repository.SequenceRef, error) {
	var (
		scan    *models.Scan
		shifted []repository.SequenceRef
	)
	err := m.withLock(ctx, func(tx *sqlx.Tx) error {
		s, err := m.scans.GetByNumber(ctx, tx, number)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("scan %d not found", number))
		}
		if err != nil {
			return err
		}
		max, err := m.scans.MaxSequence(ctx, tx, s.GroupKey())
		if err != nil {
			return err
		}
		win, err := planMove(s.SequenceNumber, after, max)
		if err != nil {
			return err
		}
		scan = s
		if win.NoOp {
			return nil
		}
		refs, err := m.scans.ShiftRange(ctx, tx, s.GroupKey(), win.Low, win.High, win.Delta)
		if err != nil {
			return err
		}
		if err := m.scans.SetSequence(ctx, tx, number, win.Target); err != nil {
			return err
		}
		s.SequenceNumber = win.Target
		shifted = refs
		return nil
	})
	return scan, shifted, err
}

// Get reads one scan outside any lock.
func (m *SequenceManager) Get(ctx context.Context, number int) (*models.Scan, error) {
	scan, err := m.scans.GetByNumber(ctx, m.db, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("scan %d not found", number))
	}
	return scan, err
}

// Save persists field changes that do not touch the sequence.
func (m *SequenceManager) Save(ctx context.Context, scan *models.Scan) error {
	err := m.scans.Update(ctx, m.db, scan)
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("scan %d not found", scan.Number))
	}
	return err
}

// List returns scans matching the filter plus the total count.
func (m *SequenceManager) List(ctx context.Context, filter models.ScanFilter) ([]models.Scan, int, error) {
	return m.scans.List(ctx, filter)
}

// ListGroup returns a group's scans in sequence order.
func (m *SequenceManager) ListGroup(ctx context.Context, group models.ScanGroup) ([]models.Scan, error) {
	return m.scans.ListGroup(ctx, m.db, group)
}

// CountGroup returns the number of scans in a group.
func (m *SequenceManager) CountGroup(ctx context.Context, group models.ScanGroup) (int, error) {
	return m.scans.CountGroup(ctx, m.db, group)
}

// ListAll streams scans in number order for bulk reindexing.
func (m *SequenceManager) ListAll(ctx context.Context, afterNumber, batchSize int) ([]models.Scan, error) {
	return m.scans.ListAll(ctx, afterNumber, batchSize)
}

// Transfer moves a scan into another group: the gap in the old group is
// closed and the scan lands at the end of the new one. The scan carries
// its new group fields and, on entry, its old sequence number; every other
// field is persisted as given. It returns the renumbered old-group peers.
func (m *SequenceManager) Transfer(ctx context.Context, scan *models.Scan, from models.ScanGroup) ([]repository.SequenceRef, error) {
	var shifted []repository.SequenceRef
	err := m.withLock(ctx, func(tx *sqlx.Tx) error {
		fromSeq := scan.SequenceNumber
		fromMax, err := m.scans.MaxSequence(ctx, tx, from)
		if err != nil {
			return err
		}
		destMax, err := m.scans.MaxSequence(ctx, tx, scan.GroupKey())
		if err != nil {
			return err
		}
		scan.SequenceNumber = destMax + 1
		if err := m.scans.Update(ctx, tx, scan); err != nil {
			return err
		}
		refs, err := m.scans.ShiftRange(ctx, tx, from, fromSeq+1, fromMax, -1)
		if err != nil {
			return err
		}
		shifted = refs
		return nil
	})
	return shifted, err
}
