package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a session or line item does not exist
var ErrNotFound = errors.New("not found")

// Store interface defines methods for session persistence. Claim mutations
// are expressed as atomic set operations so that concurrent requests against
// the same session never lose each other's updates.
type Store interface {
	CreateSession(ctx context.Context, session *Session) (uuid.UUID, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)

	AddClaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error
	RemoveClaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error
	RemoveClaimsBy(ctx context.Context, sessionID uuid.UUID, connectionID string) error

	SetPaid(ctx context.Context, sessionID uuid.UUID, itemID, payerID string, paid bool) error
	SetItemStatuses(ctx context.Context, sessionID uuid.UUID, itemIDs []string, status ItemStatus) error

	SetInitiator(ctx context.Context, sessionID uuid.UUID, initiator Initiator) error
	SetTip(ctx context.Context, sessionID uuid.UUID, tip float64) error
}

// MySqlStore handles session persistence using GORM
type MySqlStore struct {
	db *gorm.DB
}

// NewMySqlStore creates a new session store with GORM connection
func NewMySqlStore(databaseURL string) (*MySqlStore, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &MySqlStore{db: db}

	// Auto-migrate tables
	if err := db.AutoMigrate(&Session{}, &LineItem{}, &Claim{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// CreateSession stores a freshly parsed receipt as a new session, assigning
// ids where they are missing
func (s *MySqlStore) CreateSession(ctx context.Context, session *Session) (uuid.UUID, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	for i := range session.Items {
		session.Items[i].SessionID = session.ID
		if session.Items[i].ItemID == "" {
			session.Items[i].ItemID = uuid.NewString()
		}
	}

	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session.ID, nil
}

// GetSession retrieves a session with its items and claims
func (s *MySqlStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	var session Session
	result := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Items.Claims").
		First(&session, "id = ?", sessionID)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", result.Error)
	}

	return &session, nil
}

// AddClaim adds a connection to an item's claim set and marks the item
// checked. Inserting an already-present claim is a no-op, so two racing
// claims for the same item both land.
func (s *MySqlStore) AddClaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireItem(tx, sessionID, itemID); err != nil {
			return err
		}

		claim := Claim{SessionID: sessionID, ItemID: itemID, ConnectionID: connectionID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim).Error; err != nil {
			return fmt.Errorf("failed to add claim: %w", err)
		}

		if err := tx.Model(&LineItem{}).
			Where("session_id = ? AND item_id = ?", sessionID, itemID).
			Update("is_checked", true).Error; err != nil {
			return fmt.Errorf("failed to mark item checked: %w", err)
		}

		return nil
	})
}

// RemoveClaim removes a connection from an item's claim set; the item stays
// checked only while other claimants remain
func (s *MySqlStore) RemoveClaim(ctx context.Context, sessionID uuid.UUID, itemID, connectionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireItem(tx, sessionID, itemID); err != nil {
			return err
		}

		if err := tx.Where("session_id = ? AND item_id = ? AND connection_id = ?",
			sessionID, itemID, connectionID).Delete(&Claim{}).Error; err != nil {
			return fmt.Errorf("failed to remove claim: %w", err)
		}

		return s.syncChecked(tx, sessionID, itemID)
	})
}

// RemoveClaimsBy removes a connection from every item's claim set in the
// session. Used by disconnect reconciliation and the stale-claim sweep.
func (s *MySqlStore) RemoveClaimsBy(ctx context.Context, sessionID uuid.UUID, connectionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var itemIDs []string
		if err := tx.Model(&Claim{}).
			Where("session_id = ? AND connection_id = ?", sessionID, connectionID).
			Distinct().Pluck("item_id", &itemIDs).Error; err != nil {
			return fmt.Errorf("failed to list claimed items: %w", err)
		}
		if len(itemIDs) == 0 {
			return nil
		}

		if err := tx.Where("session_id = ? AND connection_id = ?", sessionID, connectionID).
			Delete(&Claim{}).Error; err != nil {
			return fmt.Errorf("failed to remove claims: %w", err)
		}

		for _, itemID := range itemIDs {
			if err := s.syncChecked(tx, sessionID, itemID); err != nil {
				return err
			}
		}

		return nil
	})
}

// SetPaid sets an item's paid state. Payments have exactly one payer, so this
// is last-caller-wins on the paidBy field.
func (s *MySqlStore) SetPaid(ctx context.Context, sessionID uuid.UUID, itemID, payerID string, paid bool) error {
	updates := map[string]any{"is_paid": paid, "paid_by": ""}
	if paid {
		updates["paid_by"] = payerID
	}

	result := s.db.WithContext(ctx).Model(&LineItem{}).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to set paid state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetItemStatuses applies a partial status update to a batch of items in one
// transaction, so any subsequent read observes all of the listed items
// updated or none of them
func (s *MySqlStore) SetItemStatuses(ctx context.Context, sessionID uuid.UUID, itemIDs []string, status ItemStatus) error {
	if len(itemIDs) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&LineItem{}).
			Where("session_id = ? AND item_id IN ?", sessionID, itemIDs).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to match items: %w", err)
		}
		if count != int64(len(itemIDs)) {
			return ErrNotFound
		}

		updates := map[string]any{}
		if status.IsChecked != nil {
			updates["is_checked"] = *status.IsChecked
		}
		if status.IsPaid != nil {
			updates["is_paid"] = *status.IsPaid
		}
		if status.PaidBy != nil {
			updates["paid_by"] = *status.PaidBy
		}
		if len(updates) > 0 {
			if err := tx.Model(&LineItem{}).
				Where("session_id = ? AND item_id IN ?", sessionID, itemIDs).
				Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update items: %w", err)
			}
		}

		// Replacing the claim set wholesale is only used by bulk admin
		// updates, never by the claim/unclaim path
		if status.CheckedBy != nil {
			if err := tx.Where("session_id = ? AND item_id IN ?", sessionID, itemIDs).
				Delete(&Claim{}).Error; err != nil {
				return fmt.Errorf("failed to clear claims: %w", err)
			}
			for _, itemID := range itemIDs {
				for _, connectionID := range *status.CheckedBy {
					claim := Claim{SessionID: sessionID, ItemID: itemID, ConnectionID: connectionID}
					if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim).Error; err != nil {
						return fmt.Errorf("failed to set claims: %w", err)
					}
				}
			}
		}

		return nil
	})
}

// SetInitiator sets the owner's payout handles on the session
func (s *MySqlStore) SetInitiator(ctx context.Context, sessionID uuid.UUID, initiator Initiator) error {
	result := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"initiator_cash_tag":     initiator.CashTag,
			"initiator_venmo_handle": initiator.VenmoHandle,
			"initiator_name":         initiator.HumanName,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set initiator: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetTip overrides the parsed tip with a manual amount
func (s *MySqlStore) SetTip(ctx context.Context, sessionID uuid.UUID, tip float64) error {
	result := s.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{"tip": tip, "is_manual_tip": true})
	if result.Error != nil {
		return fmt.Errorf("failed to set tip: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetDB returns the underlying GORM database connection
func (s *MySqlStore) GetDB() *gorm.DB {
	return s.db
}

// Close closes the database connection
func (s *MySqlStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}

// requireItem fails with ErrNotFound unless the item exists in the session
func (s *MySqlStore) requireItem(tx *gorm.DB, sessionID uuid.UUID, itemID string) error {
	var count int64
	if err := tx.Model(&LineItem{}).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up item: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// syncChecked recomputes is_checked from the remaining claim rows
func (s *MySqlStore) syncChecked(tx *gorm.DB, sessionID uuid.UUID, itemID string) error {
	var remaining int64
	if err := tx.Model(&Claim{}).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		Count(&remaining).Error; err != nil {
		return fmt.Errorf("failed to count claims: %w", err)
	}

	if err := tx.Model(&LineItem{}).
		Where("session_id = ? AND item_id = ?", sessionID, itemID).
		Update("is_checked", remaining > 0).Error; err != nil {
		return fmt.Errorf("failed to sync checked state: %w", err)
	}

	return nil
}
