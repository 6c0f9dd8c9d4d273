// Package service implements the note lifecycle: user registration and
// note creation, update and deletion on top of a ledger.Store.
package service

import (
	"context"
	"encoding"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/priyanshu-verma600/notekeeper/internal/address"
	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// NoteService runs every operation as a single ledger transaction. It keeps
// no state of its own beyond its collaborators.
type NoteService struct {
	// ledger persists profiles and notes.
	ledger ledger.Store
	// addr derives record addresses.
	addr *address.Deriver
	log  *zap.Logger
}

// NewNoteService constructs a NoteService. A nil logger disables logging.
func NewNoteService(store ledger.Store, deriver *address.Deriver, log *zap.Logger) *NoteService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoteService{ledger: store, addr: deriver, log: log}
}

// ProfileAddress returns where owner's profile lives.
func (s *NoteService) ProfileAddress(owner models.Identity) models.Address {
	return s.addr.ProfileAddress(owner)
}

// NoteAddress returns where owner's note noteID lives.
func (s *NoteService) NoteAddress(owner models.Identity, noteID uint64) models.Address {
	return s.addr.NoteAddress(owner, noteID)
}

// RegisterUser creates the caller's profile with a zero note count.
// It fails with models.ErrDuplicateRegistration if the caller already has one.
func (s *NoteService) RegisterUser(ctx context.Context, caller models.Identity, username string) error {
	if err := checkLen("username", username, models.MaxUsernameLen); err != nil {
		return err
	}

	profileAddr := s.addr.ProfileAddress(caller)
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		if _, err := tx.Allocate(profileAddr, caller, models.ProfileSpace); err != nil {
			if errors.Is(err, ledger.ErrAccountInUse) {
				return models.ErrDuplicateRegistration
			}
			return err
		}
		return writeRecord(tx, profileAddr, &models.UserProfile{
			Authority: caller,
			Username:  username,
			NoteCount: 0,
		})
	})
	if err != nil {
		return err
	}

	s.log.Info("user profile created",
		zap.Stringer("authority", caller),
		zap.Stringer("address", profileAddr),
		zap.String("username", username),
	)
	return nil
}

// CreateNote stores a new note under the caller's next sequence number and
// returns that number. The profile's count and the note commit together.
func (s *NoteService) CreateNote(ctx context.Context, caller models.Identity, title, content string) (uint64, error) {
	if err := checkLen("title", title, models.MaxTitleLen); err != nil {
		return 0, err
	}
	if err := checkLen("content", content, models.MaxContentLen); err != nil {
		return 0, err
	}

	var (
		id       uint64
		noteAddr models.Address
	)
	profileAddr := s.addr.ProfileAddress(caller)
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		profile, err := loadProfile(tx, profileAddr)
		if err != nil {
			return err
		}
		if profile.Authority != caller {
			return models.ErrUnauthorizedAccess
		}

		id = profile.NoteCount + 1
		noteAddr = s.addr.NoteAddress(caller, id)
		if _, err := tx.Allocate(noteAddr, caller, models.NoteSpace); err != nil {
			if errors.Is(err, ledger.ErrAccountInUse) {
				return fmt.Errorf("%w: note #%d", models.ErrAllocationCollision, id)
			}
			return err
		}
		if err := writeRecord(tx, noteAddr, &models.Note{
			Authority: caller,
			ID:        id,
			Title:     title,
			Content:   content,
		}); err != nil {
			return err
		}

		profile.NoteCount = id
		return writeRecord(tx, profileAddr, profile)
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("note created",
		zap.Uint64("id", id),
		zap.Stringer("authority", caller),
		zap.Stringer("address", noteAddr),
	)
	return id, nil
}

// UpdateNote replaces the content of one of the caller's notes.
func (s *NoteService) UpdateNote(ctx context.Context, caller models.Identity, noteID uint64, newContent string) error {
	if err := checkLen("content", newContent, models.MaxContentLen); err != nil {
		return err
	}

	noteAddr := s.addr.NoteAddress(caller, noteID)
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		note, err := loadOwnedNote(tx, noteAddr, caller)
		if err != nil {
			return err
		}
		note.Content = newContent
		return writeRecord(tx, noteAddr, note)
	})
	if err != nil {
		return err
	}

	s.log.Info("note updated",
		zap.Uint64("id", noteID),
		zap.Stringer("authority", caller),
		zap.Stringer("address", noteAddr),
	)
	return nil
}

// DeleteNote closes one of the caller's notes and refunds its deposit to
// the caller.
func (s *NoteService) DeleteNote(ctx context.Context, caller models.Identity, noteID uint64) error {
	var refunded uint64
	noteAddr := s.addr.NoteAddress(caller, noteID)
	err := s.ledger.Update(ctx, func(tx ledger.Tx) error {
		if _, err := loadOwnedNote(tx, noteAddr, caller); err != nil {
			return err
		}
		var err error
		refunded, err = tx.CloseAccount(noteAddr, caller)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("note deleted",
		zap.Uint64("id", noteID),
		zap.Stringer("authority", caller),
		zap.Stringer("address", noteAddr),
		zap.Uint64("refunded", refunded),
	)
	return nil
}

// GetProfile returns owner's profile.
func (s *NoteService) GetProfile(ctx context.Context, owner models.Identity) (*models.UserProfile, error) {
	var profile *models.UserProfile
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		profile, err = loadProfile(tx, s.addr.ProfileAddress(owner))
		return err
	})
	return profile, err
}

// GetNote returns owner's note noteID.
func (s *NoteService) GetNote(ctx context.Context, owner models.Identity, noteID uint64) (*models.Note, error) {
	var note *models.Note
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		note, err = loadNote(tx, s.addr.NoteAddress(owner, noteID))
		return err
	})
	return note, err
}

// Balance returns the net lamports id has paid for or been refunded.
func (s *NoteService) Balance(ctx context.Context, id models.Identity) (int64, error) {
	var lamports int64
	err := s.ledger.View(ctx, func(tx ledger.Tx) error {
		var err error
		lamports, err = tx.Balance(id)
		return err
	})
	return lamports, err
}

func checkLen(field, value string, limit int) error {
	if len(value) > limit {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", models.ErrInvalidInput, field, len(value), limit)
	}
	return nil
}

func loadProfile(tx ledger.Tx, addr models.Address) (*models.UserProfile, error) {
	acc, err := tx.Get(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := p.UnmarshalBinary(acc.Data); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadNote(tx ledger.Tx, addr models.Address) (*models.Note, error) {
	acc, err := tx.Get(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, models.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	var n models.Note
	if err := n.UnmarshalBinary(acc.Data); err != nil {
		return nil, err
	}
	return &n, nil
}

// loadOwnedNote loads the note at addr and checks the stored authority
// against caller. The address was derived from caller, but the stored
// authority is compared anyway.
func loadOwnedNote(tx ledger.Tx, addr models.Address, caller models.Identity) (*models.Note, error) {
	note, err := loadNote(tx, addr)
	if err != nil {
		return nil, err
	}
	if note.Authority != caller {
		return nil, models.ErrUnauthorizedAccess
	}
	return note, nil
}

func writeRecord(tx ledger.Tx, addr models.Address, rec encoding.BinaryMarshaler) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.Write(addr, data)
}
