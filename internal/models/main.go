// Package models defines the core data structures for user profiles and notes.
package models

import (
	"encoding/hex"
	"fmt"
)

// Size bounds of the text fields, in bytes of their UTF-8 encoding.
const (
	// MaxUsernameLen is the longest accepted username.
	MaxUsernameLen = 50
	// MaxTitleLen is the longest accepted note title.
	MaxTitleLen = 100
	// MaxContentLen is the longest accepted note content.
	MaxContentLen = 500
)

// IdentitySize is the byte length of a caller identity (an ed25519 public key).
const IdentitySize = 32

// AddressSize is the byte length of a record address.
const AddressSize = 32

// Identity is the fixed-size public identifier of a caller.
type Identity [IdentitySize]byte

// Address is the storage location of a record in the ledger.
type Address [AddressSize]byte

// UserProfile is the per-identity profile record.
type UserProfile struct {
	// Authority is the identity that owns the profile.
	Authority Identity `json:"authority"`
	// Username is the display name chosen at registration.
	Username string `json:"username"`
	// NoteCount is the number of notes ever created by Authority.
	NoteCount uint64 `json:"note_count"`
}

// Note is a single text note owned by one identity.
type Note struct {
	// Authority is the identity that created the note.
	Authority Identity `json:"authority"`
	// ID is the 1-based sequence number of the note within its owner's profile.
	ID uint64 `json:"id"`
	// Title is set at creation and never changes.
	Title string `json:"title"`
	// Content is the mutable body of the note.
	Content string `json:"content"`
}

// ParseIdentity decodes a hex encoded identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	if err := decodeFixed(id[:], s); err != nil {
		return Identity{}, fmt.Errorf("parse identity: %w", err)
	}
	return id, nil
}

// ParseAddress decodes a hex encoded address.
func ParseAddress(s string) (Address, error) {
	var a Address
	if err := decodeFixed(a[:], s); err != nil {
		return Address{}, fmt.Errorf("parse address: %w", err)
	}
	return a, nil
}

func decodeFixed(dst []byte, s string) error {
	if hex.DecodedLen(len(s)) != len(dst) {
		return fmt.Errorf("want %d hex bytes, got %d characters", len(dst), len(s))
	}
	_, err := hex.Decode(dst, []byte(s))
	return err
}

// String returns the lowercase hex form of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// String returns the lowercase hex form of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
