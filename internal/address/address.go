// Package address derives the deterministic ledger locations of user
// profiles and notes.
//
// An address is SHA3-256(namespace || 0x00 || seeds...), where the seeds
// are a record-kind tag, the owner's raw identity bytes and, for notes, the
// little-endian u64 note id. No directory is needed to find a record: the
// owner's identity and the note id are enough.
package address

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/priyanshu-verma600/notekeeper/internal/models"
)

// DefaultNamespace separates this program's addresses from any other user
// of the same ledger.
const DefaultNamespace = "notekeeper"

// Record-kind seeds.
const (
	ProfileSeed = "user_profile"
	NoteSeed    = "note"
)

// Deriver maps seeds to addresses inside one namespace.
// The zero value is not usable; construct with New.
type Deriver struct {
	namespace []byte
}

// New returns a Deriver for the given namespace.
func New(namespace string) *Deriver {
	return &Deriver{namespace: []byte(namespace)}
}

var defaultDeriver = New(DefaultNamespace)

// Namespace returns the namespace the deriver was built with.
func (d *Deriver) Namespace() string {
	return string(d.namespace)
}

// Derive hashes the concatenated seeds into an address.
func (d *Deriver) Derive(seeds ...[]byte) models.Address {
	h := sha3.New256()
	h.Write(d.namespace)
	h.Write([]byte{0x00})
	for _, s := range seeds {
		h.Write(s)
	}
	var a models.Address
	copy(a[:], h.Sum(nil))
	return a
}

// ProfileAddress returns the address of owner's user profile.
func (d *Deriver) ProfileAddress(owner models.Identity) models.Address {
	return d.Derive([]byte(ProfileSeed), owner[:])
}

// NoteAddress returns the address of owner's note number noteID.
func (d *Deriver) NoteAddress(owner models.Identity, noteID uint64) models.Address {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], noteID)
	return d.Derive([]byte(NoteSeed), owner[:], id[:])
}

// ProfileAddress derives a profile address in DefaultNamespace.
func ProfileAddress(owner models.Identity) models.Address {
	return defaultDeriver.ProfileAddress(owner)
}

// NoteAddress derives a note address in DefaultNamespace.
func NoteAddress(owner models.Identity, noteID uint64) models.Address {
	return defaultDeriver.NoteAddress(owner, noteID)
}
