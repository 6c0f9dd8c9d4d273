package models

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// DiscriminatorSize is the length of the type tag prefixed to every stored record.
const DiscriminatorSize = 8

// Allocated space of each record kind: discriminator, fixed fields and
// length-prefixed strings at their maximum length.
const (
	ProfileSpace = DiscriminatorSize + IdentitySize + 4 + MaxUsernameLen + 8
	NoteSpace    = DiscriminatorSize + IdentitySize + 8 + 4 + MaxTitleLen + 4 + MaxContentLen
)

var (
	profileDiscriminator = discriminator("UserProfile")
	noteDiscriminator    = discriminator("Note")
)

func discriminator(name string) [DiscriminatorSize]byte {
	var d [DiscriminatorSize]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// MarshalBinary encodes the profile in its stored layout.
func (p *UserProfile) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, ProfileSpace)
	b = append(b, profileDiscriminator[:]...)
	b = append(b, p.Authority[:]...)
	b = appendString(b, p.Username)
	b = binary.LittleEndian.AppendUint64(b, p.NoteCount)
	return b, nil
}

// UnmarshalBinary decodes a profile from its stored layout.
func (p *UserProfile) UnmarshalBinary(data []byte) error {
	r := reader{buf: data}
	r.expect(profileDiscriminator)
	r.fixed(p.Authority[:])
	p.Username = r.string()
	p.NoteCount = r.uint64()
	if r.err != nil {
		return fmt.Errorf("decode user profile: %w", r.err)
	}
	return nil
}

// MarshalBinary encodes the note in its stored layout.
func (n *Note) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, NoteSpace)
	b = append(b, noteDiscriminator[:]...)
	b = append(b, n.Authority[:]...)
	b = binary.LittleEndian.AppendUint64(b, n.ID)
	b = appendString(b, n.Title)
	b = appendString(b, n.Content)
	return b, nil
}

// UnmarshalBinary decodes a note from its stored layout.
func (n *Note) UnmarshalBinary(data []byte) error {
	r := reader{buf: data}
	r.expect(noteDiscriminator)
	r.fixed(n.Authority[:])
	n.ID = r.uint64()
	n.Title = r.string()
	n.Content = r.string()
	if r.err != nil {
		return fmt.Errorf("decode note: %w", r.err)
	}
	return nil
}

func appendString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

// reader consumes the stored layout front to back; the first failure sticks.
type reader struct {
	buf []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf) < n {
		r.err = ErrAccountTruncated
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) expect(d [DiscriminatorSize]byte) {
	b := r.take(DiscriminatorSize)
	if r.err == nil && !bytes.Equal(b, d[:]) {
		r.err = ErrAccountDiscriminator
	}
}

func (r *reader) fixed(dst []byte) {
	copy(dst, r.take(len(dst)))
}

func (r *reader) uint64() uint64 {
	b := r.take(8)
	if r.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) string() string {
	lb := r.take(4)
	if r.err != nil {
		return ""
	}
	return string(r.take(int(binary.LittleEndian.Uint32(lb))))
}
