package models

import (
	"errors"
	"strings"
	"testing"
)

func TestUserProfile_EncodeDecode(t *testing.T) {
	in := UserProfile{Authority: Identity{1, 2, 3}, Username: "alice", NoteCount: 7}
	b, err := in.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(b) > ProfileSpace {
		t.Fatalf("encoded profile is %d bytes; space is %d", len(b), ProfileSpace)
	}

	var out UserProfile
	if err := out.UnmarshalBinary(b); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if out != in {
		t.Errorf("decoded = %+v; want %+v", out, in)
	}
}

func TestNote_MaxSizeFitsSpace(t *testing.T) {
	n := Note{
		Authority: Identity{9},
		ID:        1,
		Title:     strings.Repeat("t", MaxTitleLen),
		Content:   strings.Repeat("c", MaxContentLen),
	}
	b, err := n.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(b) != NoteSpace {
		t.Errorf("max-size note encodes to %d bytes; want %d", len(b), NoteSpace)
	}
}

func TestSpaces(t *testing.T) {
	if ProfileSpace != 102 {
		t.Errorf("ProfileSpace = %d; want 102", ProfileSpace)
	}
	if NoteSpace != 656 {
		t.Errorf("NoteSpace = %d; want 656", NoteSpace)
	}
}

func TestDecode_WrongDiscriminator(t *testing.T) {
	p := UserProfile{Username: "bob"}
	b, _ := p.MarshalBinary()

	var n Note
	err := n.UnmarshalBinary(b)
	if !errors.Is(err, ErrAccountDiscriminator) {
		t.Errorf("UnmarshalBinary error = %v; want %v", err, ErrAccountDiscriminator)
	}
}

func TestDecode_Truncated(t *testing.T) {
	n := Note{ID: 3, Title: "title", Content: "content"}
	b, _ := n.MarshalBinary()

	for _, cut := range []int{0, 4, DiscriminatorSize + 10, len(b) - 1} {
		var out Note
		if err := out.UnmarshalBinary(b[:cut]); !errors.Is(err, ErrAccountTruncated) {
			t.Errorf("cut at %d: error = %v; want %v", cut, err, ErrAccountTruncated)
		}
	}
}

func TestParseIdentity(t *testing.T) {
	id := Identity{0xab, 0xcd}
	parsed, err := ParseIdentity(id.String())
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if parsed != id {
		t.Errorf("ParseIdentity = %v; want %v", parsed, id)
	}

	for _, bad := range []string{"", "abcd", strings.Repeat("zz", IdentitySize)} {
		if _, err := ParseIdentity(bad); err == nil {
			t.Errorf("ParseIdentity(%q) did not return error", bad)
		}
	}
}
