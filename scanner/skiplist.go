package scanner

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMinSkipWordLength is the shortest skip word accepted by default.
const DefaultMinSkipWordLength = 3

// ErrSkipWordTooShort is returned when a skip word is shorter than the
// configured minimum.
var ErrSkipWordTooShort = errors.New("skip word too short")

// SkipList discards file names containing any of its words.
type SkipList struct {
	words []string
}

// NewSkipList validates words and builds a SkipList. Matching is a
// case-insensitive substring test, so short words would match too much and
// are rejected.
func NewSkipList(words []string, minLen int) (*SkipList, error) {
	s := &SkipList{}
	for _, w := range words {
		w = strings.TrimSpace(w)
		if len([]rune(w)) < minLen {
			return nil, fmt.Errorf("%w: %q (minimum %d)", ErrSkipWordTooShort, w, minLen)
		}
		s.words = append(s.words, strings.ToLower(w))
	}
	return s, nil
}

// Skips reports whether name contains a skip word.
func (s *SkipList) Skips(name string) bool {
	if s == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, w := range s.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Words returns the normalized skip words.
func (s *SkipList) Words() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.words))
	copy(out, s.words)
	return out
}
