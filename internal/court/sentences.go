package court

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tphakala/reckless-court/internal/errors"
)

// SentenceList is the ordered list of candidate sentences on the wheel
type SentenceList struct {
	items []string
}

// NewSentenceList copies items, dropping blank lines
func NewSentenceList(items []string) *SentenceList {
	return &SentenceList{items: cleanLines(items)}
}

// Items returns a copy of the list
func (s *SentenceList) Items() []string {
	return slices.Clone(s.items)
}

// Len returns the number of sentences
func (s *SentenceList) Len() int {
	return len(s.items)
}

// Replace sets the list from a newline separated block. Lines are trimmed
// and blank lines dropped; a block with no sentences left is rejected.
func (s *SentenceList) Replace(text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, errors.ValidationError("please enter at least one sentence")
	}
	lines := cleanLines(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
	if len(lines) == 0 {
		return 0, errors.ValidationError("please enter at least one valid sentence")
	}
	s.items = lines
	return len(lines), nil
}

// Append adds a sentence at the end
func (s *SentenceList) Append(sentence string) error {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return errors.ValidationError("sentence must not be empty")
	}
	s.items = append(s.items, sentence)
	return nil
}

// Edit replaces the sentence at index
func (s *SentenceList) Edit(index int, sentence string) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return errors.ValidationError("sentence must not be empty")
	}
	s.items[index] = sentence
	return nil
}

// Remove deletes the sentence at index
func (s *SentenceList) Remove(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.items = slices.Delete(s.items, index, index+1)
	return nil
}

// Move relocates the sentence at from so it ends up at position to
func (s *SentenceList) Move(from, to int) error {
	if err := s.checkIndex(from); err != nil {
		return err
	}
	if err := s.checkIndex(to); err != nil {
		return err
	}
	item := s.items[from]
	s.items = slices.Insert(slices.Delete(s.items, from, from+1), to, item)
	return nil
}

// Clear empties the list and reports whether anything was removed
func (s *SentenceList) Clear() bool {
	if len(s.items) == 0 {
		return false
	}
	s.items = nil
	return true
}

func (s *SentenceList) checkIndex(index int) error {
	if index < 0 || index >= len(s.items) {
		return errors.New(fmt.Errorf("sentence %d not found", index)).
			Component("court").
			Category(errors.CategoryNotFound).
			Context("index", index).
			Context("count", len(s.items)).
			Build()
	}
	return nil
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
