package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks censored words in chat messages. Matching ignores case,
// punctuation, spacing and common leet substitutions, so "B.4.d.g.€r"
// matches "badger".
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// folded is a message reduced to its matchable runes. positions[i] is the
// index in the original message of runes[i].
type folded struct {
	runes     []rune
	positions []int
}

// NewModerator builds the automaton once. Words that fold to nothing are skipped,
// and an empty dictionary gives a moderator that never censors.
func NewModerator(censoredWords []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	m := &Moderator{replacement: replacement, log: log}
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		if f := fold([]rune(word)); len(f.runes) > 0 {
			patterns = append(patterns, f.runes)
		}
	}
	if len(patterns) == 0 {
		return m, nil
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	m.matcher = machine
	return m, nil
}

// Censor returns content with every match masked, from its first to its last
// original rune, and the folded words that matched, one per occurrence.
func (m *Moderator) Censor(content string) (string, []string) {
	if m.matcher == nil {
		return content, nil
	}
	original := []rune(content)
	f := fold(original)
	if len(f.runes) == 0 {
		return content, nil
	}
	matches := m.matcher.MultiPatternSearch(f.runes, false)
	if len(matches) == 0 {
		return content, nil
	}

	var words []string
	for _, match := range matches {
		last := match.Pos + len(match.Word) - 1
		if match.Pos < 0 || last >= len(f.positions) {
			continue
		}
		for i := f.positions[match.Pos]; i <= f.positions[last]; i++ {
			original[i] = m.replacement
		}
		words = append(words, string(match.Word))
	}

	if len(words) > 0 {
		m.log.Debug("Content censored", "lang", whatlanggo.Detect(content).Lang.Iso6391(), "words", len(words))
	}
	return string(original), words
}

func fold(input []rune) folded {
	f := folded{runes: make([]rune, 0, len(input)), positions: make([]int, 0, len(input))}
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.positions = append(f.positions, i)
	}
	return f
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	}
	return r
}
