package chunker

import (
	"fmt"
	"iter"
	"strings"
	"unicode"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Normalise collapses every run of whitespace to a single space and trims
// both ends, so chunk boundaries do not depend on source formatting.
func Normalise(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// Split normalises text and returns its chunks as a lazy sequence.
//
// Every chunk has at most size characters and each chunk after the first
// repeats the last overlap characters of its predecessor, so
// c0 + c1[overlap:] + c2[overlap:] ... rebuilds the normalised text.
// A chunk ends at the latest sentence end inside its window, else the
// latest word end, else at exactly size characters.
//
// The sequence may be ranged over any number of times.
func Split(text string, size, overlap int) (iter.Seq[string], error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(Normalise(text))

	return func(yield func(string) bool) {
		n := len(runes)
		start := 0
		for start < n {
			end := start + size
			if end >= n {
				yield(string(runes[start:]))
				return
			}
			cut := boundary(runes, start, end, overlap, size)
			if !yield(string(runes[start:cut])) {
				return
			}
			start = cut - overlap
		}
	}, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", domain.ErrConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than chunk size %d", domain.ErrConfig, overlap, size)
	}
	return nil
}

// boundary picks the cut index in (start, end]. The cut never falls
// inside the overlap of the chunk, so the next start always advances.
// Paragraph breaks do not survive normalisation, so sentence ends are
// the coarsest boundary available.
func boundary(runes []rune, start, end, overlap, size int) int {
	lo := max(start+overlap+1, start+size/2)

	for i := end; i >= lo; i-- {
		if isSentenceEnd(runes, i) {
			return i
		}
	}
	for i := end; i >= lo; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return end
}

// isSentenceEnd reports whether a sentence finishes just before index i.
func isSentenceEnd(runes []rune, i int) bool {
	if i <= 0 || i >= len(runes) || runes[i] != ' ' {
		return false
	}
	switch runes[i-1] {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}
