package transform

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"idx_sync/models"
)

// unknownCount labels a missing bed or bath count in the mandatory tags,
// matching what rows already in the store carry.
const unknownCount = "None"

// Vocabulary is the controlled list of searchable hashtags
type Vocabulary struct {
	tags []string
}

func NewVocabulary(tags []string) *Vocabulary {
	v := &Vocabulary{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			v.tags = append(v.tags, tag)
		}
	}
	return v
}

// LoadVocabulary reads one hashtag per line
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()

	var tags []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tags = append(tags, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return NewVocabulary(tags), nil
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.tags)
}

// Match returns the vocabulary entries found in text, unique and sorted
func (v *Vocabulary) Match(text string) []string {
	if v == nil {
		return nil
	}
	folded := foldLetters(text)

	var found []string
	for _, tag := range v.tags {
		if strings.Contains(folded, tag) {
			found = append(found, tag)
		}
	}
	slices.Sort(found)
	return slices.Compact(found)
}

// Hashtags builds the listing's tag list: type, bed count, full bath count,
// then the matched vocabulary.
func Hashtags(v *Vocabulary, t models.ListingType, beds, bathsFull *int, remarks string) []string {
	tags := []string{
		string(t),
		countLabel(beds) + "bed",
		countLabel(bathsFull) + "bath",
	}
	return append(tags, v.Match(remarks)...)
}

var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	},
}

// foldLetters lower-cases s, folds accented letters to their base letter and
// drops everything outside a-z, so "Open-concept Café" becomes
// "openconceptcafe".
func foldLetters(s string) string {
	tr := foldPool.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
