package subscription

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Operation is a quota-limited action.
type Operation string

const (
	OperationSaveMemory      Operation = "save_memory"
	OperationGenerateSummary Operation = "generate_summary"
)

func (o Operation) Valid() bool {
	return o == OperationSaveMemory || o == OperationGenerateSummary
}

// CharactersPerPage is the page size used for summary estimation.
const CharactersPerPage = 3000

// EstimatePages returns the number of summary pages text accounts for:
// ceil(characters/3000), never less than one. Empty or whitespace-only text
// is one page.
func EstimatePages(text string) int64 {
	if strings.TrimSpace(text) == "" {
		return 1
	}
	n := utf8.RuneCountInString(text)
	return max(1, int64(math.Ceil(float64(n)/CharactersPerPage)))
}
