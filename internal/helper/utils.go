package helper

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GenerateUUID creates a random unique UUID string
func GenerateUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID: %v", err)
	}
	return id.String(), nil
}

// RunID returns an identifier used to correlate the log lines of one analysis.
// It never fails; a nil UUID is used if the random source errors.
func RunID() string {
	id, err := GenerateUUID()
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to nil run id")
		return uuid.Nil.String()
	}
	return id
}

// pretty print
func PrettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Msg("Error pretty printing")
	}
	fmt.Println(string(b))
}

// Prefix returns at most n characters of s, counting runes.
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Excerpt is Prefix with "..." appended when s was cut.
func Excerpt(s string, n int) string {
	p := Prefix(s, n)
	if len(p) < len(s) {
		return p + "..."
	}
	return p
}

// CharCount counts runes.
func CharCount(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}
