package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zatekoja/nextbestaction/internal/domain/entities"
	"github.com/zatekoja/nextbestaction/pkg/config"
)

// Built-in rules. English phrases match as case-insensitive substrings so
// inflections like "cures" inside longer text still hit. Spanish stems are
// short enough to occur inside English words ("cura" in "accurate"), so they
// only match as whole words.
var (
	defaultBannedPhrases = phraseSet{
		substrings: []string{
			"cures", "100% effective", "no side effects", "miraculous",
			"revolutionary", "unique", "better than", "superior to",
		},
		words: []string{
			"cura", "100% efectivo", "sin efectos secundarios", "milagroso",
			"revolucionario", "único", "mejor que", "superior a",
		},
	}
	defaultComparativePhrases = phraseSet{
		substrings: []string{"better than", "superior to"},
		words:      []string{"mejor que", "superior a"},
	}
	defaultPromisePhrases = phraseSet{
		substrings: []string{"guarantees", "promises"},
		words:      []string{"garantiza", "promete"},
	}
)

// phraseSet holds normalized phrases split by how they are matched
type phraseSet struct {
	substrings []string
	words      []string
}

func (p phraseSet) normalized(extra []string) phraseSet {
	return phraseSet{
		substrings: normalizePhrases(p.substrings, extra),
		words:      normalizePhrases(p.words, nil),
	}
}

// matches returns every phrase found in the lowercased text
func (p phraseSet) matches(text string) []string {
	var found []string
	for _, phrase := range p.substrings {
		if strings.Contains(text, phrase) {
			found = append(found, phrase)
		}
	}
	for _, phrase := range p.words {
		if containsWord(text, phrase) {
			found = append(found, phrase)
		}
	}
	return found
}

// ComplianceValidator applies regulatory rules to outbound message text.
// It holds only immutable rule lists and is safe for concurrent use.
type ComplianceValidator struct {
	bannedPhrases      phraseSet
	comparativePhrases phraseSet
	promisePhrases     phraseSet
}

// NewComplianceValidator creates a validator with the built-in rules plus any
// extra rules. Extra phrases match as substrings.
func NewComplianceValidator(extra *config.ComplianceRules) *ComplianceValidator {
	if extra == nil {
		extra = &config.ComplianceRules{}
	}
	return &ComplianceValidator{
		bannedPhrases:      defaultBannedPhrases.normalized(extra.BannedPhrases),
		comparativePhrases: defaultComparativePhrases.normalized(extra.ComparativePhrases),
		promisePhrases:     defaultPromisePhrases.normalized(extra.PromisePhrases),
	}
}

// Validate checks a single message. Warnings may be present on an approved result.
func (v *ComplianceValidator) Validate(message string) entities.ComplianceResult {
	result := entities.ComplianceResult{
		Violations: make(map[entities.ViolationKind]bool),
		Warnings:   []string{},
	}
	text := strings.ToLower(message)

	for _, phrase := range v.bannedPhrases.matches(text) {
		result.Violations[entities.ViolationUnapprovedClaim] = true
		result.Warnings = append(result.Warnings, fmt.Sprintf("restricted phrase found: %q", phrase))
	}

	if len(v.comparativePhrases.matches(text)) > 0 {
		result.Violations[entities.ViolationCompetitorComparison] = true
		result.Warnings = append(result.Warnings, "direct comparisons with competitors are not allowed")
	}

	if len(v.promisePhrases.matches(text)) > 0 {
		result.Violations[entities.ViolationUnsubstantiatedPromise] = true
		result.Warnings = append(result.Warnings, "specific promises are not allowed without approved evidence")
	}

	if strings.TrimSpace(message) == "" {
		result.Warnings = append(result.Warnings, "message is empty")
	}

	result.Approved = len(result.Violations) == 0
	return result
}

// containsWord reports whether phrase occurs in text with no letter or digit
// directly on either side.
func containsWord(text, phrase string) bool {
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalizePhrases(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, phrase := range list {
			p := strings.ToLower(strings.TrimSpace(phrase))
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
