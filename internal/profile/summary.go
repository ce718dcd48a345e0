package profile

import (
	"sort"
	"strings"

	"github.com/talentmatch/talentmatch/internal/models"
)

// Summary is an extractive summary of a candidate profile: the highest-scoring
// sentences of the CV in their original order, plus the most frequent terms.
type Summary struct {
	Text           string   `json:"summary"`
	Sentences      []string `json:"sentences"`
	Keywords       []string `json:"keywords"`
	Method         string   `json:"method"`
	OriginalLength int      `json:"original_length"`
	SummaryLength  int      `json:"summary_length"`
}

const defaultSummarySentences = 3

// splitSentences breaks CV text into sentences on terminal punctuation and
// newlines. CVs are often bullet lists rather than prose, so a bare newline
// also ends a sentence.
func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		b.Reset()
		if s != "" {
			out = append(out, s)
		}
	}
	for _, r := range text {
		switch r {
		case '.', '!', '?', '\n':
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return out
}

// summaryStopwords are filler words excluded from frequency scoring, English
// and Turkish.
var summaryStopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "have": {}, "has": {}, "was": {}, "were": {}, "are": {},
	"been": {}, "will": {}, "your": {}, "their": {}, "into": {}, "over": {},
	"bir": {}, "için": {}, "ile": {}, "olarak": {}, "olan": {}, "veya": {},
	"daha": {}, "gibi": {}, "kadar": {}, "sonra": {}, "önce": {}, "üzere": {},
}

// Summarize produces an extractive summary of the profile. Sentences are
// ranked by the document frequency of their terms; the top maxSentences are
// returned in original order. maxSentences <= 0 uses the default of 3.
// Returns ErrNoText when the profile carries no summarizable text.
func Summarize(p *models.CandidateProfile, maxSentences int) (*Summary, error) {
	if maxSentences <= 0 {
		maxSentences = defaultSummarySentences
	}
	text := combineProfileText(p)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, ErrNoText
	}

	freq := termFrequencies(text)
	keywords := topKeywords(freq, 10)

	if len(sentences) <= maxSentences {
		return &Summary{
			Text:           strings.Join(sentences, ". "),
			Sentences:      sentences,
			Keywords:       keywords,
			Method:         "full_text",
			OriginalLength: len(sentences),
			SummaryLength:  len(sentences),
		}, nil
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		var sum float64
		for _, w := range summaryTerms(s) {
			sum += float64(freq[w])
		}
		ranked[i] = scored{idx: i, score: sum}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	picked := make([]int, maxSentences)
	for i := range picked {
		picked[i] = ranked[i].idx
	}
	sort.Ints(picked)

	selected := make([]string, len(picked))
	for i, idx := range picked {
		selected[i] = sentences[idx]
	}
	return &Summary{
		Text:           strings.Join(selected, ". "),
		Sentences:      selected,
		Keywords:       keywords,
		Method:         "extractive",
		OriginalLength: len(sentences),
		SummaryLength:  len(selected),
	}, nil
}

// Recommendations lists concrete improvements for a sparse profile, in the
// order checks run. A well-filled profile yields an empty list.
func Recommendations(p *models.CandidateProfile) []string {
	var recs []string
	if len(p.Skills) < 5 {
		recs = append(recs, "Add more technical skills")
	}
	if len(p.Experience) == 0 {
		recs = append(recs, "Detail your work experience")
	}
	if len(p.Education) == 0 {
		recs = append(recs, "Add your education history")
	}
	if p.PersonalInfo.Email == "" {
		recs = append(recs, "Complete your contact information")
	}
	if !mentionsProjects(p.Experience) {
		recs = append(recs, "Highlight project work in your experience entries")
	}
	return recs
}

func mentionsProjects(exps []models.Experience) bool {
	for _, e := range exps {
		combined := strings.ToLower(e.Position + " " + e.Description)
		if strings.Contains(combined, "project") || strings.Contains(combined, "proje") {
			return true
		}
	}
	return false
}

// combineProfileText flattens the structured profile plus raw text into one
// document, original casing preserved for readable summary sentences.
func combineProfileText(p *models.CandidateProfile) string {
	var parts []string
	if p.PersonalInfo.Name != "" {
		parts = append(parts, p.PersonalInfo.Name)
	}
	for _, edu := range p.Education {
		line := strings.TrimSpace(strings.Join([]string{edu.Degree, edu.Field, edu.Institution}, " "))
		if line != "" {
			parts = append(parts, line)
		}
	}
	for _, exp := range p.Experience {
		line := strings.TrimSpace(strings.Join([]string{exp.Position, exp.Company, exp.Description}, " "))
		if line != "" {
			parts = append(parts, line)
		}
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if p.RawText != "" {
		parts = append(parts, p.RawText)
	}
	return strings.Join(parts, "\n")
}

// summaryTerms lowercases and filters a sentence down to scoreable terms:
// alphanumeric words longer than three runes that are not stopwords.
func summaryTerms(s string) []string {
	var terms []string
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	}) {
		if len([]rune(w)) <= 3 {
			continue
		}
		if _, stop := summaryStopwords[w]; stop {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range summaryTerms(text) {
		freq[w]++
	}
	return freq
}

// topKeywords returns up to n terms by descending frequency, ties broken
// alphabetically for stable output.
func topKeywords(freq map[string]int, n int) []string {
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}
