// Package profile parses raw CV text into structured candidate profiles.
package profile

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/talentmatch/talentmatch/internal/models"
)

// ErrNoText means the CV yielded no usable text.
var ErrNoText = errors.New("no text extracted from CV")

var (
	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe    = regexp.MustCompile(`(\+\d{1,3})?[\s.]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{2,4}[\s.-]?\d{0,2}`)
	linkedinRe = regexp.MustCompile(`(?i)linkedin\.com/in/[\w-]+`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Section heading markers, English and Turkish.
var (
	educationKeywords = []string{
		"üniversite", "university", "fakülte", "faculty", "bölüm", "department",
		"lisans", "bachelor", "yüksek lisans", "master", "doktora", "phd",
		"diploma", "derece", "degree", "mezun", "graduate",
	}
	experienceKeywords = []string{
		"deneyim", "experience", "tecrübe", "çalıştı", "worked", "görev",
		"position", "pozisyon", "şirket", "company", "kariyer",
	}
)

// knownSkills are matched against CV text case-insensitively. Multi-word
// skills match as substrings.
var knownSkills = []string{
	"python", "java", "javascript", "go", "typescript", "html", "css", "sql",
	"mongodb", "postgresql", "fastapi", "django", "flask", "react", "vue",
	"angular", "node.js", "docker", "kubernetes", "aws", "azure", "git",
	"linux", "windows", "machine learning", "deep learning", "nlp",
	"tensorflow", "pytorch", "opencv", "pandas", "numpy", "scikit-learn",
	"leadership", "team work", "communication", "problem solving",
	"project management",
}

// Parser turns raw CV text into a CandidateProfile.
type Parser struct {
	skills []string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithSkills replaces the built-in skill vocabulary.
func WithSkills(skills []string) ParserOption {
	return func(p *Parser) { p.skills = skills }
}

// NewParser creates a parser with the built-in skill vocabulary.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{skills: knownSkills}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds a candidate profile from raw CV text. filename is recorded on
// the profile; the ID is generated when empty.
func (p *Parser) Parse(text, filename string) (*models.CandidateProfile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	profile := &models.CandidateProfile{
		ID:           uuid.New().String(),
		PersonalInfo: p.personalInfo(text),
		Education:    p.education(text),
		Experience:   p.experience(text),
		Skills:       p.matchSkills(text),
		Language:     detectLanguage(text),
		RawText:      text,
		Filename:     filename,
	}
	return profile, nil
}

func (p *Parser) personalInfo(text string) models.PersonalInfo {
	info := models.PersonalInfo{}
	if m := emailRe.FindString(text); m != "" {
		info.Email = m
	}
	if m := phoneRe.FindString(text); strings.TrimSpace(m) != "" {
		info.Phone = strings.TrimSpace(m)
	}
	if m := linkedinRe.FindString(text); m != "" {
		info.LinkedIn = "https://" + strings.ToLower(m)
	}
	info.Name = guessName(text)
	return info
}

// guessName takes the first line that looks like a person's name: two to four
// capitalized words with no digits or contact markers.
func guessName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = cleanLine(line)
		if line == "" || strings.ContainsAny(line, "@0123456789/:") {
			continue
		}
		words := strings.Fields(line)
		if len(words) < 2 || len(words) > 4 {
			continue
		}
		capitalized := true
		for _, w := range words {
			r := []rune(w)
			if len(r) == 0 || !unicode.IsUpper(r[0]) {
				capitalized = false
				break
			}
		}
		if capitalized {
			return line
		}
	}
	return ""
}

func (p *Parser) education(text string) []models.Education {
	var out []models.Education
	var current *models.Education
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if containsAny(lower, educationKeywords) {
			if current != nil {
				out = append(out, *current)
			}
			current = &models.Education{
				Institution: cleanLine(line),
				Year:        yearRe.FindString(line),
				Degree:      degreeFrom(lower, line),
			}
			continue
		}
		if current != nil && current.Year == "" {
			current.Year = yearRe.FindString(line)
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	return out
}

// degreeFrom keeps the full line as the degree when it names one, so that
// education-level substring checks see the original wording.
func degreeFrom(lower, line string) string {
	for _, token := range []string{"bachelor", "master", "phd", "doktora", "lisans", "diploma"} {
		if strings.Contains(lower, token) {
			return cleanLine(line)
		}
	}
	return ""
}

func (p *Parser) experience(text string) []models.Experience {
	var out []models.Experience
	var current *models.Experience
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		if containsAny(lower, experienceKeywords) {
			if current != nil {
				out = append(out, *current)
			}
			current = &models.Experience{
				Position: cleanLine(line),
				Duration: yearRe.FindString(line),
			}
			continue
		}
		if current != nil && len(strings.TrimSpace(line)) > 20 {
			current.Description += cleanLine(line) + " "
		}
	}
	if current != nil {
		out = append(out, *current)
	}
	for i := range out {
		out[i].Description = strings.TrimSpace(out[i].Description)
	}
	return out
}

func (p *Parser) matchSkills(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]struct{})
	var skills []string
	for _, skill := range p.skills {
		if strings.Contains(lower, strings.ToLower(skill)) {
			if _, ok := seen[skill]; !ok {
				seen[skill] = struct{}{}
				skills = append(skills, skill)
			}
		}
	}
	sort.Strings(skills)
	return skills
}

// detectLanguage does a cheap Turkish/English split on diacritic frequency.
func detectLanguage(text string) string {
	score := 0
	for _, r := range text {
		switch r {
		case 'ç', 'ğ', 'ı', 'İ', 'ö', 'ş', 'ü', 'Ç', 'Ğ', 'Ö', 'Ş', 'Ü':
			score++
		}
	}
	if score > 10 {
		return "tr"
	}
	return "en"
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func cleanLine(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
