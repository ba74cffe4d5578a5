package evidence

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// SpecialtyCategory maps one specialty to the words that reveal it.
type SpecialtyCategory struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// CredentialKeyword maps a credential mention to the green flag it earns.
type CredentialKeyword struct {
	Keyword string `yaml:"keyword"`
	Flag    string `yaml:"flag"`
}

// Keywords is the text-matching table used by the website and search adapters.
type Keywords struct {
	Specialties []SpecialtyCategory `yaml:"specialties"`
	Credentials []CredentialKeyword `yaml:"credentials"`
	Complaints  []string            `yaml:"complaints"`
}

// DefaultKeywords returns the embedded keyword table.
func DefaultKeywords() *Keywords {
	kw, err := ParseKeywords(defaultKeywordsYAML)
	if err != nil {
		panic(err) // embedded file is part of the build
	}
	return kw
}

// ParseKeywords decodes a YAML keyword table.
func ParseKeywords(data []byte) (*Keywords, error) {
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, eris.Wrap(err, "evidence: parse keywords")
	}
	if len(kw.Specialties) == 0 {
		return nil, eris.New("evidence: keyword table has no specialties")
	}
	return &kw, nil
}

var titleCaser = cases.Title(language.English)

// SpecialtyLabel turns a category key such as "general_construction" into
// its display label "General Construction".
func SpecialtyLabel(category string) string {
	return titleCaser.String(strings.ReplaceAll(category, "_", " "))
}

// MatchSpecialties returns the labels of every category with at least one
// keyword in text, in table order.
func (k *Keywords) MatchSpecialties(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, cat := range k.Specialties {
		for _, word := range cat.Keywords {
			if strings.Contains(lower, word) {
				out = append(out, SpecialtyLabel(cat.Category))
				break
			}
		}
	}
	return out
}

// MatchCredentials returns the green flags for credential keywords in text.
// Keywords sharing a flag contribute it once.
func (k *Keywords) MatchCredentials(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, c := range k.Credentials {
		if containsWord(lower, c.Keyword) {
			out = appendUnique(out, c.Flag)
		}
	}
	return out
}

// MatchComplaints returns the distinct complaint words found in text.
func (k *Keywords) MatchComplaints(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, w := range k.Complaints {
		if strings.Contains(lower, w) {
			out = append(out, w)
		}
	}
	return out
}

// containsWord is a substring match that refuses hits embedded in a longer
// word, so "bbb" does not match inside an unrelated token and "licensed" does
// not match "unlicensed".
func containsWord(text, word string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if (i == 0 || !isLetter(text[i-1])) && (end == len(text) || !isLetter(text[end])) {
			return true
		}
		start = i + 1
	}
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z'
}
