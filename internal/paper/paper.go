package paper

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Paper is the canonical representation of one research paper, regardless of
// which source produced it.
type Paper struct {
	Title     string
	Authors   []string
	Abstract  string
	URL       string
	Source    string
	Published time.Time
}

// FirstAuthor returns the first author or "Unknown" when the list is empty.
func (p Paper) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return "Unknown"
	}
	return p.Authors[0]
}

// Normalize trims whitespace on every text field and drops empty author
// entries. It does not reject records; filtering malformed records is the
// fetcher's job.
func Normalize(p Paper) Paper {
	p.Title = strings.Join(strings.Fields(p.Title), " ")
	p.Abstract = strings.TrimSpace(p.Abstract)
	p.URL = strings.TrimSpace(p.URL)
	p.Source = strings.TrimSpace(p.Source)

	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	p.Authors = authors
	return p
}

var (
	arxivIDExpr = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5})`)
	punctExpr   = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// TitleKey derives the normalized-title half of the dedup identity:
// case-folded, punctuation-stripped, whitespace-collapsed.
func TitleKey(title string) string {
	t := strings.ToLower(title)
	t = punctExpr.ReplaceAllString(t, " ")
	return "title:" + strings.Join(strings.Fields(t), " ")
}

// Keys returns every dedup key a paper answers to: the normalized title and,
// when the URL carries an arXiv identifier, "arxiv:<id>". Two papers sharing
// any key are the same paper.
func Keys(p Paper) []string {
	keys := []string{TitleKey(p.Title)}
	if m := arxivIDExpr.FindStringSubmatch(p.URL); m != nil {
		keys = append(keys, "arxiv:"+m[1])
	}
	return keys
}

// PrimaryKey returns the strongest single identity for persistence: the arXiv
// id when present, otherwise the normalized title.
func PrimaryKey(p Paper) string {
	keys := Keys(p)
	return keys[len(keys)-1]
}

// Dedupe collapses duplicates across sources, keeping the first occurrence of
// each identity and preserving input order. Records with an empty title pass
// through unchanged. The function is pure and idempotent.
func Dedupe(papers []Paper) []Paper {
	seen := make(map[string]struct{}, len(papers))
	out := make([]Paper, 0, len(papers))

	for _, p := range papers {
		if p.Title == "" {
			out = append(out, p)
			continue
		}

		keys := Keys(p)
		dup := false
		for _, k := range keys {
			if _, ok := seen[k]; ok {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		out = append(out, p)
	}

	return out
}

// RunMetadata describes one pipeline run. It is created once and shared
// read-only by every renderer.
type RunMetadata struct {
	RunID     string
	Date      time.Time
	Topic     string
	Total     int
	PerSource map[string]int
}

// NewRunMetadata builds run metadata from the final paper selection.
func NewRunMetadata(topic string, date time.Time, papers []Paper) RunMetadata {
	perSource := make(map[string]int, 4)
	for _, p := range papers {
		source := p.Source
		if source == "" {
			source = "Unknown"
		}
		perSource[source]++
	}
	return RunMetadata{
		RunID:     uuid.NewString(),
		Date:      date,
		Topic:     topic,
		Total:     len(papers),
		PerSource: perSource,
	}
}

// SourceNames returns the per-source keys in deterministic order.
func (m RunMetadata) SourceNames() []string {
	names := make([]string, 0, len(m.PerSource))
	for name := range m.PerSource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
