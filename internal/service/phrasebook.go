package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Phrasebook rewrites house phrasings into wording the planner understands.
// Each line reads "phrase,phrase:canonical"; blank lines and lines starting
// with # are ignored.
type Phrasebook struct {
	entries []phraseEntry
	rules   []phraseRule
}

type phraseEntry struct {
	phrases   []string
	canonical string
}

type phraseRule struct {
	re        *regexp.Regexp
	size      int
	canonical string
}

// LoadPhrasebook reads path. A missing file yields an empty phrasebook.
func LoadPhrasebook(path string) (*Phrasebook, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Phrasebook{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParsePhrasebook(f)
}

func ParsePhrasebook(r io.Reader) (*Phrasebook, error) {
	pb := &Phrasebook{}
	s := bufio.NewScanner(r)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("phrasebook line %d: expected phrase:canonical", lineNo)
		}
		entry := phraseEntry{canonical: strings.ToLower(strings.TrimSpace(parts[1]))}
		for _, p := range strings.Split(parts[0], ",") {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				entry.phrases = append(entry.phrases, p)
			}
		}
		if len(entry.phrases) == 0 {
			return nil, fmt.Errorf("phrasebook line %d: no phrases", lineNo)
		}
		pb.entries = append(pb.entries, entry)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	for _, e := range pb.entries {
		for _, p := range e.phrases {
			pb.rules = append(pb.rules, phraseRule{
				re:        regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b`),
				size:      len(p),
				canonical: e.canonical,
			})
		}
	}
	// Longer phrases first so "make it pop more" wins over "pop".
	sort.SliceStable(pb.rules, func(i, j int) bool {
		return pb.rules[i].size > pb.rules[j].size
	})
	return pb, nil
}

func (p *Phrasebook) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// Rewrite replaces known phrases outside double-quoted text. A leading
// target hint is kept as is.
func (p *Phrasebook) Rewrite(instruction string) string {
	if p.Len() == 0 {
		return instruction
	}
	prefix, rest := splitHintPrefix(instruction)
	segments := strings.Split(rest, `"`)
	for i := 0; i < len(segments); i += 2 {
		for _, r := range p.rules {
			segments[i] = r.re.ReplaceAllLiteralString(segments[i], r.canonical)
		}
	}
	return prefix + strings.Join(segments, `"`)
}

// RenderContext lists up to limit entries for a proposer prompt.
func (p *Phrasebook) RenderContext(limit int) string {
	if limit <= 0 {
		limit = 8
	}
	if p.Len() == 0 {
		return "(none)"
	}
	if limit > len(p.entries) {
		limit = len(p.entries)
	}
	lines := make([]string, 0, limit)
	for _, e := range p.entries[:limit] {
		lines = append(lines, fmt.Sprintf("- %s => %s", strings.Join(e.phrases, ", "), e.canonical))
	}
	return strings.Join(lines, "\n")
}
