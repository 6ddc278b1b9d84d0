package command

import (
	"regexp"
	"strings"
)

const (
	TargetSelection = "selection"
	TargetArtboard  = "artboard"
	TargetAll       = "all"
)

// Hint is the parsed scope prefix of an instruction:
// "[target=selection,includeArtboard=true] make it red". Unknown keys are
// kept but not interpreted.
type Hint map[string]string

var reHint = regexp.MustCompile(`(?s)^\s*\[([^\]]*)\]\s*(.*)$`)

// ParseHint splits a leading bracketed hint off the instruction. Without a
// prefix it returns an empty hint and the instruction unchanged.
func ParseHint(instruction string) (Hint, string) {
	h := Hint{}
	m := reHint.FindStringSubmatch(instruction)
	if m == nil {
		return h, instruction
	}
	for _, pair := range strings.Split(m[1], ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		h[k] = strings.TrimSpace(v)
	}
	return h, m[2]
}

func (h Hint) Target() string {
	return strings.ToLower(h["target"])
}

func (h Hint) IncludeArtboard() bool {
	return strings.EqualFold(h["includeArtboard"], "true")
}
