package command

import (
	"regexp"
	"sort"
	"strings"
)

var namedColors = map[string]string{
	"black":     "#000000",
	"silver":    "#C0C0C0",
	"gray":      "#808080",
	"grey":      "#808080",
	"white":     "#FFFFFF",
	"maroon":    "#800000",
	"red":       "#FF0000",
	"purple":    "#800080",
	"fuchsia":   "#FF00FF",
	"magenta":   "#FF00FF",
	"green":     "#008000",
	"lime":      "#00FF00",
	"olive":     "#808000",
	"yellow":    "#FFFF00",
	"navy":      "#000080",
	"blue":      "#0000FF",
	"teal":      "#008080",
	"aqua":      "#00FFFF",
	"cyan":      "#00FFFF",
	"orange":    "#FFA500",
	"pink":      "#FFC0CB",
	"brown":     "#A52A2A",
	"gold":      "#FFD700",
	"indigo":    "#4B0082",
	"violet":    "#EE82EE",
	"beige":     "#F5F5DC",
	"coral":     "#FF7F50",
	"crimson":   "#DC143C",
	"turquoise": "#40E0D0",
}

var (
	reHex3    = regexp.MustCompile(`^#([0-9a-fA-F])([0-9a-fA-F])([0-9a-fA-F])$`)
	reHex6    = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	reHexText = regexp.MustCompile(`#(?:[0-9a-f]{6}|[0-9a-f]{3})\b`)
	reNames   = buildNameRegexp()
)

func buildNameRegexp() *regexp.Regexp {
	names := make([]string, 0, len(namedColors))
	for n := range namedColors {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\b`)
}

// NormalizeColor maps CSS names to upper-case #RRGGBB, expands #RGB, keeps
// "transparent" and returns anything else unchanged.
func NormalizeColor(c string) string {
	t := strings.ToLower(strings.TrimSpace(c))
	if t == "transparent" {
		return "transparent"
	}
	if hex, ok := namedColors[t]; ok {
		return hex
	}
	if m := reHex3.FindStringSubmatch(t); m != nil {
		return strings.ToUpper("#" + m[1] + m[1] + m[2] + m[2] + m[3] + m[3])
	}
	if reHex6.MatchString(t) {
		return strings.ToUpper(t)
	}
	return c
}

type colorMatch struct {
	hex   string
	start int
	end   int
}

// findColors returns every color mention in lower-cased text, in order.
func findColors(text string) []colorMatch {
	out := []colorMatch{}
	for _, loc := range reHexText.FindAllStringIndex(text, -1) {
		out = append(out, colorMatch{hex: NormalizeColor(text[loc[0]:loc[1]]), start: loc[0], end: loc[1]})
	}
	for _, loc := range reNames.FindAllStringIndex(text, -1) {
		out = append(out, colorMatch{hex: namedColors[text[loc[0]:loc[1]]], start: loc[0], end: loc[1]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}
