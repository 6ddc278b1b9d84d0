package command

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"canvas-agent/internal/model"
)

// planContext is the state shared by the rules of one planning call.
type planContext struct {
	raw     string // hint-stripped instruction, original case
	text    string // lower-cased; add_text content is cut out
	snap    *model.CanvasSnapshot
	targets []string
	// fromMemory marks targets taken from the previous command.
	fromMemory bool

	aligned     bool
	addedText   bool
	strokeDone  bool
	claimedHues map[int]bool
}

func (c *planContext) has(re *regexp.Regexp) bool {
	return re.MatchString(c.text)
}

func (c *planContext) textTargets() []string {
	return textTargets(c.snap, c.targets)
}

// rule is one entry of the ordered battery. match must be cheap and side
// effect free; build may return nil when the rule cannot produce anything
// for the current targets.
type rule struct {
	name  string
	match func(*planContext) bool
	build func(*planContext) []model.Action
}

const reNumber = `(\d+(?:\.\d+)?|\.\d+)`

var (
	reTextMention = regexp.MustCompile(`\b(text|texts|heading|headings|headline|headlines|title|titles|subtitle|label|labels|caption|captions|font|copy)\b`)
	reReferent    = regexp.MustCompile(`\b(it|them|those|these|that|this|same)\b`)

	reAddText  = regexp.MustCompile(`(?i)\b(add|insert|write|create)\s+(?:a\s+|an\s+|the\s+|some\s+|new\s+)*(heading|headline|title|subtitle|text|label|caption)\b[\s:,]*(.*)$`)
	// A single quote only opens or closes at a word edge, so apostrophes
	// inside the content survive.
	reQuoted   = regexp.MustCompile(`"([^"]+)"|“([^”]+)”|(?:^|[^\p{L}\p{N}])'(.+?)'(?:[^\p{L}\p{N}]|$)`)
	reInColor  = regexp.MustCompile(`\bin\s+$`)
	reLeadFill = regexp.MustCompile(`(?i)^(?:that\s+says|saying|which\s+says|reading|with\s+(?:the\s+)?text|with|of|called|named|says)\s+`)

	reCenterWord  = regexp.MustCompile(`\bcent(?:er|re)(?:ed|s)?\b`)
	reAlignWord   = regexp.MustCompile(`\baligns?\b|\baligned\b|\balignment\b`)
	reTextAlign   = regexp.MustCompile(`\btext[- ]?align(?:ment)?\b|\bjustif(?:y|ied)\b`)
	reTextAlignTo = regexp.MustCompile(`\b(left|right|center|centre|justify|justified)\b`)
	reAlignDir    = regexp.MustCompile(`\b(left|right|top|bottom|center|centre|middle|horizontally|vertically)\b`)
	reClauseBreak = regexp.MustCompile(`[,;]|\bthen\b|\b(?:move|shift|nudge|push|drag|slide|make|set|change|resize|scale|delete|remove|add|insert|arrange|paint|turn)\b`)

	rePercent       = regexp.MustCompile(reNumber + `\s*%`)
	reResizeWord    = regexp.MustCompile(`\b(resize|rescale|scale|size|bigger|larger|smaller|grow|shrink|enlarge|increase|decrease|reduce)\b`)
	reGrowWord      = regexp.MustCompile(`\b(bigger|larger|enlarge|increase|grow)\b|\bscale\s+up\b`)
	reShrinkWord    = regexp.MustCompile(`\b(smaller|decrease|shrink|reduce)\b|\bscale\s+down\b`)
	reFontSize      = regexp.MustCompile(`\b(?:font|text)[- ]?size\b`)
	reOpacityWord   = regexp.MustCompile(`\b(opacity|transparent|transparency|translucent|opaque|fade|faded|see[- ]through|invisible)\b`)
	reSpacingWord   = regexp.MustCompile(`\b(spacing|gap|gaps|apart|space)\b`)
	reMoveVerb      = regexp.MustCompile(`\b(move|shift|nudge|push|drag|slide)\b`)
	reMoveDir       = regexp.MustCompile(`\b(left|right|up|upwards?|down|downwards?)\b`)
	rePixelsBefore  = regexp.MustCompile(reNumber + `\s*(?:px|pixels?)?\s+(?:to\s+the\s+)?$`)
	rePixelsAfter   = regexp.MustCompile(`^\s*(?:by\s+)?` + reNumber + `\s*(?:px|pixels?)?\b`)
	rePixelsDirect  = regexp.MustCompile(reNumber + `\s*(?:px|pixels?)\s+(?:to\s+the\s+)?(left|right|up|down)\b`)
	reArrange       = regexp.MustCompile(`\b(arrange|distribute|line\s+up|lay\s+out|layout|space\s+out|spread\s+out|in\s+a\s+row|side\s+by\s+side)\b`)
	rePixels        = regexp.MustCompile(reNumber + `\s*(?:px|pixels?)\b`)
	reStrokeRemoval = regexp.MustCompile(`\b(remove|delete|clear|drop|no|without|hide)\s+(?:the\s+|any\s+|all\s+)?(border|stroke|outline)s?\b`)
	reDelete        = regexp.MustCompile(`\b(delete|remove|clear|erase)\b`)
	reStyleNoun     = regexp.MustCompile(`^\s*(?:the\s+|any\s+|all\s+|its\s+)?(border|stroke|outline|bold|bolding|fill|colou?r|opacity|transparency|shadow|style|styling|formatting|underline|italic)s?\b`)
	reStrokeWord    = regexp.MustCompile(`\b(border|stroke|outline)s?\b`)
	reColorVerb     = regexp.MustCompile(`\b(make|change|set|colou?r|fill|paint|turn|recolou?r|tint)\b|\b(?:text|font)\s+colou?r\b`)
	reThick         = regexp.MustCompile(`\b(thick|thicker|heavy)\b`)
	reThin          = regexp.MustCompile(`\b(thin|thinner|hairline)\b`)
	reFillWord      = regexp.MustCompile(`\bfill\b`)
	reSemiOpacity   = regexp.MustCompile(`\b(semi[- ]?transparent|translucent|half[- ]transparent|see[- ]through)\b`)
	reOpacityNumber = regexp.MustCompile(`\bopacity\s*(?:to|of|at|=|:)?\s*` + reNumber + `\b`)
	reOpaque        = regexp.MustCompile(`\bopaque\b`)
	reTransparent   = regexp.MustCompile(`\b(transparent|transparency|invisible)\b`)
	reFade          = regexp.MustCompile(`\b(fade|faded)\b`)
	reBold          = regexp.MustCompile(`\b(bold|bolder|bolden|embolden)\b`)
	reUnbold        = regexp.MustCompile(`\bunbold\b|\b(?:remove|no|not|without)\s+(?:the\s+)?bold\b|\b(?:normal|regular)\s+weight\b`)
	reFontSizeValue = regexp.MustCompile(`\b(?:font|text)[- ]?size\s*(?:to|of|at|=|:)?\s*` + reNumber)
	reFontSizePx    = regexp.MustCompile(reNumber + `\s*(?:px|pt)\s+(?:font|text)\b`)
	reFontWord      = regexp.MustCompile(`\b(fonts?|typeface)\b`)
)

var fontFamilies = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`\btimes new roman\b`), "Times New Roman"},
	{regexp.MustCompile(`\bcourier new\b`), "Courier New"},
	{regexp.MustCompile(`\bplayfair display\b`), "Playfair Display"},
	{regexp.MustCompile(`\bopen sans\b`), "Open Sans"},
	{regexp.MustCompile(`\binter\b`), "Inter"},
	{regexp.MustCompile(`\barial\b`), "Arial"},
	{regexp.MustCompile(`\bhelvetica\b`), "Helvetica"},
	{regexp.MustCompile(`\bgeorgia\b`), "Georgia"},
	{regexp.MustCompile(`\broboto\b`), "Roboto"},
	{regexp.MustCompile(`\bmontserrat\b`), "Montserrat"},
	{regexp.MustCompile(`\bverdana\b`), "Verdana"},
	{regexp.MustCompile(`\blato\b`), "Lato"},
	{regexp.MustCompile(`\bpoppins\b`), "Poppins"},
}

// rules run in this order; earlier rules may claim parts of the instruction
// so later ones do not reinterpret them.
var rules = []rule{
	{name: "add_text", match: matchAddText, build: buildAddText},
	{name: "center", match: matchCenter, build: buildCenter},
	{name: "text_align", match: matchTextAlign, build: buildTextAlign},
	{name: "align", match: matchAlign, build: buildAlign},
	{name: "percent_resize", match: matchPercentResize, build: buildPercentResize},
	{name: "resize", match: matchQualitativeResize, build: buildQualitativeResize},
	{name: "move", match: matchMove, build: buildMove},
	{name: "arrange", match: matchArrange, build: buildArrange},
	{name: "stroke_removal", match: matchStrokeRemoval, build: buildStrokeRemoval},
	{name: "delete", match: matchDelete, build: buildDelete},
	{name: "stroke", match: matchStroke, build: buildStroke},
	{name: "color", match: matchColor, build: buildColor},
	{name: "opacity", match: matchOpacity, build: buildOpacity},
	{name: "bold", match: matchBold, build: buildBold},
	{name: "font_size", match: matchFontSize, build: buildFontSize},
	{name: "font_family", match: matchFontFamily, build: buildFontFamily},
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// findQuoted returns the first quoted span of s and the offset just past
// its closing quote.
func findQuoted(s string) (string, int, bool) {
	q := reQuoted.FindStringSubmatchIndex(s)
	if q == nil {
		return "", 0, false
	}
	switch {
	case q[2] >= 0:
		return s[q[2]:q[3]], q[1], true
	case q[4] >= 0:
		return s[q[4]:q[5]], q[1], true
	}
	return s[q[6]:q[7]], q[7] + 1, true
}

// "write" and "create" also read as editing verbs ("write the heading in
// blue"), so they only insert text when the content is quoted.
func matchAddText(c *planContext) bool {
	m := reAddText.FindStringSubmatch(c.raw)
	if m == nil {
		return false
	}
	switch strings.ToLower(m[1]) {
	case "add", "insert":
		return true
	}
	_, _, ok := findQuoted(m[3])
	return ok
}

func buildAddText(c *planContext) []model.Action {
	loc := reAddText.FindStringSubmatchIndex(c.raw)
	if loc == nil {
		return nil
	}
	kind := strings.ToLower(c.raw[loc[4]:loc[5]])
	rest := c.raw[loc[6]:loc[7]]
	content := ""
	// Quoted content ends the text; anything after the closing quote is
	// still an instruction. Unquoted content runs to the end.
	if quoted, end, ok := findQuoted(rest); ok {
		content = strings.TrimSpace(quoted)
		c.text = strings.ToLower(c.raw[:loc[0]] + " " + rest[end:])
	} else {
		content = strings.TrimSpace(reLeadFill.ReplaceAllString(strings.TrimSpace(rest), ""))
		content = strings.TrimRight(content, ".!")
		c.text = strings.ToLower(c.raw[:loc[0]])
	}
	if content == "" {
		return nil
	}
	c.addedText = true
	p := model.AddTextParams{Text: content, ArtboardID: c.snap.ActiveArtboardID()}
	switch kind {
	case "heading", "headline", "title":
		p.FontSize = model.Float(48)
	case "subtitle":
		p.FontSize = model.Float(32)
	}
	return []model.Action{{ObjectIDs: []string{}, Params: p}}
}

func matchCenter(c *planContext) bool {
	return c.has(reCenterWord) && !c.has(reAlignWord) && !c.has(reTextAlign)
}

func buildCenter(c *planContext) []model.Action {
	if len(c.targets) == 0 {
		return nil
	}
	c.aligned = true
	return []model.Action{{
		ObjectIDs: c.targets,
		Params:    model.AlignParams{Horizontal: model.AlignCenterH, Vertical: model.AlignCenterV},
	}}
}

func matchTextAlign(c *planContext) bool {
	if c.has(reTextAlign) {
		return true
	}
	return c.has(reAlignWord) && c.has(reTextMention) && c.has(reTextAlignTo)
}

func buildTextAlign(c *planContext) []model.Action {
	ids := c.textTargets()
	m := reTextAlignTo.FindStringSubmatch(c.text)
	if len(ids) == 0 || m == nil {
		return nil
	}
	v := m[1]
	switch v {
	case "centre":
		v = "center"
	case "justified":
		v = "justify"
	}
	c.aligned = true
	return []model.Action{{ObjectIDs: ids, Params: model.SetTextStyleParams{TextAlign: model.String(v)}}}
}

func matchAlign(c *planContext) bool {
	return !c.aligned && c.has(reAlignWord)
}

func buildAlign(c *planContext) []model.Action {
	if len(c.targets) == 0 {
		return nil
	}
	// Only the clause that starts at the align word counts, so "align left
	// and move right" keeps its horizontal edge.
	loc := reAlignWord.FindStringIndex(c.text)
	clause := c.text[loc[1]:]
	if b := reClauseBreak.FindStringIndex(clause); b != nil {
		clause = clause[:b[0]]
	}
	var p model.AlignParams
	for _, m := range reAlignDir.FindAllStringSubmatch(clause, -1) {
		switch m[1] {
		case "left":
			p.Horizontal = model.AlignLeft
		case "right":
			p.Horizontal = model.AlignRight
		case "top":
			p.Vertical = model.AlignTop
		case "bottom":
			p.Vertical = model.AlignBottom
		case "middle", "horizontally":
			p.Horizontal = model.AlignCenterH
		case "vertically":
			p.Vertical = model.AlignCenterV
		case "center", "centre":
			if p.Horizontal == "" {
				p.Horizontal = model.AlignCenterH
			} else if p.Vertical == "" {
				p.Vertical = model.AlignCenterV
			}
		}
	}
	if p.Horizontal == "" && p.Vertical == "" {
		return nil
	}
	c.aligned = true
	return []model.Action{{ObjectIDs: c.targets, Params: p}}
}

func resizeBlocked(c *planContext) bool {
	return c.has(reFontSize) || c.has(reOpacityWord) || c.has(reSpacingWord)
}

func matchPercentResize(c *planContext) bool {
	return c.has(rePercent) && c.has(reResizeWord) && !resizeBlocked(c)
}

func buildPercentResize(c *planContext) []model.Action {
	m := rePercent.FindStringSubmatch(c.text)
	n, ok := parseNumber(m[1])
	if !ok || len(c.targets) == 0 {
		return nil
	}
	s := clampScale(n / 100)
	return []model.Action{{ObjectIDs: c.targets, Params: model.ResizeParams{ScaleX: s, ScaleY: s}}}
}

func matchQualitativeResize(c *planContext) bool {
	if c.has(rePercent) || resizeBlocked(c) {
		return false
	}
	return c.has(reGrowWord) || c.has(reShrinkWord)
}

// buildQualitativeResize sets a fixed scale; it does not compound with the
// object's current one.
func buildQualitativeResize(c *planContext) []model.Action {
	if len(c.targets) == 0 {
		return nil
	}
	s := shrinkScale
	if c.has(reGrowWord) {
		s = growScale
	}
	return []model.Action{{ObjectIDs: c.targets, Params: model.ResizeParams{ScaleX: s, ScaleY: s}}}
}

func matchMove(c *planContext) bool {
	if c.has(rePixelsDirect) {
		return true
	}
	return c.has(reMoveVerb) && c.has(reMoveDir)
}

func buildMove(c *planContext) []model.Action {
	// With a verb present only the words after it count, so "align left
	// and move down" does not also nudge left.
	text := c.text
	if loc := reMoveVerb.FindStringIndex(text); loc != nil && !c.has(rePixelsDirect) {
		text = text[loc[0]:]
	}
	var dx, dy float64
	for _, loc := range reMoveDir.FindAllStringSubmatchIndex(text, -1) {
		dir := text[loc[2]:loc[3]]
		n := defaultNudge
		if m := rePixelsAfter.FindStringSubmatch(text[loc[1]:]); m != nil {
			if v, ok := parseNumber(m[1]); ok {
				n = v
			}
		} else if m := rePixelsBefore.FindStringSubmatch(text[:loc[0]]); m != nil {
			if v, ok := parseNumber(m[1]); ok {
				n = v
			}
		}
		switch {
		case dir == "left":
			dx -= n
		case dir == "right":
			dx += n
		case strings.HasPrefix(dir, "up"):
			dy -= n
		case strings.HasPrefix(dir, "down"):
			dy += n
		}
	}
	if dx == 0 && dy == 0 {
		return nil
	}
	out := []model.Action{}
	for _, id := range c.targets {
		o, ok := c.snap.Object(id)
		if !ok {
			continue
		}
		out = append(out, model.Action{
			ObjectIDs: []string{id},
			Params:    model.MoveParams{Left: o.Left + dx, Top: o.Top + dy},
		})
	}
	return out
}

func matchArrange(c *planContext) bool {
	return c.has(reArrange)
}

func buildArrange(c *planContext) []model.Action {
	var ids []string
	for _, id := range c.targets {
		if o, ok := c.snap.Object(id); ok && !o.IsArtboard {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil
	}
	p := model.GroupParams{}
	if m := rePixels.FindStringSubmatch(c.text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			p.Spacing = model.Float(clampSpacing(v))
		}
	}
	return []model.Action{{ObjectIDs: ids, Params: p}}
}

func matchStrokeRemoval(c *planContext) bool {
	return c.has(reStrokeRemoval)
}

func buildStrokeRemoval(c *planContext) []model.Action {
	if len(c.targets) == 0 {
		return nil
	}
	c.strokeDone = true
	return []model.Action{{
		ObjectIDs: c.targets,
		Params:    model.SetStrokeParams{Stroke: "transparent", StrokeWidth: model.Float(0)},
	}}
}

func matchDelete(c *planContext) bool {
	for _, loc := range reDelete.FindAllStringIndex(c.text, -1) {
		if !reStyleNoun.MatchString(c.text[loc[1]:]) {
			return true
		}
	}
	return false
}

// buildDelete only ever removes what the user pointed at: the selection,
// or with nothing selected, the objects of the previous command when
// referred back to.
func buildDelete(c *planContext) []model.Action {
	ids := c.snap.SelectedObjectIDs
	if len(ids) == 0 && c.fromMemory {
		ids = c.targets
	}
	if len(ids) == 0 {
		return nil
	}
	return []model.Action{{ObjectIDs: append([]string(nil), ids...), Params: model.DeleteParams{}}}
}

func matchStroke(c *planContext) bool {
	return !c.strokeDone && c.has(reStrokeWord)
}

func buildStroke(c *planContext) []model.Action {
	if len(c.targets) == 0 {
		return nil
	}
	loc := reStrokeWord.FindStringIndex(c.text)
	at := loc[0]

	stroke := namedColors["black"]
	best := -1
	for _, cm := range findColors(c.text) {
		d := distance(cm.start, cm.end, loc[0], loc[1])
		if best < 0 || d < best {
			best = d
			stroke = cm.hex
			at = cm.start
		}
	}
	if best >= 0 {
		c.claimedHues[at] = true
	}

	width := defaultStrokeWidth
	bestW := -1
	for _, m := range rePixels.FindAllStringSubmatchIndex(c.text, -1) {
		d := distance(m[0], m[1], loc[0], loc[1])
		if v, ok := parseNumber(c.text[m[2]:m[3]]); ok && (bestW < 0 || d < bestW) {
			bestW = d
			width = v
		}
	}
	if bestW < 0 {
		switch {
		case c.has(reThick):
			width = 4
		case c.has(reThin):
			width = 1
		}
	}
	c.strokeDone = true
	return []model.Action{{
		ObjectIDs: c.targets,
		Params:    model.SetStrokeParams{Stroke: stroke, StrokeWidth: model.Float(width)},
	}}
}

func distance(s1, e1, s2, e2 int) int {
	switch {
	case e1 <= s2:
		return s2 - e1
	case e2 <= s1:
		return s1 - e2
	}
	return 0
}

func matchColor(c *planContext) bool {
	free := c.freeColors()
	if len(free) == 0 {
		return false
	}
	return c.has(reColorVerb) || c.colorAfterIn(free)
}

// colorAfterIn reports a colour phrased as "... in blue". After add_text
// that phrasing describes the new text, which the rule cannot target.
func (c *planContext) colorAfterIn(free []colorMatch) bool {
	if c.addedText {
		return false
	}
	for _, cm := range free {
		if reInColor.MatchString(c.text[:cm.start]) {
			return true
		}
	}
	return false
}

func (c *planContext) freeColors() []colorMatch {
	var out []colorMatch
	for _, cm := range findColors(c.text) {
		if !c.claimedHues[cm.start] {
			out = append(out, cm)
		}
	}
	return out
}

func buildColor(c *planContext) []model.Action {
	free := c.freeColors()
	if len(free) == 0 || len(c.targets) == 0 {
		return nil
	}
	pick := free[len(free)-1]
	if loc := reFillWord.FindStringIndex(c.text); loc != nil {
		best := -1
		for _, cm := range free {
			if d := distance(cm.start, cm.end, loc[0], loc[1]); best < 0 || d < best {
				best = d
				pick = cm
			}
		}
	}
	c.claimedHues[pick.start] = true

	if ids := c.textTargets(); len(ids) > 0 && c.has(reTextMention) {
		return []model.Action{{ObjectIDs: ids, Params: model.SetTextStyleParams{Fill: model.String(pick.hex)}}}
	}
	return []model.Action{{ObjectIDs: c.targets, Params: model.SetFillParams{Fill: pick.hex}}}
}

func matchOpacity(c *planContext) bool {
	return c.has(reOpacityWord)
}

func buildOpacity(c *planContext) []model.Action {
	if len(c.targets) == 0 {
		return nil
	}
	v, ok := opacityValue(c.text)
	if !ok {
		return nil
	}
	return []model.Action{{ObjectIDs: c.targets, Params: model.SetOpacityParams{Opacity: clampOpacity(v)}}}
}

func opacityValue(text string) (float64, bool) {
	if reSemiOpacity.MatchString(text) {
		return 0.5, true
	}
	if m := rePercent.FindStringSubmatch(text); m != nil {
		n, ok := parseNumber(m[1])
		if !ok {
			return 0, false
		}
		if reTransparent.MatchString(text) {
			return 1 - n/100, true
		}
		return n / 100, true
	}
	if m := reOpacityNumber.FindStringSubmatch(text); m != nil {
		n, ok := parseNumber(m[1])
		if !ok {
			return 0, false
		}
		if n > 1 {
			n /= 100
		}
		return n, true
	}
	switch {
	case reOpaque.MatchString(text):
		return 1, true
	case reTransparent.MatchString(text):
		return 0, true
	case reFade.MatchString(text):
		return 0.5, true
	}
	return 0, false
}

func matchBold(c *planContext) bool {
	return c.has(reBold) || c.has(reUnbold)
}

func buildBold(c *planContext) []model.Action {
	ids := c.textTargets()
	if len(ids) == 0 {
		return nil
	}
	weight := "bold"
	if c.has(reUnbold) {
		weight = "normal"
	}
	return []model.Action{{ObjectIDs: ids, Params: model.SetTextStyleParams{FontWeight: model.String(weight)}}}
}

func matchFontSize(c *planContext) bool {
	return c.has(reFontSizeValue) || c.has(reFontSizePx)
}

func buildFontSize(c *planContext) []model.Action {
	ids := c.textTargets()
	if len(ids) == 0 {
		return nil
	}
	m := reFontSizeValue.FindStringSubmatch(c.text)
	if m == nil {
		m = reFontSizePx.FindStringSubmatch(c.text)
	}
	n, ok := parseNumber(m[1])
	if !ok {
		return nil
	}
	return []model.Action{{ObjectIDs: ids, Params: model.SetTextStyleParams{FontSize: model.Float(clampFontSize(n))}}}
}

func matchFontFamily(c *planContext) bool {
	if !c.has(reFontWord) {
		return false
	}
	for _, f := range fontFamilies {
		if f.pattern.MatchString(c.text) {
			return true
		}
	}
	return false
}

func buildFontFamily(c *planContext) []model.Action {
	ids := c.textTargets()
	if len(ids) == 0 {
		return nil
	}
	for _, f := range fontFamilies {
		if f.pattern.MatchString(c.text) {
			return []model.Action{{ObjectIDs: ids, Params: model.SetTextStyleParams{FontFamily: model.String(f.name)}}}
		}
	}
	return nil
}
