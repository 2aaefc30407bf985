package alias

import (
	"fmt"
	"strings"
	"unicode"

	"namelens/internal/segment"
)

// Natural picks one head noun and places every other piece before it in
// source order, so "analyze_hierarchy" reads as 层级分析. Variant words move
// into a parenthesized suffix and the extension becomes a semantic suffix.
func (b *Builder) Natural(plan Plan) Result {
	cats := b.opts.Categories
	suffix, mapped := b.naturalSuffix(plan.Segments)

	roles := make([]Category, len(plan.Pieces))
	for i, pc := range plan.Pieces {
		roles[i] = Noun
		if pc.Kind == segment.Word {
			roles[i] = cats.Of(pc.Key)
		}
	}

	head := pickHead(plan.Pieces, roles, mapped)

	var body, variants []string
	for i, pc := range plan.Pieces {
		if i == head {
			continue
		}
		if roles[i] == Variant {
			variants = append(variants, pieceText(pc))
			continue
		}
		body = append(body, pieceText(pc))
	}
	headText := ""
	if head >= 0 {
		headText = pieceText(plan.Pieces[head])
		body = append(body, headText)
	}

	var sb strings.Builder
	sb.WriteString(plan.Segments.Leading)
	sb.WriteString(joinNatural(body))
	if len(variants) > 0 {
		sb.WriteString("（")
		sb.WriteString(strings.Join(variants, "、"))
		sb.WriteString("）")
	}
	if suffix != "" && !(mapped && headText != "" && strings.HasSuffix(headText, suffix)) {
		sb.WriteString(suffix)
	}

	out := Truncate(Sanitize(sb.String()), b.opts.MaxAliasLength)
	if strings.TrimSpace(out) == "" {
		out = Truncate(Sanitize(plan.Name), b.opts.MaxAliasLength)
	}

	cov := plan.Coverage()
	res := Result{
		Alias:         out,
		Confidence:    ConfidenceFor(cov),
		Coverage:      cov,
		UnknownTokens: plan.Unknown(),
		Source:        plan.Source(),
	}
	if head >= 0 {
		res.DebugTrace = fmt.Sprintf("natural: head=%q role=%s variants=%d suffix=%q", plan.Pieces[head].Key, roles[head], len(variants), suffix)
	}
	return res
}

// naturalSuffix returns the text appended for the extension and whether it
// came from the semantic map. Unmapped extensions are kept as ".ext".
func (b *Builder) naturalSuffix(seg segment.Result) (string, bool) {
	if !seg.HasExtension() {
		return "", false
	}
	if s, ok := b.opts.NaturalExtensions[seg.Extension]; ok && s != "" {
		return s, true
	}
	return "." + seg.RawExtension, false
}

// pickHead chooses the head piece: the last UI noun, else the last action
// noun, else the last resolved plain noun, else a trailing acronym, else
// the last unresolved token when no semantic suffix can stand in and no
// numeral follows it. Returns -1 when nothing qualifies.
func pickHead(pieces []Piece, roles []Category, haveSuffix bool) int {
	lastOf := func(match func(int) bool) int {
		for i := len(pieces) - 1; i >= 0; i-- {
			if match(i) {
				return i
			}
		}
		return -1
	}

	if h := lastOf(func(i int) bool { return roles[i] == UINoun }); h >= 0 {
		return h
	}
	if h := lastOf(func(i int) bool { return roles[i] == ActionNoun }); h >= 0 {
		return h
	}
	if h := lastOf(func(i int) bool {
		return roles[i] == Noun && pieces[i].Resolved && pieces[i].Kind == segment.Word
	}); h >= 0 {
		return h
	}
	if n := len(pieces); n > 0 && pieces[n-1].Kind == segment.Acronym {
		return n - 1
	}
	if haveSuffix {
		return -1
	}
	h := lastOf(func(i int) bool { return !pieces[i].Resolved && roles[i] != Variant })
	// An unknown token followed by numerals is a version or counter run
	// and keeps source order.
	for i := h + 1; h >= 0 && i < len(pieces); i++ {
		if pieces[i].Kind == segment.Numeral {
			return -1
		}
	}
	return h
}

// joinNatural concatenates parts, inserting a space only where two ASCII
// letters or digits would otherwise run together.
func joinNatural(parts []string) string {
	var sb strings.Builder
	var prev rune
	for _, p := range parts {
		if p == "" {
			continue
		}
		first := []rune(p)[0]
		if prev != 0 && asciiAlnum(prev) && asciiAlnum(first) {
			sb.WriteByte(' ')
		}
		sb.WriteString(p)
		r := []rune(p)
		prev = r[len(r)-1]
	}
	return sb.String()
}

func asciiAlnum(r rune) bool {
	return r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
