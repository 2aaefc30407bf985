package alias

import (
	"strings"

	"namelens/internal/segment"
)

// Literal rebuilds the name piece by piece, keeping token order, original
// delimiters and the leading run. Untranslated pieces are copied verbatim.
func (b *Builder) Literal(plan Plan) Result {
	var sb strings.Builder
	sb.WriteString(plan.Segments.Leading)

	last := len(plan.Pieces) - 1
	for i, pc := range plan.Pieces {
		sb.WriteString(pieceText(pc))
		d := pc.Delimiter
		if d == "" && b.opts.Joiner != "" && i < last && (translated(pc) || translated(plan.Pieces[i+1])) {
			d = b.opts.Joiner
		}
		sb.WriteString(d)
	}
	sb.WriteString(b.literalExtension(plan.Segments))

	cov := plan.Coverage()
	return Result{
		Alias:         sb.String(),
		Confidence:    ConfidenceFor(cov),
		Coverage:      cov,
		UnknownTokens: plan.Unknown(),
		Source:        plan.Source(),
	}
}

func (b *Builder) literalExtension(seg segment.Result) string {
	if !seg.HasExtension() {
		return ""
	}
	switch b.opts.ExtensionMode {
	case ExtDrop:
		return ""
	case ExtMap:
		if mapped, ok := b.opts.LiteralExtensions[seg.Extension]; ok && mapped != "" {
			return "." + Sanitize(strings.TrimPrefix(mapped, "."))
		}
	}
	return "." + seg.RawExtension
}

// translated reports whether the piece text differs from its source.
func translated(pc Piece) bool {
	return pc.Resolved && pc.Text != pc.Raw
}

// pieceText returns the output text; only translated text is sanitized so
// the source name passes through byte for byte.
func pieceText(pc Piece) string {
	if translated(pc) {
		return Sanitize(pc.Text)
	}
	return pc.Raw
}
