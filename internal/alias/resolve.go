package alias

import (
	"strings"

	"namelens/internal/dictionary"
	"namelens/internal/segment"
)

// Piece is one output unit: a phrase, a single token, or an unresolved token.
type Piece struct {
	Start  int `json:"start"`
	Length int `json:"length"`
	// Key is the normalized token, space-joined for phrases.
	Key string `json:"key"`
	// Raw is the source text of the consumed tokens.
	Raw        string       `json:"raw"`
	Text       string       `json:"text"`
	Kind       segment.Kind `json:"kind"`
	Resolved   bool         `json:"resolved"`
	Source     Source       `json:"source,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	// Delimiter is the separator that followed the last consumed token.
	Delimiter string `json:"delimiter"`
}

// Plan is a segmented name with its pieces resolved against one snapshot.
type Plan struct {
	Name     string
	Segments segment.Result
	Pieces   []Piece
}

// Total returns the number of source tokens.
func (p Plan) Total() int {
	return len(p.Segments.Tokens)
}

// ResolvedTokens counts tokens covered by resolved pieces.
func (p Plan) ResolvedTokens() int {
	n := 0
	for _, pc := range p.Pieces {
		if pc.Resolved {
			n += pc.Length
		}
	}
	return n
}

// Coverage is resolved tokens over all tokens; 1 for a name without tokens.
func (p Plan) Coverage() float64 {
	if p.Total() == 0 {
		return 1
	}
	return float64(p.ResolvedTokens()) / float64(p.Total())
}

// Unknown returns normalized unresolved tokens, de-duplicated in order.
func (p Plan) Unknown() []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, pc := range p.Pieces {
		if pc.Resolved || seen[pc.Key] {
			continue
		}
		seen[pc.Key] = true
		out = append(out, pc.Key)
	}
	return out
}

// Source summarizes where resolved content came from. A plan with nothing
// resolved reproduces the name and reports fallback.
func (p Plan) Source() Source {
	src := SourceFallback
	for _, pc := range p.Pieces {
		switch pc.Source {
		case SourceOracle:
			return SourceOracle
		case SourceDictionary:
			src = SourceDictionary
		case SourceRule:
			if src == SourceFallback {
				src = SourceRule
			}
		}
	}
	return src
}

// Resolve walks the tokens left to right: the longest phrase from the
// highest layer, then numerals, then fresh oracle answers, then single
// words, then acronym pass-through. Anything left is unresolved.
func (b *Builder) Resolve(name string, seg segment.Result, snap *dictionary.Snapshot, fresh map[string]string) Plan {
	plan := Plan{Name: name, Segments: seg}
	keys := seg.Keys()
	toks := seg.Tokens

	for i := 0; i < len(toks); {
		tok := toks[i]
		pc := Piece{
			Start:     i,
			Length:    1,
			Key:       tok.Normalized,
			Raw:       tok.Raw,
			Text:      tok.Raw,
			Kind:      tok.Kind,
			Delimiter: seg.Delimiters[i],
		}

		if snap != nil {
			if m, ok := snap.ResolvePhrase(keys, i); ok {
				end := i + m.Length
				pc.Length = m.Length
				pc.Key = strings.Join(keys[i:end], " ")
				pc.Raw = rawSpan(seg, i, end)
				pc.Kind = toks[end-1].Kind
				pc.Delimiter = seg.Delimiters[end-1]
				pc.Text = m.Alias
				pc.Resolved = true
				pc.Source = SourceDictionary
				pc.Confidence = m.Confidence
				plan.Pieces = append(plan.Pieces, pc)
				i = end
				continue
			}
		}

		switch {
		case tok.Kind == segment.Numeral:
			pc.Text = b.opts.Numerals.Render(tok.Raw)
			pc.Resolved = true
			pc.Source = SourceRule
			pc.Confidence = 1
		case fresh[tok.Normalized] != "":
			pc.Text = fresh[tok.Normalized]
			pc.Resolved = true
			pc.Source = SourceOracle
		default:
			if snap != nil {
				if m, ok := snap.ResolveWord(tok.Normalized); ok {
					pc.Text = m.Alias
					pc.Resolved = true
					pc.Source = SourceDictionary
					pc.Confidence = m.Confidence
					break
				}
			}
			if tok.Kind == segment.Acronym {
				pc.Resolved = true
				pc.Source = SourceRule
				pc.Confidence = 1
			}
		}
		plan.Pieces = append(plan.Pieces, pc)
		i++
	}
	return plan
}

// rawSpan rebuilds the source text of tokens [start, end) with their inner delimiters.
func rawSpan(seg segment.Result, start, end int) string {
	var sb strings.Builder
	for j := start; j < end; j++ {
		sb.WriteString(seg.Tokens[j].Raw)
		if j < end-1 {
			sb.WriteString(seg.Delimiters[j])
		}
	}
	return sb.String()
}
