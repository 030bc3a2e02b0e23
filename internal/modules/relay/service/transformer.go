package service

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	messageDomain "tgrelay/internal/modules/message/domain"
	ruleDomain "tgrelay/internal/modules/rule/domain"
)

// Best effort, not RFC-exact.
var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

const mediaMarker = "📎 media attachment"

// Transformer builds the outgoing body for a matched rule and renders
// operator previews. Strip patterns are global: they apply to every
// message before any per-rule transformation.
type Transformer struct {
	stripPatterns []*regexp.Regexp
}

// NewTransformer compiles the configured strip patterns. Patterns that
// fail to compile are skipped with a warning rather than aborting startup.
func NewTransformer(patterns []string) *Transformer {
	t := &Transformer{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			slog.Warn("Skipping invalid strip pattern", "pattern", p, "error", err)
			continue
		}
		t.stripPatterns = append(t.stripPatterns, re)
	}
	return t
}

// Result is a transformed body plus what Preview needs to reconcile
// entity offsets against it.
type Result struct {
	Text         string
	LinksRemoved bool
	prefixShift  int
}

// Transform applies strip patterns, optional link removal, whitespace
// trimming, and the rule's prefix/suffix, in that order.
func (t *Transformer) Transform(text string, rule *ruleDomain.Rule) Result {
	out := text
	for _, re := range t.stripPatterns {
		out = re.ReplaceAllString(out, "")
	}

	removed := false
	if rule.RemoveLinks {
		cleaned := linkPattern.ReplaceAllString(out, "")
		removed = cleaned != out
		out = cleaned
	}

	out = strings.TrimSpace(out)

	return Result{
		Text:         rule.Prefix + out + rule.Suffix,
		LinksRemoved: removed,
		prefixShift:  len([]rune(rule.Prefix)),
	}
}

// Preview renders the outgoing text for operator confirmation. Formatting
// spans are rewritten to inline markers against the post-transform text,
// shifted by the prefix length. When link removal changed the body the
// original offsets no longer line up, so markers are dropped for that
// message. The media marker line appears only in previews, never in the
// text actually sent.
func (t *Transformer) Preview(res Result, entities []messageDomain.Entity, hasMedia bool) string {
	var b strings.Builder
	if hasMedia {
		b.WriteString(mediaMarker)
		b.WriteString("\n")
	}

	if res.LinksRemoved || len(entities) == 0 {
		b.WriteString(res.Text)
		return b.String()
	}

	b.WriteString(annotate(res.Text, entities, res.prefixShift))
	return b.String()
}

type marker struct {
	pos     int
	text    string
	closing bool
}

func annotate(text string, entities []messageDomain.Entity, shift int) string {
	runes := []rune(text)

	var markers []marker
	for _, e := range entities {
		start := e.Offset + shift
		end := start + e.Length
		if e.Length <= 0 || start < 0 || end > len(runes) {
			continue
		}

		switch e.Kind {
		case messageDomain.EntityKindBold:
			markers = append(markers, marker{start, "**", false}, marker{end, "**", true})
		case messageDomain.EntityKindItalic:
			markers = append(markers, marker{start, "*", false}, marker{end, "*", true})
		case messageDomain.EntityKindTextLink:
			markers = append(markers, marker{start, "[", false}, marker{end, "](" + e.URL + ")", true})
		}
	}

	if len(markers) == 0 {
		return text
	}

	// Closing markers go before opening ones at the same position so
	// adjacent spans do not interleave.
	sort.SliceStable(markers, func(i, j int) bool {
		if markers[i].pos != markers[j].pos {
			return markers[i].pos < markers[j].pos
		}
		return markers[i].closing && !markers[j].closing
	})

	var b strings.Builder
	last := 0
	for _, m := range markers {
		b.WriteString(string(runes[last:m.pos]))
		b.WriteString(m.text)
		last = m.pos
	}
	b.WriteString(string(runes[last:]))
	return b.String()
}
