package cuetext

import (
	"fmt"
	"slices"
	"strings"
)

// Result is parsed cue text in three views plus whatever the parser
// found wrong with it.
type Result struct {
	Tokens []Token
	// text as written back to the file
	Display string
	// text with tags removed, split on newlines
	Lines       []string
	Diagnostics []string
}

func ParseVTT(text string) Result { return Parse(text, WebVTT) }

func ParseSRT(text string) Result { return Parse(text, SubRip) }

// Parse tokenizes text and tracks open tags. Invalid or unclosed tags
// stay in the token stream but their characters count as text in the
// untagged lines.
func Parse(text string, d Dialect) Result {
	var (
		res      Result
		display  strings.Builder
		untagged strings.Builder
		open     []StartTag
	)
	players := "web players"
	if d == SubRip {
		players = "players"
	}
	report := func(format string, args ...any) {
		res.Diagnostics = append(res.Diagnostics, fmt.Sprintf(format, args...))
	}

	tk := NewTokenizer(text, d)
	for {
		tok, ok := tk.Next()
		if !ok {
			break
		}
		res.Tokens = append(res.Tokens, tok)

		switch t := tok.(type) {
		case Text:
			if d == WebVTT {
				display.WriteString(EscapeText(string(t)))
			} else {
				display.WriteString(string(t))
			}
			untagged.WriteString(string(t))

		case StartTag:
			src := t.String()
			switch {
			case !t.ValidName:
				report("Invalid start tag (%s). These characters will be interpreted as text but will be ignored by %s.", src, players)
				untagged.WriteString(src)
			case !t.Closed:
				report("Invalid start tag (%s). The tag has no closing bracket. Will be interpreted as text but ignored by %s.", src, players)
				untagged.WriteString(src)
			case slices.ContainsFunc(open, func(o StartTag) bool { return d.sameTag(o.Name, t.Name) }):
				report("Invalid start tag (%s). Already open. These characters will be ignored by %s.", src, players)
			default:
				open = append(open, t)
			}
			display.WriteString(src)

		case EndTag:
			src := t.String()
			switch {
			case t.ValidName && t.Closed:
				if len(open) > 0 && d.sameTag(open[len(open)-1].Name, t.Name) {
					open = open[:len(open)-1]
				} else {
					report("Invalid end tag (%s). This tag is not open at this point. Will be kept by the parser but ignored by %s.", src, players)
				}
			case !t.ValidName:
				report("Invalid end tag (%s). These characters will be interpreted as text but will be ignored by %s.", src, players)
				untagged.WriteString(src)
			default:
				report("Invalid end tag (%s). The tag has no closing bracket. Will be interpreted as text but ignored by %s.", src, players)
				untagged.WriteString(src)
			}
			display.WriteString(src)

		case TimestampTag:
			display.WriteString(t.String())
		}
	}

	for _, t := range open {
		// a voice span may run to the end of the cue
		if d == WebVTT && t.Name == "v" {
			continue
		}
		report("Unclosed tag (%s). The tag is never closed in this cue. Will be closed at the end of the cue by %s.", t.String(), players)
	}

	res.Display = display.String()
	res.Lines = strings.Split(untagged.String(), "\n")
	return res
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeText escapes the characters WebVTT cue text cannot hold literally.
func EscapeText(s string) string { return textEscaper.Replace(s) }

// Untagged joins the text tokens, dropping every tag.
func Untagged(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if t, ok := tok.(Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
