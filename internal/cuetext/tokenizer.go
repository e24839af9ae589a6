package cuetext

import "strings"

type tokenizerState int

const (
	stateData tokenizerState = iota
	stateCharRefInData
	stateTag
	stateStartTag
	stateStartTagClass
	stateStartTagAnnotation
	stateCharRefInAnnotation
	stateEndTag
	stateTimestampTag
)

// Tokenizer splits cue text into tokens, one per call to Next.
type Tokenizer struct {
	dialect Dialect
	input   []rune
	pos     int
}

func NewTokenizer(text string, d Dialect) *Tokenizer {
	return &Tokenizer{dialect: d, input: []rune(text)}
}

// Next returns the next token, or false once the input is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	if t.pos >= len(t.input) {
		return nil, false
	}
	if t.dialect == SubRip {
		return t.nextSubRip(), true
	}
	return t.nextWebVTT(), true
}

// Tokenize runs a tokenizer over text to the end.
func Tokenize(text string, d Dialect) []Token {
	var tokens []Token
	tk := NewTokenizer(text, d)
	for {
		tok, ok := tk.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (t *Tokenizer) peek() (rune, bool) {
	if t.pos >= len(t.input) {
		return 0, true
	}
	return t.input[t.pos], false
}

func isTagSpace(r rune) bool {
	return r == '\t' || r == '\n' || r == '\f' || r == ' '
}

func (t *Tokenizer) nextWebVTT() Token {
	state := stateData
	var result, buffer strings.Builder
	var classes []string

	startTag := func(closed bool) Token {
		return newStartTag(t.dialect, result.String(), classes, buffer.String(), closed)
	}

	for {
		c, eof := t.peek()
		switch state {
		case stateData:
			switch {
			case eof:
				return Text(result.String())
			case c == '&':
				state = stateCharRefInData
				t.pos++
			case c == '<':
				if result.Len() > 0 {
					return Text(result.String())
				}
				state = stateTag
				t.pos++
			default:
				result.WriteRune(c)
				t.pos++
			}

		case stateCharRefInData:
			if s, next, ok := consumeCharRef(t.input, t.pos); ok {
				result.WriteString(s)
				t.pos = next
			} else {
				result.WriteByte('&')
			}
			state = stateData

		case stateTag:
			switch {
			case eof:
				return startTag(false)
			case isTagSpace(c):
				buffer.WriteRune(c)
				state = stateStartTagAnnotation
			case c == '.':
				state = stateStartTagClass
			case c == '/':
				state = stateEndTag
			case isDigit(c):
				result.WriteRune(c)
				state = stateTimestampTag
			case c == '>':
				t.pos++
				return startTag(true)
			default:
				result.WriteRune(c)
				state = stateStartTag
			}
			t.pos++

		case stateStartTag:
			switch {
			case eof:
				return startTag(false)
			case isTagSpace(c):
				buffer.WriteRune(c)
				state = stateStartTagAnnotation
			case c == '.':
				state = stateStartTagClass
			case c == '>':
				t.pos++
				return startTag(true)
			default:
				result.WriteRune(c)
			}
			t.pos++

		case stateStartTagClass:
			switch {
			case eof:
				classes = append(classes, buffer.String())
				buffer.Reset()
				return startTag(false)
			case isTagSpace(c):
				classes = append(classes, buffer.String())
				buffer.Reset()
				buffer.WriteRune(c)
				state = stateStartTagAnnotation
			case c == '.':
				classes = append(classes, buffer.String())
				buffer.Reset()
			case c == '>':
				t.pos++
				classes = append(classes, buffer.String())
				buffer.Reset()
				return startTag(true)
			default:
				buffer.WriteRune(c)
			}
			t.pos++

		case stateStartTagAnnotation:
			switch {
			case eof:
				return startTag(false)
			case c == '&':
				state = stateCharRefInAnnotation
			case c == '>':
				t.pos++
				return startTag(true)
			default:
				buffer.WriteRune(c)
			}
			t.pos++

		case stateCharRefInAnnotation:
			if s, next, ok := consumeCharRef(t.input, t.pos); ok {
				buffer.WriteString(s)
				t.pos = next
			} else {
				buffer.WriteByte('&')
			}
			state = stateStartTagAnnotation

		case stateEndTag:
			switch {
			case eof:
				return newEndTag(t.dialect, result.String(), false)
			case c == '>':
				t.pos++
				return newEndTag(t.dialect, result.String(), true)
			default:
				result.WriteRune(c)
			}
			t.pos++

		case stateTimestampTag:
			switch {
			case eof:
				return TimestampTag{Value: result.String()}
			case c == '>':
				t.pos++
				return TimestampTag{Value: result.String()}
			default:
				result.WriteRune(c)
			}
			t.pos++
		}
	}
}

// SubRip has no character references, classes or timestamps; everything
// between the brackets of a start tag is its name plus attributes.
func (t *Tokenizer) nextSubRip() Token {
	state := stateData
	var result strings.Builder

	startTag := func(closed bool) Token {
		content := result.String()
		name, attrs := content, ""
		if i := strings.IndexAny(content, " \t\n\f"); i >= 0 {
			name, attrs = content[:i], content[i:]
		}
		return newStartTag(t.dialect, name, nil, attrs, closed)
	}

	for {
		c, eof := t.peek()
		switch state {
		case stateData:
			switch {
			case eof:
				return Text(result.String())
			case c == '<':
				if result.Len() > 0 {
					return Text(result.String())
				}
				state = stateTag
			default:
				result.WriteRune(c)
			}
			t.pos++

		case stateTag:
			switch {
			case eof:
				return startTag(false)
			case c == '/':
				state = stateEndTag
			case c == '>':
				t.pos++
				return startTag(true)
			default:
				result.WriteRune(c)
				state = stateStartTag
			}
			t.pos++

		case stateStartTag:
			switch {
			case eof:
				return startTag(false)
			case c == '>':
				t.pos++
				return startTag(true)
			default:
				result.WriteRune(c)
			}
			t.pos++

		case stateEndTag:
			switch {
			case eof:
				return newEndTag(t.dialect, result.String(), false)
			case c == '>':
				t.pos++
				return newEndTag(t.dialect, result.String(), true)
			default:
				result.WriteRune(c)
			}
			t.pos++
		}
	}
}
