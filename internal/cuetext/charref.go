package cuetext

import "html"

// longest named reference in the HTML5 table is 32 letters plus ';'
const maxEntityName = 32

// consumeCharRef resolves the character reference whose '&' sits just
// before in[pos]. It returns the decoded text and the index after the
// reference, or ok=false when nothing there forms a reference and the
// '&' is literal.
func consumeCharRef(in []rune, pos int) (string, int, bool) {
	if pos >= len(in) {
		return "", pos, false
	}
	if in[pos] == '#' {
		return consumeNumericRef(in, pos+1)
	}

	end := pos
	for end < len(in) && end-pos < maxEntityName && isASCIIAlnum(in[end]) {
		end++
	}
	if end == pos {
		return "", pos, false
	}
	candidate := "&" + string(in[pos:end])
	if end < len(in) && in[end] == ';' {
		candidate += ";"
	}

	decoded := html.UnescapeString(candidate)
	if decoded == candidate {
		return "", pos, false
	}

	// html only tells us the decoded string; the part of the candidate it
	// did not consume is left verbatim at the end, so walk the common
	// suffix to find the shortest prefix that decodes on its own.
	common := 0
	for common < len(decoded) && common < len(candidate) &&
		decoded[len(decoded)-1-common] == candidate[len(candidate)-1-common] {
		common++
	}
	for l := common; l >= 0; l-- {
		n := len(candidate) - l
		value := decoded[:len(decoded)-l]
		if n < 2 || value == "" {
			continue
		}
		if html.UnescapeString(candidate[:n]) == value {
			// candidate is ASCII so byte and rune offsets agree
			return value, pos + n - 1, true
		}
	}
	return "", pos, false
}

// &#65; &#x41; &#X41;, terminating ';' optional
func consumeNumericRef(in []rune, pos int) (string, int, bool) {
	hex := pos < len(in) && (in[pos] == 'x' || in[pos] == 'X')
	start := pos
	if hex {
		start++
	}
	end := start
	for end < len(in) && (isDigit(in[end]) || hex && isHexLetter(in[end])) {
		end++
	}
	if end == start {
		return "", pos - 1, false
	}

	ref := "&#" + string(in[pos:end]) + ";"
	if end < len(in) && in[end] == ';' {
		end++
	}
	return html.UnescapeString(ref), end, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexLetter(r rune) bool {
	return r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}

func isASCIIAlnum(r rune) bool {
	return isDigit(r) || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}
