package eval

import (
	"fmt"
	"strings"
	"unicode"
)

// Validate rejects expression sources that reach outside the grammar:
// statement separators, member access and function calls. {name}
// references are exempt, so data names themselves may contain anything
// but braces.
func Validate(src string) error {
	stripped := refPattern.ReplaceAllString(src, "0")

	for _, ch := range []rune{'{', '}', ';', '#', '$', '\\', '`'} {
		if strings.ContainsRune(stripped, ch) {
			return fmt.Errorf("illegal character %q", ch)
		}
	}

	for i := 1; i < len(stripped); i++ {
		if stripped[i] != '.' {
			continue
		}
		c := rune(stripped[i-1])
		// a dot after a digit is a float literal
		if unicode.IsLetter(c) || c == '_' || c == ')' || c == ']' || c == '"' || c == '\'' {
			return fmt.Errorf("member access is not allowed")
		}
	}

	for i := 0; i < len(stripped); i++ {
		if stripped[i] != '(' {
			continue
		}
		j := i - 1
		for j >= 0 && unicode.IsSpace(rune(stripped[j])) {
			j--
		}
		if j >= 0 && isIdentChar(stripped[j]) {
			k := j
			for k >= 0 && isIdentChar(stripped[k]) {
				k--
			}
			ident := strings.TrimSpace(stripped[k+1 : j+1])
			if ident != "" && !isKeyword(ident) {
				return fmt.Errorf("function calls are not allowed (found %q(...))", ident)
			}
		}
	}

	return nil
}

func isIdentChar(c byte) bool {
	r := rune(c)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || c == '_'
}

// operator keywords may legitimately precede a parenthesized expression
func isKeyword(ident string) bool {
	switch ident {
	case "and", "or", "not", "in":
		return true
	default:
		return false
	}
}
