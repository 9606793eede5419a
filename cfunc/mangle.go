package cfunc

import (
	"fmt"
	"regexp"
	"strings"
)

var operatorWords = map[rune]string{
	'=': "equals",
	'?': "query",
	'!': "bang",
	'<': "lt",
	'>': "gt",
	'+': "plus",
	'-': "minus",
	'*': "times",
	'/': "div",
	'%': "mod",
	'[': "brack",
	']': "ket",
	'@': "at",
	'&': "and",
	'|': "or",
	'^': "xor",
	'~': "tilde",
	':': "colon",
}

// Mangle turns a host method or symbol name into a C identifier fragment.
// Underscores are doubled so the single underscore stays free as a
// separator, and operator characters become words.
func Mangle(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r == '_':
			sb.WriteString("__")
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'):
			sb.WriteRune(r)
		default:
			if w, ok := operatorWords[r]; ok {
				sb.WriteString("_" + w)
			} else {
				fmt.Fprintf(&sb, "_x%X", r)
			}
		}
	}
	return sb.String()
}

// ClassVar names the C global holding the host class called name.
func ClassVar(name string) string {
	parts := strings.Split(name, "::")
	for i, p := range parts {
		parts[i] = Mangle(p)
	}
	return "module_" + strings.Join(parts, "_")
}

// SymbolVar names the C global holding the interned symbol name.
func SymbolVar(name string) string {
	return "ID_" + Mangle(name)
}

// StructName names the shadow struct type of the host class called name.
func StructName(name string) string {
	parts := strings.Split(name, "::")
	for i, p := range parts {
		parts[i] = Mangle(p)
	}
	return strings.Join(parts, "_") + "_Shadow"
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a valid C identifier.
func IsIdentifier(s string) bool { return identRe.MatchString(s) }

// CString quotes s as a C string literal.
func CString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}

// FormatLiteral escapes s for use inside a printf-style format string.
func FormatLiteral(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
