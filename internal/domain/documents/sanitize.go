package documents

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName quita acentos (NFD + marcas combinantes) y reemplaza todo
// lo que no sea [A-Za-z0-9.-] por "_". Solo se usa para la key de storage;
// el nombre visible se guarda sin tocar.
func SanitizeFileName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
