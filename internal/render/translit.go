package render

import (
	"strings"
	"unicode"
)

// Ukrainian to Latin, national 2010 table. The second column applies at the
// start of a word.
var translit = map[rune][2]string{
	'а': {"a", "a"}, 'б': {"b", "b"}, 'в': {"v", "v"}, 'г': {"h", "h"},
	'ґ': {"g", "g"}, 'д': {"d", "d"}, 'е': {"e", "e"}, 'є': {"ie", "ye"},
	'ж': {"zh", "zh"}, 'з': {"z", "z"}, 'и': {"y", "y"}, 'і': {"i", "i"},
	'ї': {"i", "yi"}, 'й': {"i", "y"}, 'к': {"k", "k"}, 'л': {"l", "l"},
	'м': {"m", "m"}, 'н': {"n", "n"}, 'о': {"o", "o"}, 'п': {"p", "p"},
	'р': {"r", "r"}, 'с': {"s", "s"}, 'т': {"t", "t"}, 'у': {"u", "u"},
	'ф': {"f", "f"}, 'х': {"kh", "kh"}, 'ц': {"ts", "ts"}, 'ч': {"ch", "ch"},
	'ш': {"sh", "sh"}, 'щ': {"shch", "shch"}, 'ь': {"", ""}, 'ю': {"iu", "yu"},
	'я': {"ia", "ya"}, '\'': {"", ""}, '’': {"", ""}, 'ʼ': {"", ""},
	'—': {"-", "-"}, '–': {"-", "-"}, '…': {"...", "..."},
}

// Transliterate rewrites Ukrainian text in Latin letters so it can be drawn
// with the built-in Hershey fonts. Other non-ASCII runes become '?'.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	wordStart := true
	for _, r := range s {
		lower := unicode.ToLower(r)
		if t, ok := translit[lower]; ok {
			out := t[0]
			if wordStart {
				out = t[1]
			}
			if r != lower && out != "" {
				out = strings.ToUpper(out[:1]) + out[1:]
			}
			b.WriteString(out)
			if unicode.IsLetter(r) {
				wordStart = false
			}
			continue
		}

		switch {
		case r <= unicode.MaxASCII:
			b.WriteRune(r)
		default:
			b.WriteRune('?')
		}
		wordStart = !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}
	return b.String()
}
