package pyast

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// Encodings reported in File.Encoding besides IANA names.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-sig"
)

var (
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
	cookieRE = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)
)

// Python codec names that are not IANA names or aliases.
var codecAliases = map[string]string{
	"latin-1":     "iso-8859-1",
	"latin1":      "iso-8859-1",
	"iso-latin-1": "iso-8859-1",
	"l1":          "iso-8859-1",
	"cp1250":      "windows-1250",
	"cp1251":      "windows-1251",
	"cp1252":      "windows-1252",
	"cp1253":      "windows-1253",
	"cp1254":      "windows-1254",
	"cp1256":      "windows-1256",
	"euc-jp":      "euc-jp",
	"shift-jis":   "shift_jis",
	"sjis":        "shift_jis",
}

// Decode converts Python source to UTF-8 following PEP 263. It returns the
// text to parse, the detected encoding, and the number of leading bytes
// dropped from src (a UTF-8 BOM).
func Decode(src []byte) ([]byte, string, int, error) {
	if bytes.HasPrefix(src, utf8BOM) {
		text := src[len(utf8BOM):]
		if !utf8.Valid(text) {
			return nil, "", 0, fmt.Errorf("invalid UTF-8 after byte order mark")
		}
		return text, EncodingUTF8BOM, len(utf8BOM), nil
	}

	name := codingCookie(src)
	if name == "" || isUTF8Name(name) {
		if !utf8.Valid(src) {
			return nil, "", 0, fmt.Errorf("invalid UTF-8 and no coding declaration")
		}
		return src, EncodingUTF8, 0, nil
	}

	lookup := strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	if alias, ok := codecAliases[lookup]; ok {
		lookup = alias
	}
	enc, err := ianaindex.IANA.Encoding(lookup)
	if err != nil || enc == nil {
		return nil, "", 0, fmt.Errorf("unknown encoding %q", name)
	}
	text, err := enc.NewDecoder().Bytes(src)
	if err != nil {
		return nil, "", 0, fmt.Errorf("decode %s: %w", name, err)
	}
	canonical, err := ianaindex.IANA.Name(enc)
	if err != nil {
		canonical = lookup
	}
	return text, strings.ToLower(canonical), 0, nil
}

// codingCookie returns the encoding declared on line 1 or 2.
func codingCookie(src []byte) string {
	for i := 0; i < 2 && len(src) > 0; i++ {
		line := src
		if j := bytes.IndexByte(src, '\n'); j >= 0 {
			line, src = src[:j], src[j+1:]
		} else {
			src = nil
		}
		if m := cookieRE.FindSubmatch(line); m != nil {
			return string(m[1])
		}
		// The cookie must be on line 2 only if line 1 is a comment or blank.
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] != '#' {
			return ""
		}
	}
	return ""
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "utf-8", "utf8", "utf-8-sig", "u8", "utf":
		return true
	}
	return false
}
