// Package keys derives deterministic cache identities for engine queries.
package keys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Fingerprint is the hex SHA-256 digest of a canonical query encoding.
type Fingerprint string

// New builds the fingerprint of op applied to args. Slice arguments
// are sorted before encoding so their order never changes the result.
func New(op string, args ...any) Fingerprint {
	var b strings.Builder
	writeField(&b, "op", op)
	for _, a := range args {
		encodeArg(&b, a)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Key renders the store key for fp under namespace.
func (fp Fingerprint) Key(namespace string) string {
	ns := sanitizeNamespace(strings.TrimSpace(namespace))
	if ns == "" {
		return string(fp)
	}
	return ns + ":" + string(fp)
}

// Short is a log-friendly prefix of the digest.
func (fp Fingerprint) Short() string {
	if len(fp) <= 16 {
		return string(fp)
	}
	return string(fp[:16])
}

func encodeArg(b *strings.Builder, a any) {
	switch v := a.(type) {
	case nil:
		writeField(b, "nil", "")
	case string:
		writeField(b, "s", v)
	case []string:
		sorted := slices.Clone(v)
		slices.Sort(sorted)
		writeField(b, "list", strconv.Itoa(len(sorted)))
		for _, s := range sorted {
			writeField(b, "s", s)
		}
	case int:
		writeField(b, "i", strconv.Itoa(v))
	case int64:
		writeField(b, "i", strconv.FormatInt(v, 10))
	case float64:
		writeField(b, "f", strconv.FormatFloat(v, 'g', -1, 64))
	case bool:
		writeField(b, "b", strconv.FormatBool(v))
	default:
		writeField(b, fmt.Sprintf("%T", v), fmt.Sprintf("%v", v))
	}
}

// tag:len:value; the length prefix keeps ("ab","c") apart from ("a","bc").
func writeField(b *strings.Builder, tag, val string) {
	b.WriteString(tag)
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(len(val)))
	b.WriteByte(':')
	b.WriteString(val)
	b.WriteByte(';')
}

func sanitizeNamespace(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
