// Package identity derives stable candidate identities from raw roster
// rows. Every downstream stage trusts the key produced here; identity is
// never re-derived elsewhere.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// keyBytes is how much of the name+contact digest goes into the key.
// 12 bytes (24 hex chars) keeps keys short in reports while staying
// collision-resistant for roster-sized inputs.
const keyBytes = 12

var folder = cases.Fold()

// Normalize collapses whitespace/case variants of a name to one canonical
// form: trim, collapse internal runs of whitespace to a single space, then
// Unicode case-fold. Idempotent.
func Normalize(name string) string {
	fields := strings.FieldsFunc(name, unicode.IsSpace)
	return folder.String(strings.Join(fields, " "))
}

// normalizeContact keeps only the digits of a phone/ID fragment so that
// formatting variants ("138-0000" vs "138 0000") key identically.
func normalizeContact(contact string) string {
	var b strings.Builder
	for _, r := range contact {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key derives the stable identity key for a person from their name and
// contact discriminator. The same logical person in two tables yields the
// same key regardless of whitespace or case differences.
func Key(name, contact string) string {
	sum := sha256.Sum256([]byte(Normalize(name) + "\x1f" + normalizeContact(contact)))
	return hex.EncodeToString(sum[:keyBytes])
}
