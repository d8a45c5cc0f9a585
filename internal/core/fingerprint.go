package core

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
)

// Fingerprint derives the stable transaction identity from the fields that
// distinguish one statement row from another: date (ISO form), amount,
// description, and both account identifiers. Two imports of the same source
// row always produce the same id; changing any fingerprinted field produces
// a different one.
//
// The type label is deliberately not part of the identity: banks relabel
// transaction types between export formats, and that must not duplicate rows.
func Fingerprint(date string, amountCents int64, description, sourceAccount, destinationAccount string) string {
	if iso, err := NormalizeDate(date); err == nil {
		date = iso
	}
	joined := strings.Join([]string{
		date,
		strconv.FormatInt(amountCents, 10),
		strings.TrimSpace(description),
		strings.TrimSpace(sourceAccount),
		strings.TrimSpace(destinationAccount),
	}, "|")
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum[:])
}

// TransactionFingerprint is Fingerprint applied to an existing transaction.
func TransactionFingerprint(t Transaction) string {
	return Fingerprint(t.Date, t.AmountCents, t.Description, t.SourceAccount, t.DestinationAccount)
}
