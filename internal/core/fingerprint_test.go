package core

import "testing"

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("2025-11-03", -4250, "REWE SAGT DANKE", "DE02", "DE99")
	b := Fingerprint("2025-11-03", -4250, "REWE SAGT DANKE", "DE02", "DE99")
	if a != b {
		t.Fatalf("fingerprint not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprintDateFormatIndependent(t *testing.T) {
	iso := Fingerprint("2025-11-03", -4250, "REWE", "DE02", "DE99")
	dayFirst := Fingerprint("03.11.2025", -4250, "REWE", "DE02", "DE99")
	if iso != dayFirst {
		t.Fatalf("same day in two formats must fingerprint identically")
	}
}

func TestFingerprintFieldSensitivity(t *testing.T) {
	base := Fingerprint("2025-11-03", -4250, "REWE", "DE02", "DE99")
	variants := []string{
		Fingerprint("2025-11-04", -4250, "REWE", "DE02", "DE99"),
		Fingerprint("2025-11-03", -4251, "REWE", "DE02", "DE99"),
		Fingerprint("2025-11-03", -4250, "EDEKA", "DE02", "DE99"),
		Fingerprint("2025-11-03", -4250, "REWE", "DE03", "DE99"),
		Fingerprint("2025-11-03", -4250, "REWE", "DE02", "DE98"),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d should differ from base fingerprint", i)
		}
	}
}

func TestTransactionFingerprintMatchesFields(t *testing.T) {
	tx := Transaction{
		Date:               "2025-11-03",
		AmountCents:        -4250,
		Description:        "REWE",
		SourceAccount:      "DE02",
		DestinationAccount: "DE99",
		Type:               "DEBIT",
	}
	want := Fingerprint(tx.Date, tx.AmountCents, tx.Description, tx.SourceAccount, tx.DestinationAccount)
	if got := TransactionFingerprint(tx); got != want {
		t.Fatalf("TransactionFingerprint mismatch")
	}
	// the type label is not part of the identity
	tx.Type = "CARD"
	if got := TransactionFingerprint(tx); got != want {
		t.Fatalf("type label must not affect the fingerprint")
	}
}
