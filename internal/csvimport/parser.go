// Package csvimport parses semicolon-delimited bank-statement exports into
// transactions and drops rows that repeat within the same file.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"konto/internal/core"
)

// Header aliases, lower-cased. German bank exports and re-exported files use
// different column names for the same fields.
var columnAliases = map[string]string{
	"date":               "date",
	"buchungstag":        "date",
	"wertstellung":       "date",
	"amount":             "amount",
	"betrag":             "amount",
	"description":        "description",
	"verwendungszweck":   "description",
	"beschreibung":       "description",
	"sourceaccount":      "source",
	"auftragskonto":      "source",
	"destinationaccount": "destination",
	"empfaengerkonto":    "destination",
	"kontonummer":        "destination",
	"type":               "type",
	"umsatzart":          "type",
	"buchungstext":       "type",
	"category":           "category",
	"kategorie":          "category",
}

// ParseResult reports what a single file produced.
type ParseResult struct {
	Transactions  []core.Transaction
	OriginalCount int
	UniqueCount   int
	Duplicates    []core.Transaction
	RowErrors     []error
}

// Parse reads a statement export. It expects one header row; columns are
// resolved by name so exports with reordered columns still import. Rows whose
// fingerprint repeats within the file are reported as duplicates, keeping the
// first occurrence. Malformed rows are collected per line and do not abort
// the rest of the file.
func Parse(r io.Reader) (ParseResult, error) {
	res := ParseResult{}
	csvr := csv.NewReader(r)
	csvr.Comma = ';'
	csvr.TrimLeadingSpace = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err == io.EOF {
		return res, fmt.Errorf("empty file")
	}
	if err != nil {
		return res, fmt.Errorf("read header: %w", err)
	}
	cols, err := resolveColumns(header)
	if err != nil {
		return res, err
	}

	seen := make(map[string]struct{})
	line := 1
	for {
		line++
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.RowErrors = append(res.RowErrors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if isBlank(rec) {
			continue
		}
		res.OriginalCount++

		tx, err := rowToTransaction(rec, cols)
		if err != nil {
			res.RowErrors = append(res.RowErrors, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if _, dup := seen[tx.ID]; dup {
			res.Duplicates = append(res.Duplicates, tx)
			continue
		}
		seen[tx.ID] = struct{}{}
		res.Transactions = append(res.Transactions, tx)
	}
	res.UniqueCount = len(res.Transactions)
	return res, nil
}

// cat is resolved so re-exported files parse cleanly, but the hint itself
// is ignored: category assignment comes from rules and manual actions only.
type columns struct {
	date, amount, description     int
	source, destination, typ, cat int
}

func resolveColumns(header []string) (columns, error) {
	cols := columns{date: -1, amount: -1, description: -1, source: -1, destination: -1, typ: -1, cat: -1}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		switch columnAliases[key] {
		case "date":
			cols.date = i
		case "amount":
			cols.amount = i
		case "description":
			cols.description = i
		case "source":
			cols.source = i
		case "destination":
			cols.destination = i
		case "type":
			cols.typ = i
		case "category":
			cols.cat = i
		}
	}
	if cols.date < 0 || cols.amount < 0 || cols.description < 0 {
		return cols, fmt.Errorf("header is missing date, amount or description column")
	}
	return cols, nil
}

func rowToTransaction(rec []string, cols columns) (core.Transaction, error) {
	dateISO, err := core.NormalizeDate(field(rec, cols.date))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", field(rec, cols.date), err)
	}
	amount, err := core.ParseSignedCents(field(rec, cols.amount))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", field(rec, cols.amount), err)
	}
	tx := core.Transaction{
		Date:               dateISO,
		AmountCents:        amount,
		Description:        field(rec, cols.description),
		SourceAccount:      field(rec, cols.source),
		DestinationAccount: field(rec, cols.destination),
		Type:               field(rec, cols.typ),
	}
	if tx.Description == "" {
		return core.Transaction{}, core.ErrEmptyDescription
	}
	tx.ID = core.TransactionFingerprint(tx)
	return tx, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
