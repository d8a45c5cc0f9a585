package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"konto/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteGateway stores snapshots in a SQLite database. Every Save replaces
// the whole snapshot inside one transaction; the in-memory store stays the
// source of truth between saves.
type SQLiteGateway struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

func NewSQLiteGateway(dbPath string) (*SQLiteGateway, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteGateway{db: db, path: dbPath, now: time.Now}, nil
}

func (g *SQLiteGateway) Close() error {
	if g.db != nil {
		return g.db.Close()
	}
	return nil
}

func (g *SQLiteGateway) Save(ctx context.Context, snap core.Snapshot) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("save", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "main_categories", "sub_categories", "rules", "locks", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return persistErr("save", fmt.Errorf("clear %s: %w", table, err))
		}
	}

	for _, t := range snap.Transactions {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transactions (id, date, amount_cents, description, source_account, destination_account, type, category_id, locked)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Date, t.AmountCents, t.Description, t.SourceAccount, t.DestinationAccount, t.Type, t.CategoryID, boolToInt(t.Locked))
		if err != nil {
			return persistErr("save", fmt.Errorf("insert transaction %s: %w", t.ID, err))
		}
	}

	for _, m := range snap.MainCategories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO main_categories (id, name, sort_order, is_income, hide_from_category_page)
			 VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.SortOrder, boolToInt(m.IsIncome), boolToInt(m.HideFromCategoryPage))
		if err != nil {
			return persistErr("save", fmt.Errorf("insert main category %s: %w", m.ID, err))
		}
	}

	// subcategory position comes from the parent's ordering
	positions := make(map[string]int)
	for _, m := range snap.MainCategories {
		for i, subID := range m.SubcategoryIDs {
			positions[subID] = i
		}
	}
	for _, s := range snap.SubCategories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sub_categories (id, name, main_category_id, position) VALUES (?, ?, ?, ?)`,
			s.ID, s.Name, s.MainCategoryID, positions[s.ID])
		if err != nil {
			return persistErr("save", fmt.Errorf("insert subcategory %s: %w", s.ID, err))
		}
	}

	for _, r := range snap.Rules {
		_, err := tx.ExecContext(ctx, `INSERT INTO rules (text, category_id) VALUES (?, ?)`, r.Text, r.CategoryID)
		if err != nil {
			return persistErr("save", fmt.Errorf("insert rule %q: %w", r.Text, err))
		}
	}

	for _, l := range snap.Locks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO locks (transaction_id, category_id, reason, locked_at) VALUES (?, ?, ?, ?)`,
			l.TransactionID, l.CategoryID, l.Reason, l.LockedAt)
		if err != nil {
			return persistErr("save", fmt.Errorf("insert lock %s: %w", l.TransactionID, err))
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, saved_at, version, transaction_count, rule_count) VALUES (1, ?, ?, ?, ?)`,
		snap.Meta.SavedAt, snap.Meta.Version, snap.Meta.TransactionCount, snap.Meta.RuleCount)
	if err != nil {
		return persistErr("save", fmt.Errorf("insert meta: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return persistErr("save", err)
	}
	return nil
}

func (g *SQLiteGateway) Load(ctx context.Context) (core.Snapshot, error) {
	var snap core.Snapshot

	row := g.db.QueryRowContext(ctx, `SELECT saved_at, version, transaction_count, rule_count FROM snapshot_meta WHERE id = 1`)
	err := row.Scan(&snap.Meta.SavedAt, &snap.Meta.Version, &snap.Meta.TransactionCount, &snap.Meta.RuleCount)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, persistErr("load", ErrNoSnapshot)
	}
	if err != nil {
		return core.Snapshot{}, persistErr("load", fmt.Errorf("read meta: %w", err))
	}

	snap.Transactions, err = g.loadTransactions(ctx)
	if err != nil {
		return core.Snapshot{}, persistErr("load", err)
	}
	snap.MainCategories, snap.SubCategories, err = g.loadCategories(ctx)
	if err != nil {
		return core.Snapshot{}, persistErr("load", err)
	}
	snap.Rules, err = g.loadRules(ctx)
	if err != nil {
		return core.Snapshot{}, persistErr("load", err)
	}
	snap.Locks, err = g.loadLocks(ctx)
	if err != nil {
		return core.Snapshot{}, persistErr("load", err)
	}
	return snap, nil
}

func (g *SQLiteGateway) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, date, amount_cents, description, source_account, destination_account, type, category_id, locked
		 FROM transactions ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var locked int
		if err := rows.Scan(&t.ID, &t.Date, &t.AmountCents, &t.Description, &t.SourceAccount, &t.DestinationAccount, &t.Type, &t.CategoryID, &locked); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Locked = locked != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

func (g *SQLiteGateway) loadCategories(ctx context.Context) ([]core.MainCategory, []core.SubCategory, error) {
	rows, err := g.db.QueryContext(ctx,
		`SELECT id, name, sort_order, is_income, hide_from_category_page FROM main_categories ORDER BY sort_order, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query main categories: %w", err)
	}
	defer rows.Close()

	var mains []core.MainCategory
	byID := make(map[string]int)
	for rows.Next() {
		var m core.MainCategory
		var isIncome, hide int
		if err := rows.Scan(&m.ID, &m.Name, &m.SortOrder, &isIncome, &hide); err != nil {
			return nil, nil, fmt.Errorf("scan main category: %w", err)
		}
		m.IsIncome = isIncome != 0
		m.HideFromCategoryPage = hide != 0
		byID[m.ID] = len(mains)
		mains = append(mains, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	subRows, err := g.db.QueryContext(ctx,
		`SELECT id, name, main_category_id FROM sub_categories ORDER BY main_category_id, position, id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query subcategories: %w", err)
	}
	defer subRows.Close()

	var subs []core.SubCategory
	for subRows.Next() {
		var s core.SubCategory
		if err := subRows.Scan(&s.ID, &s.Name, &s.MainCategoryID); err != nil {
			return nil, nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subs = append(subs, s)
		if i, ok := byID[s.MainCategoryID]; ok {
			mains[i].SubcategoryIDs = append(mains[i].SubcategoryIDs, s.ID)
		}
	}
	return mains, subs, subRows.Err()
}

func (g *SQLiteGateway) loadRules(ctx context.Context) ([]core.Rule, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT text, category_id FROM rules ORDER BY text`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []core.Rule
	for rows.Next() {
		var r core.Rule
		if err := rows.Scan(&r.Text, &r.CategoryID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (g *SQLiteGateway) loadLocks(ctx context.Context) ([]core.Lock, error) {
	rows, err := g.db.QueryContext(ctx, `SELECT transaction_id, category_id, reason, locked_at FROM locks ORDER BY transaction_id`)
	if err != nil {
		return nil, fmt.Errorf("query locks: %w", err)
	}
	defer rows.Close()

	var out []core.Lock
	for rows.Next() {
		var l core.Lock
		if err := rows.Scan(&l.TransactionID, &l.CategoryID, &l.Reason, &l.LockedAt); err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (g *SQLiteGateway) Exists(ctx context.Context) (bool, error) {
	var n int
	if err := g.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_meta`).Scan(&n); err != nil {
		return false, persistErr("stat", err)
	}
	return n > 0, nil
}

func (g *SQLiteGateway) Backup(ctx context.Context) (string, error) {
	exists, err := g.Exists(ctx)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", persistErr("backup", ErrNoSnapshot)
	}

	backupPath := fmt.Sprintf("%s.%s.bak", g.path, g.now().UTC().Format("20060102-150405"))
	// VACUUM INTO does not accept bind parameters
	stmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(backupPath, "'", "''"))
	if _, err := g.db.ExecContext(ctx, stmt); err != nil {
		return "", persistErr("backup", err)
	}
	return backupPath, nil
}

func (g *SQLiteGateway) Clear(ctx context.Context) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("clear", err)
	}
	defer tx.Rollback()
	for _, table := range []string{"transactions", "main_categories", "sub_categories", "rules", "locks", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return persistErr("clear", fmt.Errorf("clear %s: %w", table, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("clear", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
