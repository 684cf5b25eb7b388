package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"ski_resort_finder/internal/domain"
)

// Repo stores the geography tables (regions, seeds, keyword lists) so they
// can be swapped without a rebuild.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// UpsertRegion replaces a region's triggers and its full seed list.
func (r *Repo) UpsertRegion(ctx context.Context, reg domain.Region) error {
	if reg.Key == "" {
		return fmt.Errorf("upsert region: empty key")
	}
	triggers, err := json.Marshal(nonNil(reg.Triggers))
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertRegionSQL, reg.Key, string(triggers)); err != nil {
			return fmt.Errorf("upsert region %s: %w", reg.Key, err)
		}
		if _, err := tx.ExecContext(ctx, deleteSeedsSQL, reg.Key); err != nil {
			return fmt.Errorf("clear seeds %s: %w", reg.Key, err)
		}
		if len(reg.Seeds) == 0 {
			return nil
		}
		var sb strings.Builder
		sb.WriteString(insertSeedsPrefix)
		args := make([]any, 0, len(reg.Seeds)*5)
		for i, s := range reg.Seeds {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?, ?)")
			args = append(args, reg.Key, i, s.Name, s.Lat, s.Lon)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert seeds %s: %w", reg.Key, err)
		}
		return nil
	})
}

// UpsertKeywords replaces one keyword list (search, include or exclude).
func (r *Repo) UpsertKeywords(ctx context.Context, kind string, words []string) error {
	switch kind {
	case domain.KeywordsSearch, domain.KeywordsInclude, domain.KeywordsExclude:
	default:
		return fmt.Errorf("upsert keywords: unknown kind %q", kind)
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteKeywordsSQL, kind); err != nil {
			return err
		}
		if len(words) == 0 {
			return nil
		}
		var sb strings.Builder
		sb.WriteString(insertKeywordsPrefix)
		args := make([]any, 0, len(words)*3)
		for i, w := range words {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, kind, i, w)
		}
		_, err := tx.ExecContext(ctx, sb.String(), args...)
		return err
	})
}

// PruneRegions deletes every region whose key is not in keep; their seeds
// go with them through the foreign key. An empty keep clears the table.
func (r *Repo) PruneRegions(ctx context.Context, keep []string) (int64, error) {
	q, args := pruneRegionsQuery(keep)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("prune regions: %w", err)
	}
	return res.RowsAffected()
}

func pruneRegionsQuery(keep []string) (string, []any) {
	if len(keep) == 0 {
		return deleteRegionsSQL, nil
	}
	args := make([]any, len(keep))
	for i, k := range keep {
		args[i] = k
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(keep)), ", ")
	return deleteRegionsSQL + " WHERE region_key NOT IN (" + marks + ")", args
}

// LoadGeography reads every table back. Empty tables yield empty sections;
// callers decide whether to fall back to built-in values.
func (r *Repo) LoadGeography(ctx context.Context) (domain.Geography, error) {
	var g domain.Geography

	rows, err := r.db.QueryContext(ctx, selectRegionsSQL)
	if err != nil {
		return g, fmt.Errorf("select regions: %w", err)
	}
	idx := map[string]int{}
	for rows.Next() {
		var key, triggers string
		if err := rows.Scan(&key, &triggers); err != nil {
			rows.Close()
			return g, err
		}
		reg := domain.Region{Key: key}
		if err := json.Unmarshal([]byte(triggers), &reg.Triggers); err != nil {
			rows.Close()
			return g, fmt.Errorf("region %s triggers: %w", key, err)
		}
		idx[key] = len(g.Regions)
		g.Regions = append(g.Regions, reg)
	}
	if err := closeRows(rows); err != nil {
		return g, err
	}

	rows, err = r.db.QueryContext(ctx, selectSeedsSQL)
	if err != nil {
		return g, fmt.Errorf("select seeds: %w", err)
	}
	for rows.Next() {
		var key string
		var s domain.SeedResort
		if err := rows.Scan(&key, &s.Name, &s.Lat, &s.Lon); err != nil {
			rows.Close()
			return g, err
		}
		if i, ok := idx[key]; ok {
			g.Regions[i].Seeds = append(g.Regions[i].Seeds, s)
		}
	}
	if err := closeRows(rows); err != nil {
		return g, err
	}

	rows, err = r.db.QueryContext(ctx, selectKeywordsSQL)
	if err != nil {
		return g, fmt.Errorf("select keywords: %w", err)
	}
	for rows.Next() {
		var kind, word string
		if err := rows.Scan(&kind, &word); err != nil {
			rows.Close()
			return g, err
		}
		switch kind {
		case domain.KeywordsSearch:
			g.SearchKeywords = append(g.SearchKeywords, word)
		case domain.KeywordsInclude:
			g.IncludeKeywords = append(g.IncludeKeywords, word)
		case domain.KeywordsExclude:
			g.ExcludeKeywords = append(g.ExcludeKeywords, word)
		}
	}
	return g, closeRows(rows)
}

func (r *Repo) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
