//go:build integration

package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ski_resort_finder/internal/domain"
	mysqlrepo "ski_resort_finder/internal/storage/mysql"
)

// migrationsDir honours MIGRATIONS_DIR and otherwise uses the repo's migrations/.
func migrationsDir(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	dir, err := filepath.Abs(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	return dir
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir(t)

	ents, err := os.ReadDir(dir)
	require.NoError(t, err, "read migrations dir %s", dir)

	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	require.NotEmpty(t, files, "no .sql files in %s", dir)
	sort.Strings(files)

	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = db.Exec(string(b))
		require.NoError(t, err, "exec %s", f)
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	// Start isolated MySQL; let Docker pick a free host port.
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=skifinder",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/skifinder?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	require.NoError(t, pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}))
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)
	return db
}

func TestRepo_MySQL_GeographyRoundTrip(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	def := domain.DefaultGeography()
	for _, r := range def.Regions {
		require.NoError(t, repo.UpsertRegion(ctx, r))
	}
	require.NoError(t, repo.UpsertKeywords(ctx, domain.KeywordsSearch, def.SearchKeywords))
	require.NoError(t, repo.UpsertKeywords(ctx, domain.KeywordsInclude, def.IncludeKeywords))
	require.NoError(t, repo.UpsertKeywords(ctx, domain.KeywordsExclude, def.ExcludeKeywords))

	got, err := repo.LoadGeography(ctx)
	require.NoError(t, err)
	assert.Equal(t, def, got)

	// upserting again replaces rather than appends
	vt, _ := def.Region("vermont")
	vt.Seeds = vt.Seeds[:2]
	vt.Triggers = []string{"vermont", "vt"}
	require.NoError(t, repo.UpsertRegion(ctx, vt))
	require.NoError(t, repo.UpsertKeywords(ctx, domain.KeywordsInclude, []string{"ski"}))

	got, err = repo.LoadGeography(ctx)
	require.NoError(t, err)
	reg, ok := got.Region("vermont")
	require.True(t, ok)
	assert.Len(t, reg.Seeds, 2)
	assert.Equal(t, []string{"vermont", "vt"}, reg.Triggers)
	assert.Equal(t, []string{"ski"}, got.IncludeKeywords)
	assert.Equal(t, "massachusetts", got.Regions[0].Key, "insertion order is kept")
}

func TestRepo_MySQL_RejectsUnknownKeywordKind(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	assert.Error(t, repo.UpsertKeywords(context.Background(), "banned", []string{"x"}))
}

func TestRepo_MySQL_PruneRegionsDropsStaleRegions(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	def := domain.DefaultGeography()
	for _, r := range def.Regions {
		require.NoError(t, repo.UpsertRegion(ctx, r))
	}

	n, err := repo.PruneRegions(ctx, []string{"vermont", "maine"})
	require.NoError(t, err)
	assert.EqualValues(t, len(def.Regions)-2, n)

	got, err := repo.LoadGeography(ctx)
	require.NoError(t, err)
	var keys []string
	for _, r := range got.Regions {
		keys = append(keys, r.Key)
		assert.NotEmpty(t, r.Seeds)
	}
	assert.ElementsMatch(t, []string{"vermont", "maine"}, keys)

	var orphans int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM seed_resorts WHERE region_key NOT IN ('vermont', 'maine')").Scan(&orphans))
	assert.Zero(t, orphans, "seeds of pruned regions cascade away")
}
