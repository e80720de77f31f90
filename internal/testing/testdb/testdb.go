package testdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgo/modhub/internal/database"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	surrealImage = "surrealdb/surrealdb"
	surrealTag   = "v2.1.4"
	rootUser     = "root"
	rootPassword = "root"
)

// TestDB provides an isolated database environment for testing.
// Each TestDB instance gets a unique namespace to ensure test isolation.
type TestDB struct {
	DB        database.Database
	Namespace string
	Database  string
	t         *testing.T
}

var (
	migrationOnce sync.Once
	migrations    []string
	migrationErr  error

	serverOnce sync.Once
	serverCfg  database.Config
	serverErr  error
	pool       *dockertest.Pool
	resource   *dockertest.Resource

	counterMu sync.Mutex
	counter   int64
)

// serverConfig returns the connection settings of the test server. When
// TEST_DB_HOST is unset a SurrealDB container is started once per test binary.
func serverConfig() (database.Config, error) {
	serverOnce.Do(func() {
		if host := os.Getenv("TEST_DB_HOST"); host != "" {
			serverCfg = database.Config{
				Host:     host,
				Port:     envOr("TEST_DB_PORT", "8000"),
				User:     envOr("TEST_DB_USER", rootUser),
				Password: envOr("TEST_DB_PASSWORD", rootPassword),
			}
			return
		}
		serverCfg, serverErr = startContainer()
	})
	return serverCfg, serverErr
}

func startContainer() (database.Config, error) {
	p, err := dockertest.NewPool("")
	if err != nil {
		return database.Config{}, fmt.Errorf("docker pool: %w", err)
	}
	if err := p.Client.Ping(); err != nil {
		return database.Config{}, fmt.Errorf("docker unavailable: %w", err)
	}

	res, err := p.RunWithOptions(&dockertest.RunOptions{
		Repository: surrealImage,
		Tag:        surrealTag,
		Cmd:        []string{"start", "--user", rootUser, "--pass", rootPassword, "memory"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return database.Config{}, fmt.Errorf("start surrealdb: %w", err)
	}
	// The container is reaped even if Purge is never called
	_ = res.Expire(600)

	cfg := database.Config{
		Host:     "localhost",
		Port:     res.GetPort("8000/tcp"),
		User:     rootUser,
		Password: rootPassword,
	}

	p.MaxWait = 60 * time.Second
	err = p.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db := database.NewSurrealDB(withNamespace(cfg, "probe", "probe"))
		if err := db.Connect(ctx); err != nil {
			return err
		}
		return db.Close()
	})
	if err != nil {
		_ = p.Purge(res)
		return database.Config{}, fmt.Errorf("surrealdb not ready: %w", err)
	}

	pool, resource = p, res
	return cfg, nil
}

// Purge removes the container started for this test binary, if any.
// Call it from TestMain after m.Run.
func Purge() {
	if pool != nil && resource != nil {
		_ = pool.Purge(resource)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func withNamespace(cfg database.Config, ns, db string) database.Config {
	cfg.Namespace = ns
	cfg.Database = db
	return cfg
}

func uniqueNamespace() string {
	counterMu.Lock()
	defer counterMu.Unlock()
	counter++
	return fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), counter)
}

// loadMigrations reads migrations/*.surql in lexical order
func loadMigrations() ([]string, error) {
	migrationOnce.Do(func() {
		paths := []string{
			"migrations",
			"../migrations",
			"../../migrations",
			"../../../migrations",
		}

		var migrationDir string
		for _, p := range paths {
			if _, err := os.Stat(p); err == nil {
				migrationDir = p
				break
			}
		}
		if migrationDir == "" {
			if root := os.Getenv("MODHUB_ROOT"); root != "" {
				migrationDir = filepath.Join(root, "migrations")
			}
		}
		if migrationDir == "" {
			migrationErr = fmt.Errorf("could not find migrations directory")
			return
		}

		entries, err := os.ReadDir(migrationDir)
		if err != nil {
			migrationErr = fmt.Errorf("reading migrations dir: %w", err)
			return
		}

		var files []string
		for _, e := range entries {
			if strings.HasSuffix(e.Name(), ".surql") {
				files = append(files, e.Name())
			}
		}
		sort.Strings(files)

		for _, name := range files {
			content, err := os.ReadFile(filepath.Join(migrationDir, name))
			if err != nil {
				migrationErr = fmt.Errorf("reading %s: %w", name, err)
				return
			}
			migrations = append(migrations, string(content))
		}
	})

	return migrations, migrationErr
}

// New creates an isolated test database with migrations applied. The test is
// skipped under -short or when no SurrealDB server can be reached or started.
func New(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("testdb: skipping database test in short mode")
	}

	cfg, err := serverConfig()
	if err != nil {
		t.Skipf("testdb: no database available: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	namespace := uniqueNamespace()
	db := database.NewSurrealDB(withNamespace(cfg, namespace, "test"))
	if err := db.Connect(ctx); err != nil {
		t.Fatalf("testdb: failed to connect: %v", err)
	}

	tdb := &TestDB{
		DB:        db,
		Namespace: namespace,
		Database:  "test",
		t:         t,
	}

	migs, err := loadMigrations()
	if err != nil {
		_ = db.Close()
		t.Fatalf("testdb: failed to load migrations: %v", err)
	}
	for i, mig := range migs {
		if err := db.Execute(ctx, mig, nil); err != nil {
			_ = db.Close()
			t.Fatalf("testdb: migration %d failed: %v", i+1, err)
		}
	}

	t.Cleanup(tdb.Close)
	return tdb
}

// Close removes the namespace and closes the connection. It is registered with
// t.Cleanup by New and is safe to call more than once.
func (tdb *TestDB) Close() {
	if tdb.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = tdb.DB.Execute(ctx, fmt.Sprintf("REMOVE NAMESPACE %s", tdb.Namespace), nil)
	_ = tdb.DB.Close()
	tdb.DB = nil
}

// Ctx returns a context bounded to the test's lifetime
func (tdb *TestDB) Ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tdb.t.Cleanup(cancel)
	return ctx
}

// MustExec executes a query and fails the test on error.
func (tdb *TestDB) MustExec(query string, vars map[string]interface{}) {
	tdb.t.Helper()
	if err := tdb.DB.Execute(tdb.Ctx(), query, vars); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nQuery: %s", err, query)
	}
}

// MustQuery executes a query and returns results, failing the test on error.
func (tdb *TestDB) MustQuery(query string, vars map[string]interface{}) []interface{} {
	tdb.t.Helper()
	results, err := tdb.DB.Query(tdb.Ctx(), query, vars)
	if err != nil {
		tdb.t.Fatalf("testdb: query failed: %v\nQuery: %s", err, query)
	}
	return results
}
