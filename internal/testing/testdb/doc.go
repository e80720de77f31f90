// Package testdb provides SurrealDB databases for integration tests.
//
// Each call to New gets its own namespace with migrations/*.surql applied and
// removes it when the test ends:
//
//	func TestJobRepository_Claim(t *testing.T) {
//	    tdb := testdb.New(t)
//	    repo := repository.NewJobRepository(tdb.DB)
//	    ...
//	}
//
// The server is taken from TEST_DB_HOST/TEST_DB_PORT/TEST_DB_USER/
// TEST_DB_PASSWORD when TEST_DB_HOST is set. Otherwise a throwaway SurrealDB
// container is started with dockertest on first use; packages that use it
// should call Purge from TestMain. Tests are skipped under -short and when
// neither a server nor docker is available.
package testdb
