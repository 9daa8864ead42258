package migration

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"testing/fstest"

	"remote-jobs/migrations"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"V2__add_b.sql":  {Data: []byte("CREATE TABLE b (id INT);\n")},
		"V1__init.sql":   {Data: []byte("  CREATE TABLE a (id INT);  ")},
		"README.md":      {Data: []byte("ignored")},
		"V3_bad_name.sq": {Data: []byte("ignored")},
	}
}

func TestLoad_OrdersAndFilters(t *testing.T) {
	migs, err := Load(testFS())
	require.NoError(t, err)
	require.Len(t, migs, 2)

	assert.Equal(t, int64(1), migs[0].Version)
	assert.Equal(t, "init", migs[0].Name)
	assert.Equal(t, "CREATE TABLE a (id INT);", migs[0].SQL)
	assert.Len(t, migs[0].Checksum, 64)
	assert.Equal(t, int64(2), migs[1].Version)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(fstest.MapFS{"V1__a.sql": {Data: []byte("  \n")}})
	assert.ErrorContains(t, err, "empty migration file")

	_, err = Load(fstest.MapFS{
		"V1__a.sql":  {Data: []byte("SELECT 1")},
		"V01__b.sql": {Data: []byte("SELECT 2")},
	})
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestLoad_EmbeddedSchema(t *testing.T) {
	migs, err := Load(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	assert.Equal(t, int64(1), migs[0].Version)
	assert.Contains(t, migs[0].SQL, "ux_jobs_active_fingerprint")
	assert.Contains(t, migs[0].SQL, "crawl_log")
}

func TestRunner_AppliesPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	migs, err := Load(testFS())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock($1)")).
		WithArgs(lockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, checksum FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).AddRow(1, migs[0].Checksum))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b (id INT);")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations")).
		WithArgs(int64(2), "add_b", migs[1].Checksum, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(lockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ran, err := Runner{FS: testFS()}.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_ChecksumMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, checksum FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}).AddRow(1, "edited"))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ran, err := Runner{FS: testFS()}.Run(context.Background(), db)
	assert.ErrorContains(t, err, "checksum mismatch: version=1")
	assert.Equal(t, 0, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("syntax error")
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_lock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT version, checksum FROM schema_migrations")).
		WillReturnRows(sqlmock.NewRows([]string{"version", "checksum"}))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a (id INT);")).WillReturnError(boom)
	mock.ExpectRollback()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = Runner{FS: testFS()}.Run(context.Background(), db)
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "version=1 file=V1__init.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunner_NothingToDo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ran, err := Runner{FS: fstest.MapFS{}}.Run(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 0, ran)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, err = Runner{}.Run(context.Background(), nil)
	assert.Error(t, err)
}
