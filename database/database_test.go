package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsdesk/config"
	"leadsdesk/records"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(sqlDB, "crm@db/sales"), mock
}

func describeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"}).
		AddRow("id", "int(11)", "NO", "PRI", nil, "auto_increment").
		AddRow("name", "varchar(120)", "YES", "", nil, "").
		AddRow("status", "varchar(20)", "NO", "MUL", "new", "").
		AddRow("follow_up", "date", "YES", "", nil, "")
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Config{Host: "db.local", User: "crm", Password: "p@ss:word", DB: "sales"})

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "crm", parsed.User)
	assert.Equal(t, "p@ss:word", parsed.Passwd)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "db.local:3306", parsed.Addr)
	assert.Equal(t, "sales", parsed.DBName)
	assert.Equal(t, "utf8mb4_unicode_ci", parsed.Collation)
}

func TestDSNKeepsExplicitPort(t *testing.T) {
	parsed, err := mysql.ParseDSN(DSN(config.Config{Host: "10.1.1.1:3307", User: "u", Password: "p", DB: "d"}))
	require.NoError(t, err)
	assert.Equal(t, "10.1.1.1:3307", parsed.Addr)
}

func TestPing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))

	require.NoError(t, db.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPingFailure(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("access denied"))

	err := db.Ping(context.Background())
	assert.ErrorContains(t, err, "access denied")
}

func TestDescribe(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("DESCRIBE `leads`").WillReturnRows(describeRows())

	schema, err := db.Describe(context.Background(), "leads")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "leads", schema.Table)
	assert.Equal(t, []string{"id", "name", "status", "follow_up"}, schema.Names())
	assert.Equal(t, "id", schema.KeyColumn())
	assert.False(t, schema.Editable("id"))
	assert.True(t, schema.Editable("status"))

	status, _ := schema.Column("status")
	require.NotNil(t, status.Default)
	assert.Equal(t, "new", *status.Default)

	followUp, _ := schema.Column("follow_up")
	assert.True(t, followUp.IsDate())
}

func TestFetchAll(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT * FROM `leads`").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "status", "follow_up"}).
			AddRow(int64(1), []byte("Anna"), "new", nil).
			AddRow(int64(2), []byte("Ben"), "won", []byte("2024-05-01")),
	)

	recs, err := db.FetchAll(context.Background(), "leads")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"id", "name", "status", "follow_up"}, recs[0].Columns())
	assert.Equal(t, []records.Value{int64(1), "Anna", "new", nil}, recs[0].Values())
	assert.Equal(t, []records.Value{int64(2), "Ben", "won", "2024-05-01"}, recs[1].Values())
}

func TestFetchAllQueryError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT * FROM `leads`").WillReturnError(errors.New("table missing"))

	recs, err := db.FetchAll(context.Background(), "leads")
	assert.Error(t, err)
	assert.Nil(t, recs)
}

func TestBuildUpdateCoversEveryColumn(t *testing.T) {
	rec := records.NewRecord([]string{"id", "name", "follow_up"}, []records.Value{int64(7), "Anna", nil})

	query, args, err := BuildUpdate("leads", "id", rec)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `leads` SET `id` = ?, `name` = ?, `follow_up` = ? WHERE `id` = ?", query)
	assert.Equal(t, []any{int64(7), "Anna", nil, int64(7)}, args)
}

func TestBuildUpdateMissingKey(t *testing.T) {
	rec := records.NewRecord([]string{"name"}, []records.Value{"Anna"})
	_, _, err := BuildUpdate("leads", "id", rec)
	assert.ErrorIs(t, err, records.ErrUnknownColumn)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`leads`", QuoteIdent("leads"))
	assert.Equal(t, "`we``ird`", QuoteIdent("we`ird"))
}

func TestTableSaver(t *testing.T) {
	db, mock := newMock(t)
	db.Verbose = true
	mock.ExpectExec("UPDATE `leads` SET `id` = ?, `name` = ? WHERE `id` = ?").
		WithArgs(int64(3), "Cleo", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	saver := &TableSaver{DB: db, Table: "leads", Key: "id"}
	rec := records.NewRecord([]string{"id", "name"}, []records.Value{int64(3), "Cleo"})
	require.NoError(t, saver.SaveRecord(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableSaverError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("UPDATE `leads` SET `id` = ? WHERE `id` = ?").
		WillReturnError(errors.New("lock wait timeout exceeded"))

	saver := &TableSaver{DB: db, Table: "leads", Key: "id"}
	err := saver.SaveRecord(context.Background(), records.NewRecord([]string{"id"}, []records.Value{int64(1)}))
	assert.Error(t, err)
}

func TestSchemaCacheDescribesOnce(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("DESCRIBE `leads`").WillReturnRows(describeRows())

	cache := NewSchemaCache()
	first, err := cache.Get(context.Background(), db, "leads")
	require.NoError(t, err)
	second, err := cache.Get(context.Background(), db, "leads")
	require.NoError(t, err)
	assert.Same(t, first, second)
	require.NoError(t, mock.ExpectationsWereMet())

	cache.Invalidate(db.Key())
	mock.ExpectQuery("DESCRIBE `leads`").WillReturnRows(describeRows())
	third, err := cache.Get(context.Background(), db, "leads")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("DESCRIBE `leads`").WillReturnRows(describeRows())
	mock.ExpectQuery("SELECT * FROM `leads`").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "status", "follow_up"}).AddRow(int64(1), "Anna", "new", nil),
	)

	schema, recs, err := Load(context.Background(), db, NewSchemaCache(), "leads")
	require.NoError(t, err)
	assert.Equal(t, "leads", schema.Table)
	assert.Len(t, recs, 1)
}
