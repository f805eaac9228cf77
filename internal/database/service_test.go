package database

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT VERSION()").
		WillReturnRows(sqlmock.NewRows([]string{"VERSION()"}).AddRow("8.0.36"))

	service := NewService()
	version, err := service.GetVersion(db)
	require.NoError(t, err)
	assert.Equal(t, "8.0.36", version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetVersionNilDB(t *testing.T) {
	service := NewService()
	_, err := service.GetVersion(nil)
	assert.Error(t, err)
}

func TestTableRowCounts(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_ROWS"}).
		AddRow("users", int64(120)).
		AddRow("orders", int64(4500))

	mock.ExpectQuery(`FROM INFORMATION_SCHEMA\.TABLES`).
		WithArgs("shop").
		WillReturnRows(rows)

	service := NewService()
	counts, err := service.TableRowCounts(db, "shop")
	require.NoError(t, err)
	require.Len(t, counts, 2)

	// Sorted by table name regardless of query result order
	assert.Equal(t, "orders", counts[0].Table)
	assert.Equal(t, int64(4500), counts[0].Rows)
	assert.Equal(t, "users", counts[1].Table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTableRowCountsNilDB(t *testing.T) {
	service := NewService()
	_, err := service.TableRowCounts(nil, "shop")
	assert.Error(t, err)
}

func TestTestConnectionNilDB(t *testing.T) {
	service := NewService()
	assert.Error(t, service.TestConnection(nil))
}

func TestCloseNilDB(t *testing.T) {
	service := NewService()
	assert.NoError(t, service.Close(nil))
}

func TestClose(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectClose()
	service := NewService()
	assert.NoError(t, service.Close(db))
	assert.NoError(t, mock.ExpectationsWereMet())
}
