package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLConnectorProductNameAndVersion(t *testing.T) {
	db, _, err := NewMock()
	require.NoError(t, err)
	defer db.Close()

	conn := NewMockConnector(db, "PostgreSQL", "15.2")

	name, err := conn.ProductName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL", name)

	version, err := conn.ProductVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15.2", version)
}

func TestSQLConnectorQueryDelegatesToUnderlyingDB(t *testing.T) {
	db, mock, err := NewMock()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	conn := NewMockConnector(db, "PostgreSQL", "15.2")
	rows, err := conn.Query(context.Background(), "SELECT id FROM users")
	require.NoError(t, err)
	defer rows.Close()

	var count int
	for rows.Next() {
		var id int
		require.NoError(t, rows.Scan(&id))
		count++
	}
	assert.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnectorCloseClosesUnderlyingDB(t *testing.T) {
	db, mock, err := NewMock()
	require.NoError(t, err)
	mock.ExpectClose()

	conn := NewMockConnector(db, "PostgreSQL", "15.2")
	require.NoError(t, conn.Close())
}

func TestSQLConnectorDBExposesUnderlyingPool(t *testing.T) {
	db, _, err := NewMock()
	require.NoError(t, err)
	defer db.Close()

	conn := NewMockConnector(db, "PostgreSQL", "15.2")
	assert.Same(t, db, conn.DB())
}
