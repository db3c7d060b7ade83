package sampler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pii-scanner/pii-scanner/internal/connector"
	"github.com/pii-scanner/pii-scanner/internal/core/models"
	"github.com/pii-scanner/pii-scanner/internal/sampler/dialect"
)

func newTestColumn(table, column string) *models.Column {
	tbl := models.NewTable(table, "")
	col := &models.Column{Name: column}
	tbl.AddColumn(col)
	return col
}

func TestSampleColumnsPopulatesSamplesAndNullCount(t *testing.T) {
	db, mock, err := connector.NewMock()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT .* FROM .* ORDER BY RANDOM\\(\\) LIMIT 3").
		WillReturnRows(mock.NewRows([]string{"email"}).
			AddRow("jane@example.com").
			AddRow(nil).
			AddRow("john@example.com"))

	d, err := dialect.Resolve("PostgreSQL")
	require.NoError(t, err)

	s := New(d, 2, 1000, false)
	col := newTestColumn("users", "email")
	conn := connector.NewMockConnector(db, "PostgreSQL", "15.0")

	results := s.SampleColumns(context.Background(), conn, []*models.Column{col}, 1000, nil)
	require.Contains(t, results, col)
	r := results[col]
	require.NoError(t, r.Err)
	require.NotNil(t, r.Data)
	assert.Equal(t, 3, r.Data.TotalCount)
	assert.Equal(t, 1, r.Data.NullCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleColumnsAttachesPerColumnErrorWithoutAbortingOthers(t *testing.T) {
	db, mock, err := connector.NewMock()
	require.NoError(t, err)
	defer db.Close()

	// The two columns are sampled concurrently, so expectations are
	// matched by query text rather than arrival order.
	mock.MatchExpectationsInOrder(false)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery("SELECT \"broken\" FROM .* ORDER BY RANDOM\\(\\) LIMIT").
		WillReturnError(assertAnError{})

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery("SELECT \"name\" FROM .* ORDER BY RANDOM\\(\\) LIMIT").
		WillReturnRows(mock.NewRows([]string{"name"}).AddRow("ok"))

	d, err := dialect.Resolve("PostgreSQL")
	require.NoError(t, err)
	s := New(d, 2, 1000, false)

	broken := newTestColumn("users", "broken")
	ok := newTestColumn("users", "name")
	conn := connector.NewMockConnector(db, "PostgreSQL", "15.0")

	results := s.SampleColumns(context.Background(), conn, []*models.Column{broken, ok}, 1000, nil)
	require.Len(t, results, 2)
	assert.Error(t, results[broken].Err)
	require.NoError(t, results[ok].Err)
	require.NotNil(t, results[ok].Data)
}

func TestDetermineOptimalSampleSizeCapsToActualRowCountWhenSmaller(t *testing.T) {
	db, mock, err := connector.NewMock()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("SELECT .* LIMIT 3").
		WillReturnRows(mock.NewRows([]string{"v"}).AddRow("a").AddRow("b").AddRow("c"))

	d, err := dialect.Resolve("PostgreSQL")
	require.NoError(t, err)
	s := New(d, 1, 1000, false)
	col := newTestColumn("t", "c")
	conn := connector.NewMockConnector(db, "PostgreSQL", "15.0")

	results := s.SampleColumns(context.Background(), conn, []*models.Column{col}, 1000, nil)
	require.NoError(t, results[col].Err)
	assert.Equal(t, 3, results[col].Data.TotalCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDetermineOptimalSampleSizeFallsBackToRequestedOnCountFailure(t *testing.T) {
	db, mock, err := connector.NewMock()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").WillReturnError(assertAnError{})
	mock.ExpectQuery("SELECT .* LIMIT 1000").
		WillReturnRows(mock.NewRows([]string{"v"}).AddRow("a"))

	d, err := dialect.Resolve("PostgreSQL")
	require.NoError(t, err)
	s := New(d, 1, 1000, false)
	col := newTestColumn("t", "c")
	conn := connector.NewMockConnector(db, "PostgreSQL", "15.0")

	results := s.SampleColumns(context.Background(), conn, []*models.Column{col}, 1000, nil)
	require.NoError(t, results[col].Err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSampleColumnsEntropyComputedOnlyWhenEnabled(t *testing.T) {
	db, mock, err := connector.NewMock()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT .* LIMIT 2").
		WillReturnRows(mock.NewRows([]string{"v"}).AddRow("a").AddRow("b"))

	d, err := dialect.Resolve("PostgreSQL")
	require.NoError(t, err)
	s := New(d, 1, 1000, true)
	col := newTestColumn("t", "c")
	conn := connector.NewMockConnector(db, "PostgreSQL", "15.0")

	results := s.SampleColumns(context.Background(), conn, []*models.Column{col}, 1000, nil)
	require.NoError(t, results[col].Err)
	require.NotNil(t, results[col].Data.Entropy)
	assert.Greater(t, *results[col].Data.Entropy, 0.0)
}

type assertAnError struct{}

func (assertAnError) Error() string { return "boom" }
