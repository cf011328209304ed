package testutil

import (
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/dentora/dentora-backend/pkg/database"
	"github.com/dentora/dentora-backend/pkg/logger"
)

// MockDB wraps sqlmock for unit testing repositories without a real
// database
type MockDB struct {
	DB   *database.DB
	Raw  *sqlx.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB creates a new mock database.
//
// Usage:
//
//	mockDB := testutil.NewMockDB(t)
//	defer mockDB.Close()
//
//	mockDB.ExpectTenantQuery(tenantID,
//	    "SELECT ... FROM patients WHERE id = $1",
//	    testutil.MockRows("id", "first_name").AddRow(id, "Jane"),
//	)
//
//	repo := repository.NewPatientRepository(mockDB.DB)
func NewMockDB(t *testing.T) *MockDB {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	sqlxDB := sqlx.NewDb(db, "postgres")
	log := logger.New("test", "test")

	return &MockDB{
		DB:   database.NewFromSqlx(sqlxDB, log),
		Raw:  sqlxDB,
		Mock: mock,
	}
}

// Close closes the mock database connection
func (m *MockDB) Close() error {
	return m.Raw.Close()
}

// ExpectQuery sets up an expected query
func (m *MockDB) ExpectQuery(query string) *sqlmock.ExpectedQuery {
	return m.Mock.ExpectQuery(regexp.QuoteMeta(query))
}

// ExpectExec sets up an expected exec
func (m *MockDB) ExpectExec(query string) *sqlmock.ExpectedExec {
	return m.Mock.ExpectExec(regexp.QuoteMeta(query))
}

// ExpectSetTenant sets up the expectation for the SET LOCAL statement
// that opens every tenant-scoped unit of work
func (m *MockDB) ExpectSetTenant(tenantID string) *sqlmock.ExpectedExec {
	stmt := fmt.Sprintf("SET LOCAL app.current_tenant_id = '%s'", tenantID)
	return m.Mock.ExpectExec(regexp.QuoteMeta(stmt)).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

// ExpectTenantQuery sets up expectations for a tenant-scoped query:
// begin, SET LOCAL, the query, commit.
func (m *MockDB) ExpectTenantQuery(tenantID, query string, rows *sqlmock.Rows) {
	m.Mock.ExpectBegin()
	m.ExpectSetTenant(tenantID)
	m.Mock.ExpectQuery(regexp.QuoteMeta(query)).WillReturnRows(rows)
	m.Mock.ExpectCommit()
}

// ExpectTenantExec sets up expectations for a tenant-scoped exec:
// begin, SET LOCAL, the exec, commit.
func (m *MockDB) ExpectTenantExec(tenantID, query string, result driver.Result) {
	m.Mock.ExpectBegin()
	m.ExpectSetTenant(tenantID)
	m.Mock.ExpectExec(regexp.QuoteMeta(query)).WillReturnResult(result)
	m.Mock.ExpectCommit()
}

// ExpectationsWereMet verifies all expectations were met
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	if err := m.Mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled mock expectations: %v", err)
	}
}

// MockRows creates a new mock rows object
func MockRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}
