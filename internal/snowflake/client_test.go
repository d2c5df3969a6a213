package snowflake

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/marketing-analytics/internal/config"
	"github.com/ignite/marketing-analytics/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConnectionString(t *testing.T) {
	cfg := ParseConnectionString("scheme=https;ACCOUNT=ACME-WH1;HOST=acme.snowflakecomputing.com;port=443;USER=analyst;PASSWORD=secret;DB=MARKETING.RETAIL;warehouse=REPORTING;")

	assert.Equal(t, config.SnowflakeConfig{
		Account:   "ACME-WH1",
		User:      "analyst",
		Password:  "secret",
		Database:  "MARKETING",
		Schema:    "RETAIL",
		Warehouse: "REPORTING",
		Enabled:   true,
	}, cfg)
}

func TestParseConnectionStringPartial(t *testing.T) {
	cfg := ParseConnectionString("ACCOUNT=test;USER=user;DB=mydb")
	assert.Equal(t, "test", cfg.Account)
	assert.Equal(t, "mydb", cfg.Database)
	assert.Empty(t, cfg.Schema)

	assert.False(t, ParseConnectionString("").Enabled)
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(config.SnowflakeConfig{
		Account:   "acme",
		User:      "analyst",
		Password:  "secret",
		Database:  "MARKETING",
		Schema:    "PUBLIC",
		Warehouse: "REPORTING",
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "analyst:secret@")
	assert.Contains(t, dsn, "database=MARKETING")
	assert.Contains(t, dsn, "schema=PUBLIC")
	assert.Contains(t, dsn, "warehouse=REPORTING")

	_, err = DSN(config.SnowflakeConfig{User: "analyst", Password: "secret"})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT CUSTOMER_ID`).
		WithArgs("2011-01-01").
		WillReturnRows(sqlmock.NewRows([]string{"CustomerID", "InvoiceDate", "Amount"}).
			AddRow("17850", "2010-12-01", "15.3").
			AddRow("13047", "2010-12-02", nil))

	c := NewClientWithDB(db)
	df, err := c.Load(context.Background(),
		"SELECT CUSTOMER_ID AS CustomerID, INVOICE_DATE AS InvoiceDate, AMOUNT AS Amount FROM ORDERS WHERE INVOICE_DATE < ?",
		"2011-01-01")
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())

	amounts, err := dataset.Float(df, "Amount")
	require.NoError(t, err)
	assert.Equal(t, 15.3, amounts[0])
	assert.True(t, amounts[1] != amounts[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}
