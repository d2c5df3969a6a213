package dataset

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campaignsCSV = `Campaign,Impressions,Clicks,Conversions,Cost,Revenue
spring,1000,50,5,100.5,300
summer,2000,0,0,80,
fall,500,25,x,40,90
`

func TestReadCSV(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(campaignsCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{"Campaign", "Impressions", "Clicks", "Conversions", "Cost", "Revenue"}, df.Names())
}

func TestFloat(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(campaignsCSV))
	require.NoError(t, err)

	cost, err := Float(df, "Cost")
	require.NoError(t, err)
	assert.Equal(t, []float64{100.5, 80, 40}, cost)

	revenue, err := Float(df, "Revenue")
	require.NoError(t, err)
	assert.Equal(t, 300.0, revenue[0])
	assert.True(t, math.IsNaN(revenue[1]))

	_, err = Float(df, "Conversions")
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = Float(df, "Spend")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestStringsNormalizesIntegralFloats(t *testing.T) {
	df, err := ReadCSV(strings.NewReader("CustomerID,Amount\n17850.0,1\n13047.0,2\n,3\n"))
	require.NoError(t, err)

	ids, err := Strings(df, "CustomerID")
	require.NoError(t, err)
	assert.Equal(t, []string{"17850", "13047", ""}, ids)
}

func TestRequire(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(campaignsCSV))
	require.NoError(t, err)

	assert.NoError(t, Require(df, "Clicks", "Cost"))
	err = Require(df, "Clicks", "Spend")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	assert.Contains(t, err.Error(), "Spend")
}

func TestWriteCSVRoundTrip(t *testing.T) {
	df, err := FromRecords([][]string{{"a", "b"}, {"1", "x"}, {"2", "y"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, df))
	assert.Equal(t, "a,b\n1,x\n2,y\n", buf.String())
}

func TestParseS3URI(t *testing.T) {
	b, k, ok := ParseS3URI("s3://exports/retail/2024.csv")
	assert.True(t, ok)
	assert.Equal(t, "exports", b)
	assert.Equal(t, "retail/2024.csv", k)

	_, _, ok = ParseS3URI("/tmp/file.csv")
	assert.False(t, ok)
	_, _, ok = ParseS3URI("s3://bucket-only")
	assert.False(t, ok)
}
