package dataset

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.csv")
	require.NoError(t, os.WriteFile(path, []byte("CustomerID,Amount\n1,2.5\n"), 0644))

	df, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, df.Nrow())

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Load(context.Background())
	assert.Error(t, err)
}

func TestURLSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reviews.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ReviewText,Rating\ngreat,5\nbad,1\n"))
	}))
	defer srv.Close()

	df, err := URLSource{Client: srv.Client(), URL: srv.URL + "/reviews.csv"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())

	_, err = URLSource{Client: srv.Client(), URL: srv.URL + "/missing.csv"}.Load(context.Background())
	assert.ErrorContains(t, err, "status 404")
}

func TestS3Source(t *testing.T) {
	client := &fakeS3{objects: map[string]string{"exports/tx.csv": "CustomerID,Amount\n1,2.5\n2,4\n"}}

	df, err := S3Source{Client: client, Bucket: "exports", Key: "tx.csv"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())

	_, err = S3Source{Client: client, Bucket: "exports", Key: "nope.csv"}.Load(context.Background())
	assert.Error(t, err)
}

func TestSQLSource(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"CustomerID", "InvoiceDate", "Amount"}).
		AddRow(int64(17850), "2010-12-01", 15.3).
		AddRow(int64(13047), "2010-12-02", nil)
	mock.ExpectQuery("SELECT (.+) FROM transactions").WillReturnRows(rows)

	df, err := SQLSource{DB: db, Query: "SELECT customer_id, invoice_date, amount FROM transactions"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, df.Nrow())

	ids, err := Strings(df, "CustomerID")
	require.NoError(t, err)
	assert.Equal(t, []string{"17850", "13047"}, ids)

	amounts, err := Float(df, "Amount")
	require.NoError(t, err)
	assert.Equal(t, 15.3, amounts[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSourceEmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"CustomerID", "Amount"}))

	df, err := SQLSource{DB: db, Query: "SELECT 1"}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"CustomerID", "Amount"}, df.Names())
}
