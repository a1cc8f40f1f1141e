package knowledge

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

var corpusColumns = []string{"position", "sequence_index", "source_url", "text", "text_hash", "model_id", "embedding"}

func newMockSource(t *testing.T) (*DBCorpusSource, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return NewDBCorpusSource(db), mock
}

func TestDBCorpusSource_Load(t *testing.T) {
	source, mock := newMockSource(t)

	rows := sqlmock.NewRows(corpusColumns).
		AddRow(0, 0, "https://a", "alpha", "h0", "m", "[1,0]").
		AddRow(1, 0, "https://b", "beta", "h1", "m", "[0,1]")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "corpus_chunks" ORDER BY position ASC`)).WillReturnRows(rows)

	corpus, err := source.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, corpus.Len())
	assert.Equal(t, 2, corpus.Dim())
	assert.Equal(t, "m", corpus.ModelID())
	assert.Equal(t, "https://b", corpus.Chunk(1).SourceURL)
	assert.Equal(t, []float32{0, 1}, corpus.Vector(1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBCorpusSource_LoadGap(t *testing.T) {
	source, mock := newMockSource(t)

	rows := sqlmock.NewRows(corpusColumns).
		AddRow(0, 0, "https://a", "alpha", "h0", "m", "[1,0]").
		AddRow(2, 0, "https://b", "beta", "h1", "m", "[0,1]")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "corpus_chunks"`)).WillReturnRows(rows)

	_, err := source.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestDBCorpusSource_LoadRaggedEmbedding(t *testing.T) {
	source, mock := newMockSource(t)

	rows := sqlmock.NewRows(corpusColumns).
		AddRow(0, 0, "https://a", "alpha", "h0", "m", "[1,0]").
		AddRow(1, 0, "https://b", "beta", "h1", "m", "[0,1,0]")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "corpus_chunks"`)).WillReturnRows(rows)

	_, err := source.Load(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestDBCorpusSource_LoadEmpty(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "corpus_chunks"`)).WillReturnRows(sqlmock.NewRows(corpusColumns))

	corpus, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, corpus.Len())
}

func TestDBCorpusSource_CloseReleasesConnection(t *testing.T) {
	source, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "corpus_chunks"`)).WillReturnRows(sqlmock.NewRows(corpusColumns))
	mock.ExpectClose()

	_, err := source.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, source.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
