package storage

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const conditionsSchema = `
CREATE TABLE PlaneGeometry (Plane INTEGER, NRows INTEGER, NCols INTEGER, MinRun INTEGER, MaxRun INTEGER);
CREATE TABLE NoisyPixels (Plane INTEGER, PixX INTEGER, PixY INTEGER, MinRun INTEGER, MaxRun INTEGER);
`

func conditionsDB(t *testing.T, geometry [][5]int, pixels [][5]int) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	db.MustExec(conditionsSchema)
	for _, g := range geometry {
		db.MustExec("INSERT INTO PlaneGeometry VALUES (?, ?, ?, ?, ?)", g[0], g[1], g[2], g[3], g[4])
	}
	for _, p := range pixels {
		db.MustExec("INSERT INTO NoisyPixels VALUES (?, ?, ?, ?, ?)", p[0], p[1], p[2], p[3], p[4])
	}
	return db
}

func TestLoadNoiseMasks(t *testing.T) {
	db := conditionsDB(t,
		[][5]int{
			{0, 4, 4, 1, 100},
			{1, 8, 2, 1, 100},
			{0, 16, 16, 101, 200},
		},
		[][5]int{
			{0, 1, 2, 1, 100},
			{0, 3, 3, 1, 50},
			{1, 7, 1, 1, 100},
			{0, 15, 15, 101, 200},
		})

	masks, err := LoadNoiseMasks(db, 60)
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.Equal(t, 4, masks[0].Rows)
	assert.Equal(t, [][2]int{{1, 2}}, masks[0].Pixels())
	assert.Equal(t, [][2]int{{7, 1}}, masks[1].Pixels())

	masks, err = LoadNoiseMasks(db, 150)
	require.NoError(t, err)
	require.Len(t, masks, 1)
	assert.Equal(t, 16, masks[0].Cols)
	assert.True(t, masks[0].At(15, 15))

	masks, err = LoadNoiseMasks(db, 500)
	require.NoError(t, err)
	assert.Empty(t, masks)
}

func TestLoadNoiseMasksErrors(t *testing.T) {
	db := conditionsDB(t,
		[][5]int{{0, 4, 4, 1, 100}},
		[][5]int{{2, 1, 1, 1, 100}})
	_, err := LoadNoiseMasks(db, 10)
	assert.ErrorIs(t, err, ErrConfiguration)

	db = conditionsDB(t,
		[][5]int{{0, 4, 4, 1, 100}},
		[][5]int{{0, 4, 0, 1, 100}})
	_, err = LoadNoiseMasks(db, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)

	db = conditionsDB(t, nil, nil)
	db.MustExec("DROP TABLE NoisyPixels")
	_, err = LoadNoiseMasks(db, 10)
	assert.Error(t, err)
}

func TestMaskedReadWithConditionsDB(t *testing.T) {
	db := conditionsDB(t,
		[][5]int{{0, 8, 8, 1, 100}, {1, 8, 8, 1, 100}},
		[][5]int{{0, 0, 0, 1, 100}, {1, 2, 1, 1, 100}})
	masks, err := LoadNoiseMasks(db, 1)
	require.NoError(t, err)

	path := memPath(t)
	writeEvents(t, path, 2, 1)
	s, err := OpenForRead(path, SectionAll, nil)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.SetNoiseMasks(masks))
	require.NoError(t, s.SetMaskMode(Remove))

	ev, err := s.ReadEvent(0)
	require.NoError(t, err)
	// seed 0 puts hit r of plane p at (r+p, r)
	assert.Equal(t, 3, ev.Planes()[0].NumHits())
	assert.Equal(t, 3, ev.Planes()[1].NumHits())
	for _, h := range ev.Hits() {
		assert.False(t, h.Masked)
	}
}
