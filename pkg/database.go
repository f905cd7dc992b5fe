package storage

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
)

func ConnectToDatabase(user string, pass string, host string, dbname string) (*sqlx.DB, error) {
	port := "3306"
	dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
	db, err := sqlx.Connect("mysql", dbURI)
	return db, err
}

// PlaneGeometry is the pixel grid of one plane valid for a run range.
type PlaneGeometry struct {
	Plane int `db:"Plane"`
	Rows  int `db:"NRows"`
	Cols  int `db:"NCols"`
}

type NoisyPixel struct {
	Plane int `db:"Plane"`
	PixX  int `db:"PixX"`
	PixY  int `db:"PixY"`
}

func getPlaneGeometryFromDB(db *sqlx.DB, runNumber int) ([]PlaneGeometry, error) {
	query := db.Rebind("SELECT Plane, NRows, NCols FROM PlaneGeometry WHERE MinRun <= ? and MaxRun >= ? ORDER BY Plane")
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading plane geometry for run %d from database", runNumber), "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}

	var geometry []PlaneGeometry
	if err := db.Select(&geometry, query, runNumber, runNumber); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return geometry, nil
}

func getNoisyPixelsFromDB(db *sqlx.DB, runNumber int) ([]NoisyPixel, error) {
	query := db.Rebind("SELECT Plane, PixX, PixY FROM NoisyPixels WHERE MinRun <= ? and MaxRun >= ? ORDER BY Plane, PixX, PixY")
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading noisy pixels for run %d from database", runNumber), "database")
	}
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}

	rows, err := db.Queryx(query, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	var pixels []NoisyPixel
	for rows.Next() {
		result := NoisyPixel{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		pixels = append(pixels, result)
	}
	return pixels, rows.Err()
}

// LoadNoiseMasks builds the noise mask of every plane known for a run. A
// noisy pixel on a plane without geometry is an error.
func LoadNoiseMasks(db *sqlx.DB, runNumber int) (map[int]NoiseMask, error) {
	geometry, err := getPlaneGeometryFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting plane geometry from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, errMessage
	}
	masks := make(map[int]NoiseMask, len(geometry))
	for _, g := range geometry {
		masks[g.Plane] = NewNoiseMask(g.Rows, g.Cols)
	}

	pixels, err := getNoisyPixelsFromDB(db, runNumber)
	if err != nil {
		errMessage := fmt.Errorf("error getting noisy pixels from database: %w", err)
		logger.Error(errMessage.Error())
		return nil, errMessage
	}
	for _, px := range pixels {
		mask, ok := masks[px.Plane]
		if !ok {
			return nil, fmt.Errorf("%w: noisy pixel on plane %d without geometry for run %d",
				ErrConfiguration, px.Plane, runNumber)
		}
		if err := mask.Set(px.PixX, px.PixY, true); err != nil {
			return nil, fmt.Errorf("noisy pixel on plane %d: %w", px.Plane, err)
		}
	}
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Loaded %d noisy pixels on %d planes", len(pixels), len(masks)), "database")
	}
	return masks, nil
}
