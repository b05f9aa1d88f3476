package raster

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
)

// godal wraps GDAL, which is not safe for concurrent use from multiple
// goroutines. All decode work is serialized behind this mutex.
var godalMu sync.Mutex

var registerDrivers sync.Once

// DecodeSceneFile reads a two-band GeoTIFF (band 1 = red/B04, band 2 =
// NIR/B08, the order fixed by the imagery request) into an in-memory Scene.
func DecodeSceneFile(path string) (*Scene, error) {
	godalMu.Lock()
	defer godalMu.Unlock()

	registerDrivers.Do(godal.RegisterInternalDrivers)

	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open raster %s: %w", path, err)
	}
	defer ds.Close()

	structure := ds.Structure()
	grid := Grid{Width: structure.SizeX, Height: structure.SizeY}
	grid.Transform, err = ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("failed to read geotransform: %w", err)
	}

	bands := ds.Bands()
	if len(bands) < 2 {
		return nil, fmt.Errorf("raster has %d bands, expected red and nir", len(bands))
	}

	readBand := func(band godal.Band) (Band, error) {
		data := make([]float64, grid.Width*grid.Height)
		if err := band.Read(0, 0, data, grid.Width, grid.Height); err != nil {
			return Band{}, fmt.Errorf("failed to read raster band: %w", err)
		}
		rows := make([][]float64, grid.Height)
		for y := range rows {
			rows[y] = data[y*grid.Width : (y+1)*grid.Width]
		}
		nodata, ok := band.NoData()
		return Band{Data: rows, NoData: nodata, HasNoData: ok}, nil
	}

	red, err := readBand(bands[0])
	if err != nil {
		return nil, err
	}
	nir, err := readBand(bands[1])
	if err != nil {
		return nil, err
	}

	return NewScene(grid, red, nir)
}
