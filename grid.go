/*
Copyright © 2024 the osm-in-africa authors.
This file is part of osm-in-africa.

osm-in-africa is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

osm-in-africa is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with osm-in-africa.  If not, see <http://www.gnu.org/licenses/>.
*/

package osmafrica

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	goshp "github.com/jonas-p/go-shp"
)

func init() {
	gob.Register(geom.Polygon{})
}

// Cell is an individual cell in a grid: a square, axis-aligned polygon in
// the grid's projected coordinate system.
type Cell struct {
	geom.Polygonal
	Row, Col int

	// LandFrac is the fraction of the cell area covered by land.
	// It is filled in by Grid.ClipToLand.
	LandFrac float64
}

// Copy copies a grid cell.
func (c *Cell) Copy() *Cell {
	o := new(Cell)
	o.Polygonal = c.Polygonal
	o.Row, o.Col = c.Row, c.Col
	o.LandFrac = c.LandFrac
	return o
}

// Grid is a regular grid of square cells.
type Grid struct {
	Name   string
	Nx, Ny int
	Dx, Dy float64
	X0, Y0 float64
	Cells  []*Cell
	SR     *proj.SR
	// ProjDef is the Proj4 definition of SR. It is carried alongside SR
	// so that grid snapshots can be reloaded (see Save and Load).
	ProjDef string
	Extent  geom.Polygon

	index *rtree.Rtree
}

// PadBounds expands b so that its width and height are exact multiples of
// cellSize, holding the lower-left corner fixed, and returns the padded
// bounds along with the number of cells in the x and y directions.
// Bounds that are already aligned are returned unchanged.
func PadBounds(b *geom.Bounds, cellSize float64) (*geom.Bounds, int, int, error) {
	if cellSize <= 0 {
		return nil, 0, 0, fmt.Errorf("osmafrica: invalid cell size %g", cellSize)
	}
	if b == nil || b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y {
		return nil, 0, 0, fmt.Errorf("osmafrica: degenerate grid bounds %+v", b)
	}
	nx := int(math.Ceil((b.Max.X - b.Min.X) / cellSize))
	ny := int(math.Ceil((b.Max.Y - b.Min.Y) / cellSize))
	o := &geom.Bounds{
		Min: b.Min,
		Max: geom.Point{
			X: b.Min.X + cellSize*float64(nx),
			Y: b.Min.Y + cellSize*float64(ny),
		},
	}
	return o, nx, ny, nil
}

// NewRegular creates a new regular grid covering bounds b, where all grid
// cells are squares with edge length cellSize. b is padded with PadBounds
// before the cells are generated. sr is the spatial reference of the grid
// and projDef is its Proj4 definition.
func NewRegular(name string, b *geom.Bounds, cellSize float64, sr *proj.SR, projDef string) (*Grid, error) {
	b, nx, ny, err := PadBounds(b, cellSize)
	if err != nil {
		return nil, err
	}
	g := &Grid{
		Name: name,
		Nx:   nx, Ny: ny,
		Dx: cellSize, Dy: cellSize,
		X0: b.Min.X, Y0: b.Min.Y,
		SR: sr, ProjDef: projDef,
	}
	g.index = rtree.NewTree(25, 50)
	g.Cells = make([]*Cell, 0, nx*ny)
	for ix := 0; ix < g.Nx; ix++ {
		for iy := 0; iy < g.Ny; iy++ {
			x := g.X0 + float64(ix)*g.Dx
			y := g.Y0 + float64(iy)*g.Dy
			cell := new(Cell)
			cell.Row, cell.Col = iy, ix
			// Polygon must go counter-clockwise.
			cell.Polygonal = geom.Polygon{{
				{X: x, Y: y}, {X: x + g.Dx, Y: y},
				{X: x + g.Dx, Y: y + g.Dy}, {X: x, Y: y + g.Dy}, {X: x, Y: y}}}
			g.index.Insert(cell)
			g.Cells = append(g.Cells, cell)
		}
	}
	g.Extent = geom.Polygon{{{X: g.X0, Y: g.Y0},
		{X: b.Max.X, Y: g.Y0},
		{X: b.Max.X, Y: b.Max.Y},
		{X: g.X0, Y: b.Max.Y}, {X: g.X0, Y: g.Y0}}}
	return g, nil
}

// GetIndex returns the row and column indices of point p in the grid.
// withinGrid is false if p is not within the grid. Usually there will be
// only one row and column for each point, but if the point lies on a shared
// edge among multiple grid cells, all of the overlapping grid cells will be
// returned.
func (g *Grid) GetIndex(p geom.Point) (rows, cols []int, withinGrid bool) {
	for _, cI := range g.index.SearchIntersect(p.Bounds()) {
		c := cI.(*Cell)
		rows = append(rows, c.Row)
		cols = append(cols, c.Col)
	}
	withinGrid = len(rows) > 0
	return
}

// ClipToLand discards all cells that do not intersect land, and fills in
// LandFrac for the cells that remain. Cells touching land only along an
// edge have zero intersection area and are treated as water.
func (g *Grid) ClipToLand(land *Landmass) {
	kept := make([]*Cell, 0, len(g.Cells))
	index := rtree.NewTree(25, 50)
	for _, c := range g.Cells {
		frac := land.Fraction(c.Polygonal)
		if frac <= 0 {
			continue
		}
		c.LandFrac = frac
		kept = append(kept, c)
		index.Insert(c)
	}
	g.Cells = kept
	g.index = index
}

// Area returns the summed area of all grid cells.
func (g *Grid) Area() float64 {
	var a float64
	for _, c := range g.Cells {
		a += c.Area()
	}
	return a
}

// LandArea returns the summed land area within all grid cells.
func (g *Grid) LandArea() float64 {
	var a float64
	for _, c := range g.Cells {
		a += c.LandFrac * c.Area()
	}
	return a
}

// WriteToShp writes the raw grid geometry to a shapefile in directory
// outdir, with row, column, and land-fraction attributes. For output with
// user-specified variables, use an Outputter instead.
func (g *Grid) WriteToShp(outdir string) error {
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(filepath.Join(outdir, g.Name+ext))
	}
	fields := make([]goshp.Field, 3)
	fields[0] = goshp.NumberField("row", 10)
	fields[1] = goshp.NumberField("col", 10)
	fields[2] = goshp.FloatField("landfrac", 14, 8)
	shpf, err := shp.NewEncoderFromFields(filepath.Join(outdir, g.Name+".shp"),
		goshp.POLYGON, fields...)
	if err != nil {
		return err
	}
	for _, cell := range g.Cells {
		data := []interface{}{cell.Row, cell.Col, cell.LandFrac}
		if err := shpf.EncodeFields(cell.Polygonal, data...); err != nil {
			return err
		}
	}
	shpf.Close()
	return nil
}
