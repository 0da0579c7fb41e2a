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
	"io"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
)

// gridSnapshot is the gob wire form of a Grid.
type gridSnapshot struct {
	Name    string
	Nx, Ny  int
	Dx, Dy  float64
	X0, Y0  float64
	ProjDef string
	Extent  geom.Polygon
	Cells   []*Cell
}

// Save writes a snapshot of the grid to w so that it can be reloaded by
// Load without rebuilding it from the boundary dataset.
func (g *Grid) Save(w io.Writer) error {
	e := gob.NewEncoder(w)
	s := gridSnapshot{
		Name: g.Name,
		Nx:   g.Nx, Ny: g.Ny,
		Dx: g.Dx, Dy: g.Dy,
		X0: g.X0, Y0: g.Y0,
		ProjDef: g.ProjDef,
		Extent:  g.Extent,
		Cells:   g.Cells,
	}
	if err := e.Encode(&s); err != nil {
		return fmt.Errorf("osmafrica.Grid.Save: %v", err)
	}
	return nil
}

// Load loads a grid from a snapshot previously written by Save.
func Load(r io.Reader) (*Grid, error) {
	dec := gob.NewDecoder(r)
	var s gridSnapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("osmafrica.Load: %v", err)
	}
	g := &Grid{
		Name: s.Name,
		Nx:   s.Nx, Ny: s.Ny,
		Dx: s.Dx, Dy: s.Dy,
		X0: s.X0, Y0: s.Y0,
		ProjDef: s.ProjDef,
		Extent:  s.Extent,
		Cells:   s.Cells,
	}
	if g.ProjDef != "" {
		sr, err := proj.Parse(g.ProjDef)
		if err != nil {
			return nil, fmt.Errorf("osmafrica.Load: while parsing grid projection: %v", err)
		}
		g.SR = sr
	}
	g.index = rtree.NewTree(25, 50)
	for _, c := range g.Cells {
		g.index.Insert(c)
	}
	return g, nil
}
