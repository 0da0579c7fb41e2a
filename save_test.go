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
	"bytes"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

func TestSaveLoad(t *testing.T) {
	sr, err := proj.Parse(DefaultProj)
	if err != nil {
		t.Fatal(err)
	}
	b := &geom.Bounds{Min: geom.Point{X: -100, Y: 0}, Max: geom.Point{X: 100, Y: 100}}
	g, err := NewRegular("africa_grid", b, 50, sr, DefaultProj)
	if err != nil {
		t.Fatal(err)
	}
	g.ClipToLand(newTestLandmass(rect(-100, 0, 0, 100)))

	var buf bytes.Buffer
	if err := g.Save(&buf); err != nil {
		t.Fatal(err)
	}
	g2, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if g2.Name != g.Name {
		t.Errorf("name: got %q, want %q", g2.Name, g.Name)
	}
	if g2.Nx != g.Nx || g2.Ny != g.Ny {
		t.Errorf("dimensions: got %d x %d, want %d x %d", g2.Nx, g2.Ny, g.Nx, g.Ny)
	}
	if different(g2.Dx, g.Dx) || different(g2.Dy, g.Dy) ||
		different(g2.X0, g.X0) || different(g2.Y0, g.Y0) {
		t.Errorf("geometry parameters: got (%g, %g, %g, %g), want (%g, %g, %g, %g)",
			g2.Dx, g2.Dy, g2.X0, g2.Y0, g.Dx, g.Dy, g.X0, g.Y0)
	}
	if g2.ProjDef != g.ProjDef {
		t.Errorf("projection: got %q, want %q", g2.ProjDef, g.ProjDef)
	}
	if g2.SR == nil {
		t.Error("spatial reference was not restored")
	}
	if len(g2.Cells) != len(g.Cells) {
		t.Fatalf("number of cells: got %d, want %d", len(g2.Cells), len(g.Cells))
	}
	for i, c := range g.Cells {
		c2 := g2.Cells[i]
		if c2.Row != c.Row || c2.Col != c.Col {
			t.Errorf("cell %d: got (%d, %d), want (%d, %d)", i, c2.Row, c2.Col, c.Row, c.Col)
		}
		if different(c2.LandFrac, c.LandFrac) {
			t.Errorf("cell %d LandFrac: got %g, want %g", i, c2.LandFrac, c.LandFrac)
		}
		if different(c2.Area(), c.Area()) {
			t.Errorf("cell %d area: got %g, want %g", i, c2.Area(), c.Area())
		}
	}

	// The spatial index is rebuilt on load.
	rows, cols, in := g2.GetIndex(geom.Point{X: -75, Y: 25})
	if !in || rows[0] != 0 || cols[0] != 0 {
		t.Errorf("loaded grid index: rows %v cols %v in %v, want [0] [0] true", rows, cols, in)
	}
	if _, _, in := g2.GetIndex(geom.Point{X: 75, Y: 25}); in {
		t.Error("water cell present in the loaded grid index")
	}
}
