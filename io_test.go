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
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// newTestGrid returns a 2 x 2 grid with nonzero land fractions.
func newTestGrid(t *testing.T) *Grid {
	t.Helper()
	b := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 100, Y: 100}}
	g, err := NewRegular("test", b, 50, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	fracs := []float64{1, 0.5, 0.25, 0.125}
	for i, c := range g.Cells {
		c.LandFrac = fracs[i]
	}
	return g
}

func TestCheckForDerivatives(t *testing.T) {
	o, err := NewOutputter("out.shp", "", map[string]string{
		"Land": "LandFrac * 2",
		"tot":  "LandArea + Land",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	// 'Land' is user defined, so its definition is substituted into
	// 'tot'; the prefix of the grid variable 'LandArea' is left alone.
	want := "LandArea + (LandFrac * 2)"
	if got := o.outputVariables["tot"]; got != want {
		t.Errorf("expanded expression: got %q, want %q", got, want)
	}
	model := append([]string{}, o.modelVariables...)
	sort.Strings(model)
	wantModel := []string{"LandArea", "LandFrac"}
	if len(model) != len(wantModel) {
		t.Fatalf("model variables: got %v, want %v", model, wantModel)
	}
	for i, v := range wantModel {
		if model[i] != v {
			t.Errorf("model variables: got %v, want %v", model, wantModel)
			break
		}
	}
}

func TestCheckOutputNames(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"landfrac", true},
		{"LandFrac", true},
		{"land_frac", true},
		{"toolongname1", false},
		{"2frac", false},
		{"bad-name", false},
	}
	for _, test := range tests {
		err := checkOutputNames(map[string]string{test.name: "LandFrac"})
		if (err == nil) != test.ok {
			t.Errorf("%q: got error %v, want ok=%v", test.name, err, test.ok)
		}
	}
}

func TestResults(t *testing.T) {
	g := newTestGrid(t)
	o, err := NewOutputter("out.shp", "", map[string]string{
		"frac":   "LandFrac",
		"double": "frac * 2",
		"total":  "gridsum('LandFrac')",
		"rt":     "sqrt(CellArea)",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	results, err := g.Results(o)
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, c := range g.Cells {
		sum += c.LandFrac
	}
	for i, c := range g.Cells {
		if different(results["frac"][i], c.LandFrac) {
			t.Errorf("frac[%d]: got %g, want %g", i, results["frac"][i], c.LandFrac)
		}
		if different(results["double"][i], 2*c.LandFrac) {
			t.Errorf("double[%d]: got %g, want %g", i, results["double"][i], 2*c.LandFrac)
		}
		if different(results["total"][i], sum) {
			t.Errorf("total[%d]: got %g, want %g", i, results["total"][i], sum)
		}
		if different(results["rt"][i], 50) {
			t.Errorf("rt[%d]: got %g, want 50", i, results["rt"][i])
		}
	}
}

func TestResultsUndefinedVariable(t *testing.T) {
	g := newTestGrid(t)
	o, err := NewOutputter("out.shp", "", map[string]string{"x": "Bogus"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Results(o); err == nil {
		t.Error("expected an error for an undefined variable")
	}
}

func TestOutputGeoJSON(t *testing.T) {
	g := newTestGrid(t)
	fname := filepath.Join(t.TempDir(), "grid.geojson")
	o, err := NewOutputter(fname, "", map[string]string{"landfrac": "LandFrac"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	var fc geoJSONFeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type: got %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) != 4 {
		t.Fatalf("number of features: got %d, want 4", len(fc.Features))
	}
	var sum float64
	for _, f := range fc.Features {
		sum += f.Properties["landfrac"]
	}
	if different(sum, 1.875) {
		t.Errorf("summed land fraction: got %g, want 1.875", sum)
	}
}

func TestOutputShapefile(t *testing.T) {
	g := newTestGrid(t)
	dir := t.TempDir()
	fname := filepath.Join(dir, "grid.shp")
	o, err := NewOutputter(fname, DefaultProjWKT,
		map[string]string{"landfrac": "LandFrac", "row": "Row"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err != nil {
		t.Fatal(err)
	}
	for _, ext := range []string{".shp", ".dbf", ".shx", ".prj"} {
		if _, err := os.Stat(filepath.Join(dir, "grid"+ext)); err != nil {
			t.Errorf("missing shapefile component: %v", err)
		}
	}
	prj, err := os.ReadFile(filepath.Join(dir, "grid.prj"))
	if err != nil {
		t.Fatal(err)
	}
	if string(prj) != DefaultProjWKT {
		t.Error("projection sidecar does not match the grid projection")
	}

	d, err := shp.NewDecoder(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	n := 0
	for {
		if _, _, more := d.DecodeRowFields(); !more {
			break
		}
		n++
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("number of shapefile records: got %d, want 4", n)
	}
}

func TestOutputShapefileNoWKT(t *testing.T) {
	g := newTestGrid(t)
	dir := t.TempDir()
	o, err := NewOutputter(filepath.Join(dir, "grid.shp"), "",
		map[string]string{"landfrac": "LandFrac"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "grid.prj")); !os.IsNotExist(err) {
		t.Error("a .prj sidecar was written without projection information")
	}
}

func TestOutputBadNames(t *testing.T) {
	g := newTestGrid(t)
	o, err := NewOutputter(filepath.Join(t.TempDir(), "grid.shp"), "",
		map[string]string{"waytoolongname": "LandFrac"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err == nil {
		t.Error("expected an error for a field name longer than 10 characters")
	}
}

func TestOutputUnsupportedExtension(t *testing.T) {
	g := newTestGrid(t)
	o, err := NewOutputter("grid.txt", "", map[string]string{"landfrac": "LandFrac"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err == nil {
		t.Error("expected an error for an unsupported output format")
	}
}
