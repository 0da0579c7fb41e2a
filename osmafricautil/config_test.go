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

package osmafricautil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lnashier/viper"

	osmafrica "github.com/yannforget/osm-in-africa"
)

const testBoundaryData = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"properties": {"CONTINENT": "Africa"},
			"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}
		}
	]
}`

func writeTestBoundary(t *testing.T) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "boundaries.geojson")
	if err := os.WriteFile(fname, []byte(testBoundaryData), 0o644); err != nil {
		t.Fatal(err)
	}
	return fname
}

func testCfg(t *testing.T) *viper.Viper {
	t.Helper()
	cfg := viper.New()
	cfg.Set("BoundaryFile", writeTestBoundary(t))
	cfg.Set("BoundaryFilterColumn", "CONTINENT")
	cfg.Set("BoundaryFilterValue", "Africa")
	cfg.Set("Dissolve", false)
	cfg.Set("GridName", "africa_grid")
	cfg.Set("GridProj", osmafrica.DefaultProj)
	cfg.Set("CellSize", 50000.0)
	cfg.Set("CacheDir", t.TempDir())
	return cfg
}

func TestGridConfig(t *testing.T) {
	c, err := GridConfig(testCfg(t))
	if err != nil {
		t.Fatal(err)
	}
	if c.CellSize != 50000 {
		t.Errorf("CellSize: got %g, want 50000", c.CellSize)
	}
	if c.GridName != "africa_grid" {
		t.Errorf("GridName: got %q, want africa_grid", c.GridName)
	}
	if c.GridProj != osmafrica.DefaultProj {
		t.Errorf("GridProj: got %q, want the default projection", c.GridProj)
	}
	if c.Land.FilterColumn != "CONTINENT" || c.Land.FilterValue != "Africa" {
		t.Errorf("filter: got (%q, %q), want (CONTINENT, Africa)",
			c.Land.FilterColumn, c.Land.FilterValue)
	}
	if _, err := os.Stat(c.Land.BoundaryFile); err != nil {
		t.Errorf("BoundaryFile should point at an existing file: %v", err)
	}
}

func TestGridConfigErrors(t *testing.T) {
	cfg := testCfg(t)
	cfg.Set("BoundaryFile", "")
	if _, err := GridConfig(cfg); err == nil {
		t.Error("expected an error for a missing BoundaryFile")
	}

	cfg = testCfg(t)
	cfg.Set("CellSize", 0.0)
	if _, err := GridConfig(cfg); err == nil {
		t.Error("expected an error for a zero CellSize")
	}

	cfg = testCfg(t)
	cfg.Set("BoundaryFilterColumn", "")
	if _, err := GridConfig(cfg); err == nil {
		t.Error("expected an error for a filter value without a column")
	}

	cfg = testCfg(t)
	cfg.Set("GridProj", "not a projection")
	if _, err := GridConfig(cfg); err == nil {
		t.Error("expected an error for an unparseable projection")
	}
}

func TestDefaults(t *testing.T) {
	if got := Cfg.GetString("BoundaryFilterColumn"); got != "CONTINENT" {
		t.Errorf("BoundaryFilterColumn default: got %q, want CONTINENT", got)
	}
	if got := Cfg.GetString("BoundaryFilterValue"); got != "Africa" {
		t.Errorf("BoundaryFilterValue default: got %q, want Africa", got)
	}
	if got := Cfg.GetFloat64("CellSize"); got != osmafrica.DefaultCellSize {
		t.Errorf("CellSize default: got %g, want %g", got, osmafrica.DefaultCellSize)
	}
	if got := Cfg.GetString("GridProj"); got != osmafrica.DefaultProj {
		t.Errorf("GridProj default: got %q, want the default projection", got)
	}
	vars := GetStringMapString("OutputVariables", Cfg)
	if vars["row"] != "Row" || vars["col"] != "Col" || vars["landfrac"] != "LandFrac" {
		t.Errorf("OutputVariables default: got %v", vars)
	}
}

func TestCheckOutputVars(t *testing.T) {
	if _, err := checkOutputVars(nil); err == nil {
		t.Error("expected an error for empty output variables")
	}
	t.Setenv("OSMAFRICA_TEST_EXPR", "LandFrac")
	vars, err := checkOutputVars(map[string]string{
		"a": "Row +\nCol",
		"b": "${OSMAFRICA_TEST_EXPR}",
	})
	if err != nil {
		t.Fatal(err)
	}
	if vars["a"] != "Row + Col" {
		t.Errorf("newline stripping: got %q, want %q", vars["a"], "Row + Col")
	}
	if vars["b"] != "LandFrac" {
		t.Errorf("environment expansion: got %q, want LandFrac", vars["b"])
	}
}

func TestCheckOutputFile(t *testing.T) {
	if _, err := checkOutputFile(""); err == nil {
		t.Error("expected an error for an empty output file")
	}
	if _, err := checkOutputFile(filepath.Join(t.TempDir(), "missing", "out.shp")); err == nil {
		t.Error("expected an error for a nonexistent output directory")
	}
	fname := filepath.Join(t.TempDir(), "out.shp")
	got, err := checkOutputFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if got != fname {
		t.Errorf("output file: got %q, want %q", got, fname)
	}
}

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("jsonvar", `{"a":"b"}`)
	if m := GetStringMapString("jsonvar", cfg); m["a"] != "b" {
		t.Errorf("json variable: got %v", m)
	}
	cfg.Set("mapvar", map[string]interface{}{"c": "d"})
	if m := GetStringMapString("mapvar", cfg); m["c"] != "d" {
		t.Errorf("map variable: got %v", m)
	}
}
