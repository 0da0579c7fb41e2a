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
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
)

// longlatProj is the spatial reference assumed for GeoJSON input, which
// carries no projection information of its own.
const longlatProj = "+proj=longlat +datum=WGS84 +no_defs"

// LandmassConfig specifies how to load a country-boundary dataset.
type LandmassConfig struct {
	// BoundaryFile is the path to the country-boundary dataset, either an
	// ESRI shapefile or a GeoJSON file, chosen by file extension.
	BoundaryFile string

	// FilterColumn and FilterValue optionally subset the dataset to
	// features whose FilterColumn attribute equals FilterValue, for
	// example CONTINENT = Africa in the Natural Earth countries dataset.
	FilterColumn string
	FilterValue  string

	// Dissolve specifies whether to union all features into a single
	// landmass polygon before indexing. It avoids double-counting land
	// area where country polygons overlap, at some loading cost.
	Dissolve bool
}

// Landmass holds the reference land polygons that grid cells are clipped
// against, projected into the grid spatial reference.
type Landmass struct {
	index *rtree.Rtree
	area  float64
	n     int
	b     *geom.Bounds
}

type landShape struct {
	geom.Polygonal
}

// LoadLandmass reads the boundary dataset described by c, reprojects it
// into sr, and indexes it for intersection queries. Status messages are
// sent to msg if it is not nil.
func (c *LandmassConfig) LoadLandmass(sr *proj.SR, msg chan string) (*Landmass, error) {
	var polys []geom.Polygonal
	var err error
	switch strings.ToLower(filepath.Ext(c.BoundaryFile)) {
	case ".shp":
		polys, err = c.loadShapefile(sr)
	case ".geojson", ".json":
		polys, err = c.loadGeoJSON(sr)
	default:
		err = fmt.Errorf("osmafrica: unsupported boundary file type %q", filepath.Ext(c.BoundaryFile))
	}
	if err != nil {
		return nil, err
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("osmafrica: no usable land polygons in %s", c.BoundaryFile)
	}
	if msg != nil {
		msg <- fmt.Sprintf("Loaded %d land polygons from %s\n", len(polys), c.BoundaryFile)
	}
	if c.Dissolve {
		u := polys[0]
		for _, p := range polys[1:] {
			u = u.Union(p)
		}
		polys = []geom.Polygonal{u}
	}
	l := &Landmass{index: rtree.NewTree(25, 50), b: geom.NewBounds()}
	for _, p := range polys {
		a := p.Area()
		if a == 0 {
			continue
		}
		l.area += a
		l.n++
		l.b.Extend(p.Bounds())
		l.index.Insert(&landShape{Polygonal: p})
	}
	if l.n == 0 {
		return nil, fmt.Errorf("osmafrica: all land polygons in %s have zero area", c.BoundaryFile)
	}
	return l, nil
}

func (c *LandmassConfig) loadShapefile(sr *proj.SR) ([]geom.Polygonal, error) {
	d, err := shp.NewDecoder(c.BoundaryFile)
	if err != nil {
		return nil, err
	}
	defer d.Close()
	inSR, err := d.SR()
	if err != nil {
		return nil, err
	}
	trans, err := inSR.NewTransform(sr)
	if err != nil {
		return nil, err
	}
	var cols []string
	if c.FilterColumn != "" {
		cols = append(cols, c.FilterColumn)
	}
	var polys []geom.Polygonal
	for {
		g, fields, more := d.DecodeRowFields(cols...)
		if !more {
			break
		}
		if c.FilterColumn != "" && !c.match(fields[c.FilterColumn]) {
			continue
		}
		gg, err := g.Transform(trans)
		if err != nil {
			return nil, err
		}
		p, ok := gg.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("osmafrica: boundary dataset contains non-polygonal geometry %T", gg)
		}
		polys = append(polys, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("osmafrica: while reading %s: %v", c.BoundaryFile, err)
	}
	return polys, nil
}

// geoJSONFeatures mirrors the parts of a GeoJSON FeatureCollection that
// are of interest here.
type geoJSONFeatures struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry   *geojson.Geometry      `json:"geometry"`
		Properties map[string]interface{} `json:"properties"`
	} `json:"features"`
}

func (c *LandmassConfig) loadGeoJSON(sr *proj.SR) ([]geom.Polygonal, error) {
	b, err := os.ReadFile(c.BoundaryFile)
	if err != nil {
		return nil, fmt.Errorf("osmafrica: opening boundary file: %v", err)
	}
	inSR, err := proj.Parse(longlatProj)
	if err != nil {
		panic(err)
	}
	trans, err := inSR.NewTransform(sr)
	if err != nil {
		return nil, err
	}
	var fc geoJSONFeatures
	if err := json.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("osmafrica: decoding boundary file: %v", err)
	}
	var polys []geom.Polygonal
	if fc.Type == "FeatureCollection" {
		for _, f := range fc.Features {
			if c.FilterColumn != "" && !c.match(fmt.Sprintf("%v", f.Properties[c.FilterColumn])) {
				continue
			}
			g, err := geojson.FromGeoJSON(f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("osmafrica: decoding boundary feature: %v", err)
			}
			p, err := projectPolygonal(g, trans)
			if err != nil {
				return nil, err
			}
			polys = append(polys, p)
		}
		return polys, nil
	}
	// Not a FeatureCollection; try a bare geometry.
	g, err := geojson.Decode(b)
	if err != nil {
		return nil, fmt.Errorf("osmafrica: decoding boundary file: %v", err)
	}
	p, err := projectPolygonal(g, trans)
	if err != nil {
		return nil, err
	}
	return []geom.Polygonal{p}, nil
}

func projectPolygonal(g geom.Geom, trans proj.Transformer) (geom.Polygonal, error) {
	gg, err := g.Transform(trans)
	if err != nil {
		return nil, err
	}
	p, ok := gg.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("osmafrica: boundary dataset contains non-polygonal geometry %T", gg)
	}
	return p, nil
}

func (c *LandmassConfig) match(attr string) bool {
	return strings.EqualFold(strings.TrimSpace(attr), strings.TrimSpace(c.FilterValue))
}

// Fraction returns the fraction of p's area that is covered by land,
// in the interval [0, 1].
func (l *Landmass) Fraction(p geom.Polygonal) float64 {
	area := p.Area()
	if area == 0 {
		return 0
	}
	var isect float64
	for _, sI := range l.index.SearchIntersect(p.Bounds()) {
		s := sI.(*landShape)
		isect += p.Intersection(s.Polygonal).Area()
	}
	// Overlapping country polygons can push the summed intersection
	// slightly past the cell area when Dissolve is off.
	return math.Min(isect/area, 1)
}

// Intersects reports whether p has a nonzero-area intersection with land.
func (l *Landmass) Intersects(p geom.Polygonal) bool {
	return l.Fraction(p) > 0
}

// Area returns the total land area.
func (l *Landmass) Area() float64 { return l.area }

// Len returns the number of indexed land polygons.
func (l *Landmass) Len() int { return l.n }

// Bounds returns the bounding box of the landmass in the grid
// spatial reference.
func (l *Landmass) Bounds() *geom.Bounds { return l.b.Copy() }
