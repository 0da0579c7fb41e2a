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
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"gonum.org/v1/gonum/floats"
)

// DefaultProjWKT is the well-known-text representation of DefaultProj,
// written to the .prj sidecar of shapefile output.
const DefaultProjWKT = `PROJCS["Africa_Albers_Equal_Area_Conic",GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137,298.257223563]],PRIMEM["Greenwich",0],UNIT["Degree",0.017453292519943295]],PROJECTION["Albers"],PARAMETER["standard_parallel_1",20],PARAMETER["standard_parallel_2",-23],PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",25],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["Meter",1]]`

// OutputOptions returns the names of the per-cell variables that can be
// referenced in output variable expressions.
func (g *Grid) OutputOptions() []string {
	return []string{"Row", "Col", "CenterX", "CenterY", "CellArea", "LandFrac", "LandArea"}
}

func (g *Grid) cellValue(c *Cell, name string) (float64, error) {
	switch name {
	case "Row":
		return float64(c.Row), nil
	case "Col":
		return float64(c.Col), nil
	case "CenterX":
		return c.Centroid().X, nil
	case "CenterY":
		return c.Centroid().Y, nil
	case "CellArea":
		return c.Area(), nil
	case "LandFrac":
		return c.LandFrac, nil
	case "LandArea":
		return c.LandFrac * c.Area(), nil
	}
	return 0, fmt.Errorf("osmafrica: undefined variable name '%s'", name)
}

// Outputter is a holder for output parameters.
//
// fileName contains the path where the output will be saved. A `.shp`
// extension selects shapefile output and `.geojson` or `.json` selects
// GeoJSON output.
//
// outputVariables maps the names of the variables for which data should be
// written to expressions that define how the requested data should be
// calculated. These expressions can utilize variables built into the grid,
// user-defined variables, and functions.
//
// modelVariables is automatically generated based on the grid variables
// that are required to calculate the requested output variables.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	fileName        string
	projWKT         string
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of default
// output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'sqrt(x)' which takes the square root of x.
//
// 'abs(x)' which takes the absolute value of x.
//
// 'gridsum(v)' which sums the named grid variable v (quoted) across all
// grid cells.
//
// projWKT is the well-known-text form of the grid projection, written to
// the .prj sidecar of shapefile output; if it is empty, no sidecar is
// written.
func NewOutputter(fileName, projWKT string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("osmafrica: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"sqrt": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("osmafrica: got %d arguments for function 'sqrt', but needs 1", len(arg))
			}
			return math.Sqrt(arg[0].(float64)), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("osmafrica: got %d arguments for function 'abs', but needs 1", len(arg))
			}
			return math.Abs(arg[0].(float64)), nil
		},
		// Placeholder so that expressions using gridsum parse; it is
		// bound to an actual grid in Results.
		"gridsum": func(arg ...interface{}) (interface{}, error) {
			return nil, fmt.Errorf("osmafrica: 'gridsum' called outside of grid evaluation")
		},
	}

	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := Outputter{
		fileName:        fileName,
		projWKT:         projWKT,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
	}
	for k, v := range outputVariables {
		o.outputVariables[k] = v
	}

	if err := o.checkForDerivatives(); err != nil {
		return nil, err
	}
	return &o, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

var wordBoundary = regexp.MustCompile(`[A-Za-z0-9_]`)

// checkForDerivatives identifies the unique input variables that are
// required to calculate the requested output variables, expanding any
// user-defined output variable that shows up in another output variable's
// expression into the expression that defines it.
func (o *Outputter) checkForDerivatives() error {
	o.modelVariables = o.modelVariables[:0]
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("osmafrica o.outputVariables: %v", err)
		}
		uniqueVars := removeDuplicates(expression.Vars())
		for _, uniqueVar := range uniqueVars {
			def, ok := o.outputVariables[uniqueVar]
			if !ok || def == uniqueVar {
				o.modelVariables = append(o.modelVariables, uniqueVar)
				continue
			}
			// The variable is itself an output variable defined by a
			// separate expression: substitute every standalone
			// occurrence of its name with its defining expression.
			// Occurrences that are part of a longer name (e.g. 'Land'
			// inside 'LandFrac') are left alone.
			split := strings.Split(val, uniqueVar)
			for i := 0; i < len(split)-1; i++ {
				prevOK := split[i] == "" || !wordBoundary.MatchString(split[i][len(split[i])-1:])
				nextOK := split[i+1] == "" || !wordBoundary.MatchString(split[i+1][:1])
				split[i] += uniqueVar
				if prevOK && nextOK {
					split[i] = strings.Replace(split[i], uniqueVar, "("+def+")", 1)
				}
			}
			o.outputVariables[key] = strings.Join(split, "")
			return o.checkForDerivatives()
		}
	}
	o.modelVariables = removeDuplicates(o.modelVariables)
	return nil
}

// checkOutputNames checks (1) if any output variable names exceed 10
// characters and (2) if any output variable names include characters that
// are unsupported in shapefile field names.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		long := len(key) > 10
		ok, err := regexp.MatchString(`^[A-Za-z]\w*$`, key)
		if err != nil {
			panic(err)
		}
		if long {
			return fmt.Errorf("osmafrica: output variable name '%s' exceeds 10 characters", key)
		} else if !ok {
			return fmt.Errorf("osmafrica: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// Results evaluates the output variable expressions for every cell in g,
// returning one value per cell per output variable.
func (g *Grid) Results(o *Outputter) (map[string][]float64, error) {
	model := make(map[string][]float64)
	valuesOf := func(name string) ([]float64, error) {
		if arr, ok := model[name]; ok {
			return arr, nil
		}
		arr := make([]float64, len(g.Cells))
		for i, c := range g.Cells {
			v, err := g.cellValue(c, name)
			if err != nil {
				return nil, err
			}
			arr[i] = v
		}
		model[name] = arr
		return arr, nil
	}
	for _, v := range o.modelVariables {
		if _, err := valuesOf(v); err != nil {
			return nil, err
		}
	}

	funcs := make(map[string]govaluate.ExpressionFunction, len(o.outputFunctions))
	for k, v := range o.outputFunctions {
		funcs[k] = v
	}
	funcs["gridsum"] = func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("osmafrica: got %d arguments for function 'gridsum', but needs 1", len(args))
		}
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("osmafrica: 'gridsum' needs a quoted variable name, got %#v", args[0])
		}
		arr, err := valuesOf(name)
		if err != nil {
			return nil, err
		}
		return floats.Sum(arr), nil
	}

	results := make(map[string][]float64, len(o.outputVariables))
	for name, expStr := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(expStr, funcs)
		if err != nil {
			return nil, fmt.Errorf("osmafrica o.outputVariables: %v", err)
		}
		vars := removeDuplicates(expression.Vars())
		out := make([]float64, len(g.Cells))
		params := make(map[string]interface{}, len(vars))
		for i := range g.Cells {
			for _, v := range vars {
				params[v] = model[v][i]
			}
			r, err := expression.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("osmafrica: evaluating output variable %s: %v", name, err)
			}
			rf, ok := r.(float64)
			if !ok {
				return nil, fmt.Errorf("osmafrica: output variable %s: result %#v is not a number", name, r)
			}
			out[i] = rf
		}
		results[name] = out
	}
	return results, nil
}

// Output writes the grid cells and their output variables to the
// Outputter's file, in the format implied by the file extension.
func (o *Outputter) Output(g *Grid) error {
	switch ext := strings.ToLower(filepath.Ext(o.fileName)); ext {
	case ".shp":
		return o.outputShapefile(g)
	case ".geojson", ".json":
		return o.outputGeoJSON(g)
	default:
		return fmt.Errorf("osmafrica: unsupported output file type %q", ext)
	}
}

func (o *Outputter) outputShapefile(g *Grid) error {
	if err := checkOutputNames(o.outputVariables); err != nil {
		return err
	}
	results, err := g.Results(o)
	if err != nil {
		return err
	}

	vars := make([]string, 0, len(results))
	for v := range results {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	fields := make([]goshp.Field, len(vars))
	for i, v := range vars {
		fields[i] = goshp.FloatField(v, 14, 8)
	}

	fileBase := strings.TrimSuffix(o.fileName, filepath.Ext(o.fileName))
	shape, err := shp.NewEncoderFromFields(fileBase+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("error creating output shapefile: %v", err)
	}
	for i, c := range g.Cells {
		outFields := make([]interface{}, len(vars))
		for j, v := range vars {
			outFields[j] = results[v][i]
		}
		if err = shape.EncodeFields(c.Polygonal, outFields...); err != nil {
			return fmt.Errorf("error writing output shapefile: %v", err)
		}
	}
	shape.Close()

	if o.projWKT == "" {
		return nil
	}
	// Create .prj file.
	f, err := os.Create(fileBase + ".prj")
	if err != nil {
		return fmt.Errorf("error creating output prj file: %v", err)
	}
	fmt.Fprint(f, o.projWKT)
	return f.Close()
}

type geoJSONFeature struct {
	Type       string             `json:"type"`
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties map[string]float64 `json:"properties"`
}

type geoJSONFeatureCollection struct {
	Type     string            `json:"type"`
	Features []*geoJSONFeature `json:"features"`
}

func (o *Outputter) outputGeoJSON(g *Grid) error {
	results, err := g.Results(o)
	if err != nil {
		return err
	}
	fc := geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]*geoJSONFeature, len(g.Cells)),
	}
	for i, c := range g.Cells {
		gg, err := geojson.ToGeoJSON(c.Polygonal)
		if err != nil {
			return fmt.Errorf("error encoding output geometry: %v", err)
		}
		props := make(map[string]float64, len(results))
		for v, vals := range results {
			props[v] = vals[i]
		}
		fc.Features[i] = &geoJSONFeature{
			Type:       "Feature",
			Geometry:   gg,
			Properties: props,
		}
	}
	f, err := os.Create(o.fileName)
	if err != nil {
		return fmt.Errorf("error creating output file: %v", err)
	}
	e := json.NewEncoder(f)
	if err := e.Encode(fc); err != nil {
		return fmt.Errorf("error writing output file: %v", err)
	}
	return f.Close()
}
