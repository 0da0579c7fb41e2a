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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/geom/proj"
	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	osmafrica "github.com/yannforget/osm-in-africa"
)

// GridBuildConfig holds the configuration for building a land-clipped grid.
type GridBuildConfig struct {
	Land     osmafrica.LandmassConfig
	GridName string
	GridProj string
	CellSize float64
}

// GridConfig unmarshals a viper configuration for a land-clipped grid.
func GridConfig(cfg *viper.Viper) (*GridBuildConfig, error) {
	ctx := context.TODO()
	c := GridBuildConfig{
		Land: osmafrica.LandmassConfig{
			BoundaryFile: maybeDownload(ctx,
				expandEnv(cfg.GetString("BoundaryFile")), outChan(),
				expandEnv(cfg.GetString("CacheDir"))),
			FilterColumn: expandEnv(cfg.GetString("BoundaryFilterColumn")),
			FilterValue:  expandEnv(cfg.GetString("BoundaryFilterValue")),
			Dissolve:     cfg.GetBool("Dissolve"),
		},
		GridName: expandEnv(cfg.GetString("GridName")),
		GridProj: expandEnv(cfg.GetString("GridProj")),
		CellSize: cfg.GetFloat64("CellSize"),
	}
	if c.Land.BoundaryFile == "" {
		return nil, fmt.Errorf("parsing grid configuration: BoundaryFile is not specified")
	}
	if !(c.CellSize > 0) {
		return nil, fmt.Errorf("parsing grid configuration: CellSize=%g but should be >0", c.CellSize)
	}
	if c.Land.FilterColumn == "" && c.Land.FilterValue != "" {
		return nil, fmt.Errorf("parsing grid configuration: BoundaryFilterValue is set but BoundaryFilterColumn is empty")
	}
	if _, err := proj.Parse(c.GridProj); err != nil {
		return nil, fmt.Errorf("the following error occurred while parsing the grid "+
			"projection (the GridProj variable): %v", err)
	}
	return &c, nil
}

// expandEnv expands the environment variables in s.
func expandEnv(s string) string { return os.ExpandEnv(s) }

// checkOutputVars removes end lines and expands environment variables in
// the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = stripNewlines(v)
		o[expandEnv(k)] = expandEnv(v)
	}
	return o, nil
}

func stripNewlines(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r', '\n':
			b = append(b, ' ')
		default:
			b = append(b, s[i])
		}
	}
	return string(b)
}

// checkOutputFile makes sure that the output file is specified and that its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="africa_grid.shp")`)
	}
	f = expandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("osmafrica: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile expands any environment variables in the log file path.
func checkLogFile(logFile string) string {
	return expandEnv(logFile)
}

// GetStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json object if
// it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}
