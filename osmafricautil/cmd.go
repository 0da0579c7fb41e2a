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

// Package osmafricautil wires the osmafrica grid builder to its
// command-line interface and configuration handling.
package osmafricautil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	osmafrica "github.com/yannforget/osm-in-africa"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the grid builder.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired log file location. If it is empty,
              the log will only be written to standard output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "BoundaryFile",
			usage: `
              BoundaryFile is the location of the country-boundary dataset
              (an ESRI shapefile or GeoJSON file). It can be a local path or an
              http(s) URL; remote files are downloaded and cached in CacheDir.
              A .zip URL (the Natural Earth distribution format) is extracted
              after download.`,
			defaultVal: "https://naciscdn.org/naturalearth/110m/cultural/ne_110m_admin_0_countries.zip",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "BoundaryFilterColumn",
			usage: `
              BoundaryFilterColumn is the name of the attribute used to subset
              the boundary dataset. Leave it empty to keep every feature.`,
			defaultVal: "CONTINENT",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "BoundaryFilterValue",
			usage: `
              BoundaryFilterValue is the value of BoundaryFilterColumn that
              selects the features to keep. The comparison ignores case and
              surrounding whitespace.`,
			defaultVal: "Africa",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "Dissolve",
			usage: `
              Dissolve specifies whether to union the boundary features into a
              single landmass polygon before gridding. It avoids double-counting
              land area where country polygons overlap, at some loading cost.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "GridProj",
			usage: `
              GridProj gives projection information for the analysis grid in
              Proj4 format. It should be an equal-area projection so that cell
              areas are comparable regardless of latitude.`,
			defaultVal: osmafrica.DefaultProj,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "CellSize",
			usage: `
              CellSize is the grid cell edge length in the units of GridProj
              (normally meters).`,
			defaultVal: osmafrica.DefaultCellSize,
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "GridName",
			usage: `
              GridName is the name of the grid, used in log messages and
              metadata.`,
			defaultVal: "africa_grid",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path of the output file. A '.shp' extension
              selects shapefile output (with a .prj projection sidecar) and
              '.geojson' or '.json' selects GeoJSON output.`,
			defaultVal: "africa_grid.shp",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "SnapshotFile",
			usage: `
              SnapshotFile is the path where the built grid is saved for reuse
              by the stats command. Leave it empty to skip the snapshot.`,
			defaultVal: "africa_grid.gob",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags(), statsCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which variables should be written to the
              output file, mapping output column names to expressions over the
              per-cell variables Row, Col, CenterX, CenterY, CellArea, LandFrac,
              and LandArea.`,
			defaultVal: map[string]string{
				"row":      "Row",
				"col":      "Col",
				"landfrac": "LandFrac",
			},
			flagsets: []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "OutputProjWKT",
			usage: `
              OutputProjWKT is the well-known-text form of GridProj, written to
              the .prj sidecar of shapefile output. If it is empty and GridProj
              is the default projection, the default projection's WKT is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is the directory where downloaded boundary datasets are
              cached.`,
			defaultVal: "${HOME}/.osmafrica",
			flagsets:   []*pflag.FlagSet{gridCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("OSMAFRICA")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := b.String()
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(gridCmd)
	Root.AddCommand(statsCmd)
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Print(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("osmafrica: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "osmafrica",
	Short: "A land-clipped analysis grid builder.",
	Long: `osmafrica tiles a landmass into a regular grid of fixed-size
equal-area cells for aggregating OpenStreetMap statistics per cell.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'OSMAFRICA_var' where 'var' is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of osmafrica.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("osmafrica v%s\n", osmafrica.Version)
	},
	DisableAutoGenTag: true,
}

// gridCmd is a command that builds the land-clipped grid and writes it out.
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Build the land-clipped analysis grid",
	Long: `grid loads the country-boundary dataset (downloading it first if it
is remote), reprojects it into the analysis projection, tiles its extent
into fixed-size square cells, discards cells that do not intersect land,
and writes the result to the output file. If SnapshotFile is set, the grid
is also saved for later use by the stats command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gc, err := GridConfig(Cfg)
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		return Grid(cmd, checkLogFile(Cfg.GetString("LogFile")), outputFile,
			expandEnv(Cfg.GetString("SnapshotFile")), outputVars, gc)
	},
	DisableAutoGenTag: true,
}

// statsCmd is a command that summarizes a previously built grid.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a previously built grid",
	Long: `stats loads a grid snapshot written by the grid command and prints
summary statistics: cell count, grid and land area, and the land-fraction
distribution.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Stats(cmd, expandEnv(Cfg.GetString("SnapshotFile")))
	},
	DisableAutoGenTag: true,
}
