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
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ctessum/geom/proj"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	osmafrica "github.com/yannforget/osm-in-africa"
)

// Grid builds the land-clipped analysis grid and writes it to outputFile
// (and, if snapshotFile is not empty, to a gob snapshot for later reuse).
//
// CobraCommand is the cobra.Command instance where Grid is called from.
// It is needed to direct log output.
//
// logFile is the path to the desired logfile location; if it is empty the
// log goes to the command output only.
//
// outputVariables specifies which variables should be included in the
// output file.
func Grid(CobraCommand *cobra.Command, logFile, outputFile, snapshotFile string,
	outputVariables map[string]string, config *GridBuildConfig) error {

	startTime := time.Now()

	w := io.Writer(CobraCommand.OutOrStdout())
	if logFile != "" {
		logf, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("osmafrica: problem creating log file: %v", err)
		}
		defer logf.Close()
		w = io.MultiWriter(w, logf)
	}
	log.SetOutput(w)

	// Receive and print status messages.
	msgLog := make(chan string)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for msg := range msgLog {
			log.Print(msg)
		}
		wg.Done()
	}()

	log.Printf("Building grid %s (cell size %g)", config.GridName, config.CellSize)

	sr, err := proj.Parse(config.GridProj)
	if err != nil {
		return fmt.Errorf("osmafrica: while parsing GridProj: %v", err)
	}

	land, err := config.Land.LoadLandmass(sr, msgLog)
	if err != nil {
		return err
	}

	g, err := osmafrica.NewRegular(config.GridName, land.Bounds(), config.CellSize, sr, config.GridProj)
	if err != nil {
		return err
	}
	total := len(g.Cells)
	g.ClipToLand(land)
	log.Printf("Kept %d of %d cells (%d x %d) after clipping to land",
		len(g.Cells), total, g.Nx, g.Ny)

	o, err := osmafrica.NewOutputter(outputFile, projWKT(config.GridProj), outputVariables, nil)
	if err != nil {
		return err
	}
	if err := o.Output(g); err != nil {
		return err
	}
	log.Printf("Wrote %s", outputFile)

	if snapshotFile != "" {
		f, err := os.Create(snapshotFile)
		if err != nil {
			return fmt.Errorf("osmafrica: problem creating snapshot file: %v", err)
		}
		if err := g.Save(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("Wrote %s", snapshotFile)
	}

	close(msgLog)
	wg.Wait()
	log.Printf("Completed in %v", time.Since(startTime))
	return nil
}

// projWKT returns the well-known-text form to write to the shapefile .prj
// sidecar. A user-supplied OutputProjWKT takes precedence; otherwise the
// WKT of the default analysis projection is used when it matches projDef.
func projWKT(projDef string) string {
	if wkt := expandEnv(Cfg.GetString("OutputProjWKT")); wkt != "" {
		return wkt
	}
	if projDef == osmafrica.DefaultProj {
		return osmafrica.DefaultProjWKT
	}
	return ""
}

// Stats loads a grid snapshot written by Grid and prints summary
// statistics to the command output.
func Stats(CobraCommand *cobra.Command, snapshotFile string) error {
	if snapshotFile == "" {
		return fmt.Errorf("you need to specify a snapshot file configuration variable " +
			`(for example: SnapshotFile="africa_grid.gob")`)
	}
	f, err := os.Open(snapshotFile)
	if err != nil {
		return fmt.Errorf("osmafrica: problem opening snapshot file: %v", err)
	}
	defer f.Close()
	g, err := osmafrica.Load(f)
	if err != nil {
		return err
	}

	CobraCommand.Printf("Grid %s: %d x %d cells of %g x %g\n", g.Name, g.Nx, g.Ny, g.Dx, g.Dy)
	CobraCommand.Printf("Cells intersecting land: %d\n", len(g.Cells))
	if len(g.Cells) == 0 {
		return nil
	}

	fracs := make([]float64, len(g.Cells))
	for i, c := range g.Cells {
		fracs[i] = c.LandFrac
	}
	const sqkm = 1.0e6
	CobraCommand.Printf("Grid area: %.0f km2\n", g.Area()/sqkm)
	CobraCommand.Printf("Land area: %.0f km2\n", g.LandArea()/sqkm)
	CobraCommand.Printf("Land fraction: min %.3f, mean %.3f, max %.3f\n",
		floats.Min(fracs), floats.Sum(fracs)/float64(len(fracs)), floats.Max(fracs))
	return nil
}
