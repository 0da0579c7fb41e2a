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

// Command osmafrica is a command-line interface for building land-clipped
// analysis grids for OpenStreetMap statistics.
package main

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/yannforget/osm-in-africa/osmafricautil"
)

func main() {
	logger := logrus.StandardLogger()
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	log.SetFlags(0)
	log.SetOutput(logger.Writer())

	if err := osmafricautil.Root.Execute(); err != nil {
		os.Exit(1)
	}
}
