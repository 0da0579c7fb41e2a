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

// Package osmafrica tiles a landmass into a regular grid of fixed-size
// equal-area cells for use in aggregating OpenStreetMap statistics per cell.
//
// A grid is built over the projected extent of a country-boundary dataset,
// padded so that the extent is an exact multiple of the cell size, and then
// clipped so that only cells intersecting land remain.
package osmafrica

// Version gives the version number.
const Version = "1.2.0"

// DefaultProj is the analysis projection used when no other projection is
// specified: Africa Albers Equal Area Conic. An equal-area projection keeps
// cell areas comparable regardless of latitude.
const DefaultProj = "+proj=aea +lat_1=20 +lat_2=-23 +lat_0=0 +lon_0=25 +x_0=0 +y_0=0 +datum=WGS84 +units=m +no_defs"

// DefaultCellSize is the default grid cell edge length [m].
const DefaultCellSize = 50000.
