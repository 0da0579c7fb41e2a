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
	"archive/zip"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
)

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is an http(s) URL. If it is, it downloads
// the file into cacheDir and returns the path to the downloaded file.
// For shapefiles, it downloads all associated files and returns the path to
// the file with the ".shp" extension. Zip archives are extracted and the
// path of the contained boundary file is returned.
// c, if not nil, is a channel across which error and logging messages will
// be sent.
func maybeDownload(ctx context.Context, path string, c chan string, cacheDir string) string {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return path
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return downloadHTTP(ctx, path, c, cacheDir)
	}

	return path
}

// downloadHTTP downloads a file from the specified URL through a
// deduplicating memory+disk cache and returns the path to the downloaded
// file, so repeated runs against the same remote dataset hit the network
// only once.
func downloadHTTP(ctx context.Context, path string, c chan string, cacheDir string) string {
	dir := filepath.Join(cacheDir, "downloads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic(fmt.Errorf("osmafricautil: failed creating download cache directory: %v", err))
	}
	cache := requestcache.NewCache(fetchURL, 1, requestcache.Deduplicate(),
		requestcache.Memory(10),
		requestcache.Disk(dir, requestcache.MarshalGob, requestcache.UnmarshalGob))

	fnames := expandShp(path)
	for _, fname := range fnames {
		req := cache.NewRequest(ctx, fname, cacheKey(fname))
		result, err := req.Result()
		if err != nil {
			if c != nil {
				c <- err.Error()
			}
			return path
		}
		w, err := os.Create(filepath.Join(dir, filepath.Base(fname)))
		if err != nil {
			panic(fmt.Errorf("osmafricautil: failed creating file for download: %v", err))
		}
		if _, err := w.Write(result.([]byte)); err != nil {
			if c != nil {
				c <- err.Error()
			}
			return path
		}
		w.Close()
	}
	local := filepath.Join(dir, filepath.Base(fnames[0]))
	if strings.ToLower(filepath.Ext(local)) == ".zip" {
		extracted, err := extractBoundaryZip(local)
		if err != nil {
			if c != nil {
				c <- err.Error()
			}
			return path
		}
		return extracted
	}
	return local
}

// fetchURL retrieves the contents of an http(s) URL, retrying transient
// failures with exponential backoff.
func fetchURL(ctx context.Context, request interface{}) (interface{}, error) {
	url := request.(string)
	var body []byte
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 5 * time.Minute
	err := backoff.RetryNotify(
		func() error {
			resp, err := http.Get(url)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("osmafricautil: downloading %s: %s", url, resp.Status)
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			log.Printf("%v: retrying in %v", err, d)
		},
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// cacheKey returns the disk cache key for a URL.
func cacheKey(url string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(url)))
}

// extractBoundaryZip extracts the zip archive at path into a sibling
// directory and returns the path of the boundary file it contains.
// Natural Earth datasets are distributed as zipped shapefiles.
func extractBoundaryZip(path string) (string, error) {
	dir := strings.TrimSuffix(path, filepath.Ext(path))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("osmafricautil: extracting %s: %v", path, err)
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("osmafricautil: extracting %s: %v", path, err)
	}
	defer r.Close()
	var boundary string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		// Flatten the archive layout; shapefile sidecars need to share
		// a directory with the .shp file.
		dst := filepath.Join(dir, filepath.Base(f.Name))
		switch strings.ToLower(filepath.Ext(f.Name)) {
		case ".shp":
			boundary = dst
		case ".geojson", ".json":
			if boundary == "" {
				boundary = dst
			}
		}
		if err := extractZipFile(f, dst); err != nil {
			return "", fmt.Errorf("osmafricautil: extracting %s: %v", path, err)
		}
	}
	if boundary == "" {
		return "", fmt.Errorf("osmafricautil: archive %s contains no boundary file", path)
	}
	return boundary, nil
}

func extractZipFile(f *zip.File, dst string) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	w, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// expandShp returns the given file + associated [.dbf, .shx, .prj]
// files if the given file has the .shp extension, and returns the given
// file otherwise.
func expandShp(filename string) []string {
	o := []string{filename}
	if filepath.Ext(filename) != ".shp" {
		return o
	}
	for _, newExt := range []string{".dbf", ".shx", ".prj"} {
		o = append(o, filename[0:len(filename)-4]+newExt)
	}
	return o
}
