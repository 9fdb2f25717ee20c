package fetcher

import (
	"archive/zip"
	"io"
	"path"
	"strings"

	"github.com/rotisserie/eris"
)

// zipEntryReader closes the archive together with the entry.
type zipEntryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *zipEntryReader) Close() error {
	entryErr := r.ReadCloser.Close()
	archiveErr := r.archive.Close()
	if entryErr != nil {
		return eris.Wrap(entryErr, "zip: close entry")
	}
	if archiveErr != nil {
		return eris.Wrap(archiveErr, "zip: close archive")
	}
	return nil
}

// OpenZIPGeoJSON opens the first .geojson (or, failing that, .json) entry of
// the archive at zipPath. Entries under __MACOSX/ are ignored.
func OpenZIPGeoJSON(zipPath string) (io.ReadCloser, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	entry := findGeoJSONEntry(r.File)
	if entry == nil {
		_ = r.Close()
		return nil, eris.Errorf("zip: no GeoJSON entry in %s", zipPath)
	}

	rc, err := entry.Open()
	if err != nil {
		_ = r.Close()
		return nil, eris.Wrap(err, "zip: open entry")
	}
	return &zipEntryReader{ReadCloser: rc, archive: r}, nil
}

func findGeoJSONEntry(files []*zip.File) *zip.File {
	var fallback *zip.File
	for _, f := range files {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".geojson":
			return f
		case ".json":
			if fallback == nil {
				fallback = f
			}
		}
	}
	return fallback
}
