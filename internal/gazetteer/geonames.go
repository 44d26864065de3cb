package gazetteer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/klauspost/compress/zip"

	"github.com/thomhuang/printnearby/internal/logging"
)

// GeonamesURL is the geonames US postal code export.
const GeonamesURL = "https://download.geonames.org/export/zip/US.zip"

// geonamesEntry is the file inside the export holding the postal codes.
const geonamesEntry = "US.txt"

// FetchGeonames returns the records of the geonames US export. When cachePath
// is set and holds a readable archive it is used instead of downloading; a
// fresh download is saved there for next time.
func FetchGeonames(ctx context.Context, url, cachePath string) ([]ZipRecord, error) {
	var zr *zip.Reader
	if cachePath != "" {
		if cached, err := os.ReadFile(cachePath); err == nil {
			if zr, err = openArchive(cached); err != nil {
				logging.Warn().Err(err).Str("path", cachePath).Msg("cached geonames export is unreadable, downloading again")
			} else {
				logging.Info().Str("path", cachePath).Msg("using cached geonames export")
			}
		}
	}

	if zr == nil {
		body, err := download(ctx, url)
		if err != nil {
			return nil, err
		}
		if zr, err = openArchive(body); err != nil {
			return nil, err
		}
		if cachePath != "" {
			if err := os.WriteFile(cachePath, body, 0o644); err != nil {
				logging.Warn().Err(err).Str("path", cachePath).Msg("could not save geonames cache")
			}
		}
	}

	// only US.txt matters, the archive also carries a readme
	for _, f := range zr.File {
		if f.Name != geonamesEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", geonamesEntry, err)
		}
		defer rc.Close()
		return ParseGeonames(rc), nil
	}
	return nil, fmt.Errorf("%s not found in geonames export", geonamesEntry)
}

func openArchive(body []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("unzip geonames export: %w", err)
	}
	return zr, nil
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download geonames export: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download geonames export: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read geonames export: %w", err)
	}
	return body, nil
}

// ParseGeonames reads the tab separated geonames postal code format. Rows
// that do not parse are logged and skipped.
func ParseGeonames(r io.Reader) []ZipRecord {
	var records []ZipRecord

	tsv := csv.NewReader(r)
	tsv.Comma = '\t'
	tsv.FieldsPerRecord = 12
	tsv.LazyQuotes = true

	for {
		row, err := tsv.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.Warn().Err(err).Msg("could not read geonames row")
			continue
		}

		zip, ok := NormalizeZip(row[1])
		if !ok {
			logging.Warn().Str("zip", row[1]).Msg("skipping malformed postal code")
			continue
		}

		lat, err := strconv.ParseFloat(row[9], 64)
		if err != nil {
			logging.Warn().Err(err).Str("zip", zip).Msg("invalid latitude")
			continue
		}
		lon, err := strconv.ParseFloat(row[10], 64)
		if err != nil {
			logging.Warn().Err(err).Str("zip", zip).Msg("invalid longitude")
			continue
		}

		records = append(records, ZipRecord{Zip: zip, Lat: lat, Lon: lon})
	}

	return records
}
