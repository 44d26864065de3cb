package gazetteer

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Codec is the compression applied to a dataset file.
type Codec int

const (
	CodecJSON Codec = iota
	CodecGzip
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	default:
		return "json"
	}
}

// CodecFor picks the codec from a file name.
func CodecFor(path string) Codec {
	switch {
	case strings.HasSuffix(path, ".gz"):
		return CodecGzip
	case strings.HasSuffix(path, ".zst"):
		return CodecZstd
	default:
		return CodecJSON
	}
}

// Load reads and indexes the dataset at path.
func Load(path string) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetLoad, err)
	}
	defer f.Close()

	g, err := Read(bufio.NewReader(f), CodecFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Read decodes a serialized array of {zip, lat, lon} objects and indexes it.
func Read(r io.Reader, codec Codec) (*Gazetteer, error) {
	records, err := ReadRecords(r, codec)
	if err != nil {
		return nil, err
	}
	return New(records)
}

// ReadRecords decodes a dataset without indexing it.
func ReadRecords(r io.Reader, codec Codec) ([]ZipRecord, error) {
	body, closeFn, err := decompress(r, codec)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s stream: %w", ErrDatasetLoad, codec, err)
	}
	defer closeFn()

	var raw []rawRecord
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode records: %w", ErrDatasetLoad, err)
	}

	records := make([]ZipRecord, len(raw))
	for i, rr := range raw {
		records[i] = rr.record()
	}
	return records, nil
}

func decompress(r io.Reader, codec Codec) (io.Reader, func(), error) {
	switch codec {
	case CodecGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { zr.Close() }, nil
	case CodecZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}

// Write serializes records with the given codec.
func Write(w io.Writer, records []ZipRecord, codec Codec) error {
	raw := make([]rawRecord, len(records))
	for i, rec := range records {
		raw[i] = toRaw(rec)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	switch codec {
	case CodecGzip:
		zw := gzip.NewWriter(w)
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("write gzip: %w", err)
		}
		return zw.Close()
	case CodecZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("open zstd writer: %w", err)
		}
		if _, err := zw.Write(data); err != nil {
			zw.Close()
			return fmt.Errorf("write zstd: %w", err)
		}
		return zw.Close()
	default:
		_, err := w.Write(data)
		return err
	}
}

// WriteFile writes records to path, picking the codec from the extension.
func WriteFile(path string, records []ZipRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, records, CodecFor(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
