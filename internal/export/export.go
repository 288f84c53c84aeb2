package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/JonMunkholm/tableclean/internal/logging"
	"github.com/alekLukanen/errs"
)

// Target describes one export of a cleaned frame.
type Target struct {
	Format Format `yaml:"format" json:"format"`
	Dir    string `yaml:"dir" json:"dir"`
	Name   string `yaml:"name" json:"name"` // File name without extension; defaults to "<frame>_clean"
	Bucket string `yaml:"bucket" json:"bucket"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

// Output records where an export landed.
type Output struct {
	Format    Format `json:"format"`
	Path      string `json:"path"`
	Bytes     int    `json:"bytes"`
	Bucket    string `json:"bucket,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

// Exporter writes frames to disk and, when a bucket is set, uploads them.
type Exporter struct {
	storage Uploader // nil disables uploads
}

// NewExporter creates an exporter. storage may be nil.
func NewExporter(storage Uploader) *Exporter {
	return &Exporter{storage: storage}
}

// Export writes f according to target.
func (e *Exporter) Export(ctx context.Context, f *frame.Frame, target Target) (*Output, error) {
	format := FormatCSV
	if target.Format != "" {
		parsed, err := ParseFormat(string(target.Format))
		if err != nil {
			return nil, err
		}
		format = parsed
	}
	if target.Bucket != "" && e.storage == nil {
		return nil, fmt.Errorf("export to bucket %s: object storage is not configured", target.Bucket)
	}

	dir := target.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err)
	}

	name := target.Name
	if name == "" {
		name = sanitizeName(f.Name) + "_clean"
	}
	path := filepath.Join(dir, name+"."+string(format))

	var err error
	switch format {
	case FormatParquet:
		err = WriteParquetFile(path, f)
	default:
		err = WriteCSVFile(path, f)
	}
	if err != nil {
		return nil, err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	out := &Output{Format: format, Path: path, Bytes: len(body)}

	if target.Bucket != "" {
		key := ObjectKey(target.Prefix, path)
		if err := e.storage.Upload(ctx, target.Bucket, key, body); err != nil {
			return nil, err
		}
		out.Bucket, out.ObjectKey = target.Bucket, key
	}

	logging.FromContext(ctx).Info("frame exported",
		"frame", f.Name,
		"format", string(format),
		"path", path,
		"bytes", out.Bytes,
		"object_key", out.ObjectKey,
	)
	return out, nil
}

// sanitizeName keeps a frame name usable as a file name.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "frame"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, s)
}
