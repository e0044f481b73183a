package exporter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hinosemi/internal/index"
)

// LastRunLayout formats last_run.txt.
const LastRunLayout = "2006/01/02 15:04:05"

// LastRunFileName is the generation-time marker file.
const LastRunFileName = "last_run.txt"

// Options configures a Writer.
type Options struct {
	Dir      string
	Key      string
	Location *time.Location
	Workbook bool
}

// Writer persists run artifacts atomically as a set.
type Writer struct {
	opts   Options
	logger *slog.Logger
}

// NewWriter creates a writer for opts.Dir.
func NewWriter(opts Options, logger *slog.Logger) *Writer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{opts: opts, logger: logger.With(slog.String("component", "writer"))}
}

// Artifact is one staged output file.
type Artifact struct {
	Name  string
	Write func(io.Writer) error
}

// ArtifactName returns the file name of a keyed artifact, e.g. hinosemi_intraday.csv.
func ArtifactName(key, suffix string) string {
	return strings.ToLower(key) + "_" + suffix
}

// Path returns the absolute location of an artifact name inside the output directory.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.opts.Dir, name)
}

// Artifacts lists what Write produces for series and snap. The snapshot comes last so it
// is the final file renamed into place.
func (w *Writer) Artifacts(series index.IndexSeries, snap index.Snapshot, generatedAt time.Time) []Artifact {
	loc := w.opts.Location
	artifacts := []Artifact{
		{
			Name:  ArtifactName(w.opts.Key, "intraday.csv"),
			Write: func(out io.Writer) error { return WriteSeriesCSV(out, series, loc) },
		},
		{
			Name: LastRunFileName,
			Write: func(out io.Writer) error {
				_, err := io.WriteString(out, generatedAt.In(loc).Format(LastRunLayout)+"\n")
				return err
			},
		},
	}
	if w.opts.Workbook {
		artifacts = append(artifacts, Artifact{
			Name:  ArtifactName(w.opts.Key, "intraday.xlsx"),
			Write: func(out io.Writer) error { return WriteWorkbook(out, w.opts.Key, series, loc) },
		})
	}
	return append(artifacts, Artifact{
		Name:  ArtifactName(w.opts.Key, "stats.json"),
		Write: func(out io.Writer) error { return WriteSnapshot(out, snap) },
	})
}

// Write stages and commits the standard run artifacts.
func (w *Writer) Write(ctx context.Context, series index.IndexSeries, snap index.Snapshot, generatedAt time.Time) error {
	if len(series) == 0 {
		return ErrEmptySeries
	}
	return w.Commit(ctx, w.Artifacts(series, snap, generatedAt)...)
}

// WriteFile atomically replaces a single artifact with data.
func (w *Writer) WriteFile(ctx context.Context, name string, data []byte) error {
	return w.Commit(ctx, Artifact{Name: name, Write: func(out io.Writer) error {
		_, err := io.Copy(out, bytes.NewReader(data))
		return err
	}})
}

type staged struct {
	tmp   string
	final string
}

// Commit writes every artifact to a temp file and renames them into place, in order, only
// when all of them were staged. A staging failure renames nothing. A rename failure leaves
// the earlier artifacts committed and the later ones untouched; staged files are removed.
func (w *Writer) Commit(ctx context.Context, artifacts ...Artifact) (err error) {
	if err := os.MkdirAll(w.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var files []staged
	defer func() {
		if err != nil {
			for _, f := range files {
				_ = os.Remove(f.tmp)
			}
		}
	}()

	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		tmp, serr := w.stage(a)
		if serr != nil {
			return fmt.Errorf("failed to stage %s: %w", a.Name, serr)
		}
		files = append(files, staged{tmp: tmp, final: w.Path(a.Name)})
	}

	for i, f := range files {
		if rerr := os.Rename(f.tmp, f.final); rerr != nil {
			// Already renamed files stay; the remaining temp files are cleaned up.
			files = files[i:]
			return fmt.Errorf("failed to commit %s: %w", filepath.Base(f.final), rerr)
		}
	}

	names := make([]string, len(artifacts))
	for i, a := range artifacts {
		names[i] = a.Name
	}
	w.logger.InfoContext(ctx, "artifacts written",
		slog.String("dir", w.opts.Dir),
		slog.Any("files", names))
	return nil
}

func (w *Writer) stage(a Artifact) (string, error) {
	f, err := os.CreateTemp(w.opts.Dir, "."+a.Name+".*.tmp")
	if err != nil {
		return "", err
	}

	werr := a.Write(f)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
