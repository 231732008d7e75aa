package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	photogrid "github.com/menta2k/photo-grid"
	"github.com/menta2k/photo-grid/internal/config"
	"github.com/menta2k/photo-grid/internal/utils"
	"github.com/menta2k/photo-grid/pkg/classifier"
	"github.com/menta2k/photo-grid/pkg/cropper"
	"github.com/menta2k/photo-grid/pkg/exporter"
	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

// buildReport is printed after a build, as text or JSON
type buildReport struct {
	Stats    types.Stats `json:"stats"`
	Pages    int         `json:"pages"`
	Archive  string      `json:"archive,omitempty"`
	Files    []string    `json:"files,omitempty"`
	Previews []string    `json:"previews,omitempty"`
	Failed   []string    `json:"failed,omitempty"`
}

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [files, directories or URLs...]",
		Short: "Compose photos into grid pages and export them",
		Long: `Build classifies the given photos, composes them onto grid pages and
exports the pages as JPEG files. By default the pages are packed into a
zip archive; use --out-dir to write them as plain files instead.`,
		Example: `  photo-grid build ./holiday -o holiday.zip
  photo-grid build a.jpg b.jpg https://example.com/c.jpg --out-dir pages`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, a, args)
		},
	}

	cmd.Flags().StringP("output", "o", "", "zip archive path (default from config, photo_grids.zip)")
	cmd.Flags().String("out-dir", "", "write pages as files into this directory instead of a zip")
	cmd.Flags().String("preview-dir", "", "also write scaled page previews into this directory")
	cmd.Flags().Int("workers", 0, "number of concurrent decodes (default from config)")
	cmd.Flags().Int("quality", 0, "JPEG quality for exported pages, 1-100 (default from config)")
	cmd.Flags().String("interpolation", "", "resampling: "+strings.Join(cropper.InterpolationNames(), "|"))
	cmd.Flags().Bool("json", false, "print the report as JSON")
	cmd.Flags().Bool("no-progress", false, "hide the progress bar")

	return cmd
}

func runBuild(cmd *cobra.Command, a *app, args []string) error {
	cfg := *a.cfg
	if v := mustGetInt(cmd, "workers"); v > 0 {
		cfg.Classifier.Workers = v
	}
	if v := mustGetInt(cmd, "quality"); v > 0 {
		cfg.Export.Quality = v
	}
	if v := mustGetString(cmd, "interpolation"); v != "" {
		cfg.Cropper.Interpolation = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	jsonOutput := mustGetBool(cmd, "json")
	showProgress := !jsonOutput && !mustGetBool(cmd, "no-progress")

	processor := processing.NewProcessor()
	sources, err := collectSources(processor, args)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no input images found")
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = newProgressBar(cmd.ErrOrStderr(), len(sources), "Classifying")
	}

	session, err := photogrid.NewWithOptions(sessionOptions(&cfg, bar))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stats, addErr := session.Add(ctx, sources)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	if addErr != nil {
		if ctx.Err() != nil {
			return addErr
		}
		log.Warn().Err(addErr).Msg("some photos could not be decoded")
	}

	output, err := session.Generate()
	if err != nil {
		return err
	}
	if output.Total() == 0 {
		return errors.New("no photos could be laid out")
	}

	report := buildReport{
		Stats:  stats,
		Pages:  output.Total(),
		Failed: failedNames(addErr),
	}

	if outDir := mustGetString(cmd, "out-dir"); outDir != "" {
		manifest, err := session.Export(ctx, exporter.NewDirArchiver(outDir))
		if err != nil {
			return err
		}
		for _, name := range strings.Fields(string(manifest)) {
			report.Files = append(report.Files, filepath.Join(outDir, name))
		}
	} else {
		path := mustGetString(cmd, "output")
		if path == "" {
			path = cfg.Export.ArchiveName
		}
		blob, err := session.ExportZip(ctx)
		if err != nil {
			return err
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := utils.EnsureDir(dir); err != nil {
				return err
			}
		}
		if err := os.WriteFile(path, blob, 0o644); err != nil {
			return fmt.Errorf("failed to write archive: %w", err)
		}
		report.Archive = path
	}

	if previewDir := mustGetString(cmd, "preview-dir"); previewDir != "" {
		report.Previews, err = session.WritePreviews(previewDir, cfg.Preview.Format, cfg.Preview.MaxSize)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printBuildReport(cmd.OutOrStdout(), report)
	return nil
}

// sessionOptions maps configuration onto session options; bar may be nil
func sessionOptions(cfg *config.Config, bar *progressbar.ProgressBar) photogrid.Options {
	opts := photogrid.Options{
		Classifier:    classifier.Config{Workers: cfg.Classifier.Workers},
		Cropper:       cropper.CropConfig{Interpolation: cfg.Cropper.Interpolation},
		Export:        exporter.Config{Quality: cfg.Export.Quality},
		ThumbnailSize: cfg.Classifier.ThumbnailSize,
	}
	if bar != nil {
		opts.Classifier.Progress = func(done, total int) {
			_ = bar.Set(done)
		}
	}
	return opts
}

func newProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

// failedNames lists the sources reported by a classification error
func failedNames(err error) []string {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var names []string
	for _, e := range errs {
		var decodeErr *classifier.DecodeError
		if errors.As(e, &decodeErr) {
			names = append(names, decodeErr.Name)
		}
	}
	return names
}

func printBuildReport(w io.Writer, r buildReport) {
	printStats(w, r.Stats)
	fmt.Fprintln(w)

	if r.Archive != "" {
		fmt.Fprintf(w, "Wrote %d page(s) to %s\n", r.Pages, r.Archive)
	}
	for _, f := range r.Files {
		fmt.Fprintf(w, "Wrote %s\n", f)
	}
	for _, p := range r.Previews {
		fmt.Fprintf(w, "Preview %s\n", p)
	}
	for _, name := range r.Failed {
		fmt.Fprintf(w, "Skipped %s (could not decode)\n", name)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
