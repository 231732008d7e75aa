package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	photogrid "github.com/menta2k/photo-grid"
	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

// statsReport is the JSON form of the stats command
type statsReport struct {
	Stats   types.Stats       `json:"stats"`
	Entries []photogrid.Entry `json:"entries,omitempty"`
	Failed  []string          `json:"failed,omitempty"`
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [files, directories or URLs...]",
		Short: "Count photos by orientation and report how many pages they fill",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processor := processing.NewProcessor()
			sources, err := collectSources(processor, args)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				return errors.New("no input images found")
			}

			session, err := photogrid.NewWithOptions(sessionOptions(a.cfg, nil))
			if err != nil {
				return err
			}

			stats, addErr := session.Add(cmd.Context(), sources)
			if addErr != nil && cmd.Context().Err() != nil {
				return addErr
			}
			if addErr != nil {
				log.Warn().Err(addErr).Msg("some photos could not be decoded")
			}

			w := cmd.OutOrStdout()
			if mustGetBool(cmd, "json") {
				report := statsReport{Stats: stats, Failed: failedNames(addErr)}
				if mustGetBool(cmd, "list") {
					report.Entries = session.Entries()
				}
				return writeJSON(w, report)
			}

			if mustGetBool(cmd, "list") {
				for _, e := range session.Entries() {
					fmt.Fprintf(w, "%-9s %5dx%-5d %s\n", e.Orientation, e.Width, e.Height, e.Name)
				}
				fmt.Fprintln(w)
			}
			printStats(w, stats)
			for _, name := range failedNames(addErr) {
				fmt.Fprintf(w, "Skipped %s (could not decode)\n", name)
			}
			return nil
		},
	}

	cmd.Flags().Bool("json", false, "print the report as JSON")
	cmd.Flags().BoolP("list", "l", false, "list every classified photo")

	return cmd
}

func printStats(w io.Writer, s types.Stats) {
	fmt.Fprintf(w, "Portrait photos:  %d (%d page(s))\n", s.PortraitCount, s.PortraitPages)
	fmt.Fprintf(w, "Landscape photos: %d (%d page(s))\n", s.LandscapeCount, s.LandscapePages)
	fmt.Fprintf(w, "Total pages:      %d\n", s.TotalPages)
	if s.Warning != nil {
		for _, msg := range s.Warning.Messages() {
			fmt.Fprintf(w, "Warning: %s\n", msg)
		}
	}
}
