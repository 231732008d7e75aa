package cli

import (
	"fmt"
	"strings"

	"github.com/menta2k/photo-grid/internal/utils"
	"github.com/menta2k/photo-grid/pkg/processing"
	"github.com/menta2k/photo-grid/pkg/types"
)

func isURL(arg string) bool {
	lower := strings.ToLower(arg)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// collectSources turns arguments into sources, keeping argument order.
// Arguments may be files, directories or http(s) URLs.
func collectSources(p *processing.Processor, args []string) ([]types.Source, error) {
	var sources []types.Source
	for _, arg := range args {
		if isURL(arg) {
			src, err := p.URLSource(arg)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", arg, err)
			}
			sources = append(sources, src)
			continue
		}

		files, err := utils.ExpandInputs([]string{arg})
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			src, err := p.FileSource(file)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			sources = append(sources, src)
		}
	}
	return sources, nil
}
