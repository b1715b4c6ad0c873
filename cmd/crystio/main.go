package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"crystio/pkg/config"
	"crystio/pkg/datablock"
	"crystio/pkg/experiment"
	"crystio/pkg/format"
	"crystio/pkg/preview"
	"crystio/pkg/reflection"
	"crystio/pkg/stats"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "crystio.yaml", "Configuration file (YAML)")
	sliceSpec := flag.String("slice", "", "Image range to keep as start:stop, Python slice semantics")
	savePreviews := flag.Bool("preview", false, "Write a grayscale PNG per image")
	imagesetOut := flag.String("imageset", "", "Write the resulting image set as JSON to this file")
	reflFile := flag.String("refl", "", "Reflection table file to summarize")
	flag.Parse()

	if flag.NArg() == 0 && *reflFile == "" {
		fmt.Fprintln(os.Stderr, "usage: crystio [flags] file.h5 [file.h5 ...]")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *reflFile != "" {
		summarizeReflections(*reflFile, cfg.Reflections.Group)
	}

	if flag.NArg() == 0 {
		return
	}

	opener := format.NewHDF5()
	opener.DataPaths = cfg.Format.DataPaths
	factory := datablock.NewFactory(datablock.NewRegistry(opener))

	blocks, err := factory.FromFilenames(flag.Args())
	if err != nil {
		log.Fatalf("Failed to open input files: %v", err)
	}

	for _, block := range blocks {
		fmt.Printf("Data block: %d image(s) in %d image set(s)\n", block.NumImages(), len(block.ImageSets()))

		for _, set := range block.ImageSets() {
			if *sliceSpec != "" {
				start, stop, err := parseSlice(*sliceSpec, set.Len())
				if err != nil {
					log.Fatalf("Bad -slice value: %v", err)
				}
				set = set.Slice(start, stop)
			}

			fmt.Printf("  %s: images %v\n", set.Reader().Path(), set.Indices())

			if cfg.Output.Verbose {
				printSummaries(set)
			}

			if *savePreviews {
				if err := writePreviews(set, cfg.Preview.OutputDir); err != nil {
					log.Fatalf("Failed to write previews: %v", err)
				}
			}

			if *imagesetOut != "" {
				if err := writeImageSet(set, *imagesetOut); err != nil {
					log.Fatalf("Failed to write image set: %v", err)
				}
				fmt.Printf("  Image set JSON saved to: %s\n", *imagesetOut)
			}
		}
	}
}

// parseSlice interprets spec as start:stop with Python slice semantics:
// either side may be empty or negative, n is the set length.
func parseSlice(spec string, n int) (int, int, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want start:stop, got %q", spec)
	}
	start, stop := 0, n
	var err error
	if parts[0] != "" {
		if start, err = strconv.Atoi(parts[0]); err != nil {
			return 0, 0, fmt.Errorf("bad start %q", parts[0])
		}
	}
	if parts[1] != "" {
		if stop, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("bad stop %q", parts[1])
		}
	}
	return start, stop, nil
}

func printSummaries(set *datablock.ImageSet) {
	summaries, err := stats.SummarizeSet(set)
	if err != nil {
		log.Fatalf("Failed to compute image statistics: %v", err)
	}
	for i, s := range summaries {
		fmt.Printf("    image %d: min=%.1f max=%.1f mean=%.3f stddev=%.3f\n",
			set.Indices()[i], s.Min, s.Max, s.Mean, s.StdDev)
	}
}

func writePreviews(set *datablock.ImageSet, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(set.Reader().Path()), filepath.Ext(set.Reader().Path()))
	for i := 0; i < set.Len(); i++ {
		frame, err := set.Get(i)
		if err != nil {
			return err
		}
		name := filepath.Join(outputDir, fmt.Sprintf("%s_%04d.png", base, set.Indices()[i]))
		if err := preview.SavePNG(frame, name); err != nil {
			return err
		}
		fmt.Printf("    Preview saved to: %s\n", name)
	}
	return nil
}

func writeImageSet(set *datablock.ImageSet, path string) error {
	seq := experiment.ImageSequenceFromImageSet(set)
	data, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func summarizeReflections(path, group string) {
	table, err := reflection.LoadGroup(path, group)
	if err != nil {
		log.Fatalf("Failed to load reflection table: %v", err)
	}
	fmt.Printf("Reflection table: %d row(s), %d column(s)\n", table.Rows(), len(table.ColumnNames()))
	for _, name := range table.ColumnNames() {
		if col, ok := table.Float(name); ok {
			fmt.Printf("  %s [double] shape %v\n", name, col.Shape())
		} else if col, ok := table.Int(name); ok {
			fmt.Printf("  %s [int] shape %v\n", name, col.Shape())
		}
	}
	fmt.Printf("  experiment ids: %v\n", table.ExperimentIDs())
}
