package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hesusruiz/vcutils/yaml"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Veykril/pagliascii/adoc"
)

var log *zap.SugaredLogger

var debug bool

// loadConfig reads the optional YAML configuration file. An empty file
// name yields an empty configuration, so the rest of the program does not
// have to care whether a file was given.
func loadConfig(fileName string) (*yaml.YAML, error) {
	if len(fileName) == 0 {
		return yaml.ParseYaml("")
	}
	cfg, err := yaml.ParseYamlFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", fileName, err)
	}
	return cfg, nil
}

// buildAttributes assembles the initial attribute map for the preprocessor
// from the config file ("attributes" section) and the repeatable --attr
// flag. Flags win over the config file.
func buildAttributes(cfg *yaml.YAML, flagAttrs []string) adoc.AttributeMap {
	attrs := adoc.NewAttributeMap()

	for name, value := range cfg.Map("attributes", nil) {
		attrs.Set(name, fmt.Sprint(value))
	}

	// A flag is either "name" or "name=value"
	for _, flagAttr := range flagAttrs {
		name, value, _ := strings.Cut(flagAttr, "=")
		attrs.Set(name, value)
	}

	return attrs
}

// run amalgamates and parses the input file once and returns the bytes to
// write to the output.
func run(c *cli.Context, inputFileName string, cfg *yaml.YAML) ([]byte, error) {

	// Read the whole root document into memory; includes are resolved
	// lazily while preprocessing.
	source, err := os.ReadFile(inputFileName)
	if err != nil {
		return nil, err
	}

	// Includes are resolved relative to the directory of the input file,
	// unless the config says otherwise.
	includeRoot := cfg.String("includeRoot", filepath.Dir(inputFileName))

	attrs := buildAttributes(cfg, c.StringSlice("attr"))

	pp := adoc.NewPreprocessor(string(source), adoc.DirResolver(includeRoot), attrs)
	if depth := cfg.String("maxIncludeDepth", ""); len(depth) > 0 {
		n, err := strconv.Atoi(depth)
		if err != nil {
			return nil, fmt.Errorf("invalid maxIncludeDepth %q: %w", depth, err)
		}
		pp.SetMaxIncludeDepth(n)
	}

	if err := pp.Amalgamate(); err != nil {
		return nil, fmt.Errorf("preprocessing %s: %w", inputFileName, err)
	}

	if debug {
		log.Debugw("amalgamated", "file", inputFileName, "bytes", len(pp.Result()), "attributes", len(pp.Attributes()))
	}

	// When only the amalgamation is wanted, stop before parsing
	if c.Bool("amalgamate-only") {
		return []byte(pp.Result()), nil
	}

	doc, err := adoc.ParseDocument(adoc.NewSpan(pp.Result()))
	if err != nil {
		return nil, fmt.Errorf("parsing %s:\n%w", inputFileName, err)
	}

	return []byte(adoc.Dump(doc)), nil
}

// writeOutput writes the result to the output file, or to stdout when no
// file was requested.
func writeOutput(outputFileName string, data []byte) error {
	if len(outputFileName) == 0 {
		_, err := os.Stdout.Write(data)
		return err
	}
	// Permissions for user:rw group:rw others:r
	return os.WriteFile(outputFileName, data, 0664)
}

// processWatch checks periodically if the input file has been modified,
// and if so processes it again. Failures are logged instead of ending the
// loop, so the file can be fixed and saved without restarting.
func processWatch(c *cli.Context, inputFileName string, outputFileName string, cfg *yaml.YAML) error {

	var oldTimestamp time.Time

	// Loop forever
	for {

		// Get the modified timestamp of the input file
		info, err := os.Stat(inputFileName)
		if err != nil {
			return err
		}
		currentTimestamp := info.ModTime()

		// If current modified timestamp is newer than the previous timestamp, process the file
		if oldTimestamp.Before(currentTimestamp) {

			// Update timestamp for the next cycle
			oldTimestamp = currentTimestamp

			log.Infow("processing", "file", inputFileName)

			data, err := run(c, inputFileName, cfg)
			if err != nil {
				log.Errorw("processing failed", "file", inputFileName, "error", err)
			} else if err := writeOutput(outputFileName, data); err != nil {
				log.Errorw("writing output failed", "file", outputFileName, "error", err)
			}
		}

		// Check again in one second
		time.Sleep(1 * time.Second)

	}
}

// process is the main entry point of the program
func process(c *cli.Context) error {

	// Default input file name
	var inputFileName = "index.adoc"

	outputFileName := c.String("output")

	debug = c.Bool("debug")

	var z *zap.Logger
	var err error

	// Setup the logging system
	if debug {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}

	log = z.Sugar()
	defer log.Sync()

	// Get the input file name
	if c.Args().Present() {
		inputFileName = c.Args().First()
	} else {
		fmt.Printf("no input file provided, using %q\n", inputFileName)
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}

	// This is useful for development.
	// If the user specified watch, loop forever processing the input file when modified
	if c.Bool("watch") {
		return processWatch(c, inputFileName, outputFileName, cfg)
	}

	data, err := run(c, inputFileName, cfg)
	if err != nil {
		return err
	}

	return writeOutput(outputFileName, data)
}

func main() {

	app := &cli.App{
		Name:      "pagliascii",
		Version:   "v0.1.0",
		Compiled:  time.Now(),
		Usage:     "amalgamate an AsciiDoc-style document and dump its parse tree",
		UsageText: "pagliascii [options] [INPUT_FILE] (default input file is index.adoc)",
		Action:    process,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the result to `FILE` (default is stdout)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "read settings and initial attributes from the YAML `FILE`",
			},
			&cli.StringSliceFlag{
				Name:    "attr",
				Aliases: []string{"a"},
				Usage:   "set an initial document attribute, `NAME` or NAME=VALUE (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "amalgamate-only",
				Aliases: []string{"p"},
				Usage:   "only run the preprocessor and output the amalgamated source",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "run in debug mode",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "watch the file for changes",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println("Error:", err)
	}

}
