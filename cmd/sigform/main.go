package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/reoring/sigform"
	"github.com/reoring/sigform/stdschema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "validate":
		validateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "sigform CLI\n\nUsage:\n  sigform validate -schema schema.json|schema.yaml -data data.json [-v]\n\nValidates a JSON document against a JSON Schema and prints one line per\nviolating field. Exits 1 when the document is invalid.")
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var schemaPath, dataPath string
	var verbose bool
	fs.StringVar(&schemaPath, "schema", "", "JSON Schema document (.json or .yaml)")
	fs.StringVar(&dataPath, "data", "", "JSON document to validate")
	fs.BoolVar(&verbose, "v", false, "enable engine debug logging")
	_ = fs.Parse(args)
	if schemaPath == "" || dataPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	rule, err := loadRule(schemaPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "schema:", err)
		os.Exit(2)
	}
	raw, err := os.ReadFile(dataPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "data:", err)
		os.Exit(2)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		fmt.Fprintln(os.Stderr, "data:", err)
		os.Exit(2)
	}

	opts := []sigform.Option{sigform.WithName(strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath)))}
	if verbose {
		log, err := zap.NewDevelopment()
		if err == nil {
			defer log.Sync()
			opts = append(opts, sigform.WithLogger(log))
		}
	}
	form := sigform.New(data, sigform.SchemaOf(func(p *sigform.FieldPath) {
		stdschema.Validate(p, rule)
	}), opts...)

	errs := form.Root().ErrorSummary()
	if len(errs) == 0 {
		fmt.Println("ok")
		return
	}
	for _, e := range errs {
		fmt.Printf("%s: %s\n", e.Field.Name(), e.Message)
	}
	os.Exit(1)
}

func loadRule(path string) (*stdschema.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return stdschema.CompileYAML(raw)
	default:
		return stdschema.CompileJSON(raw)
	}
}
