package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/reoring/goform"
	"github.com/reoring/goform/fieldpath"
	"github.com/reoring/goform/formconfig"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	sub := os.Args[1]
	switch sub {
	case "validate":
		os.Exit(validateCmd(os.Args[2:]))
	case "dirty":
		dirtyCmd(os.Args[2:])
	case "path":
		pathCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "goform CLI\n\nUsage:\n  goform validate -config form.yaml -values values.json [-fields a,b] [-v]\n  goform dirty -config form.yaml -values values.json\n  goform path <path>...\n\nNotes:\n  - validate exits with status 1 when the values are invalid.")
}

type validateOutput struct {
	Valid  bool             `json:"valid"`
	Errors goform.ErrorTree `json:"errors"`
	Values map[string]any   `json:"values,omitempty"`
}

func validateCmd(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var configPath, valuesPath, fieldsCSV string
	var verbose, echo bool
	fs.StringVar(&configPath, "config", "", "form config (.yaml, .yml or .json)")
	fs.StringVar(&valuesPath, "values", "", "JSON document with the values to validate")
	fs.StringVar(&fieldsCSV, "fields", "", "comma-separated fields to validate (default: all)")
	fs.BoolVar(&verbose, "v", false, "log diagnostics to stderr")
	fs.BoolVar(&echo, "echo", false, "include the values in the output")
	_ = fs.Parse(args)
	if configPath == "" || valuesPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	f := loadForm(configPath, valuesPath, verbose)
	valid := f.Trigger(ctx, splitCSV(fieldsCSV), goform.TriggerOptions{})
	out := validateOutput{Valid: valid, Errors: f.FormState().Errors()}
	if echo {
		out.Values = f.GetValues()
	}
	printJSON(out)
	if !valid {
		return 1
	}
	return 0
}

func dirtyCmd(args []string) {
	fs := flag.NewFlagSet("dirty", flag.ExitOnError)
	var configPath, valuesPath string
	fs.StringVar(&configPath, "config", "", "form config (.yaml, .yml or .json)")
	fs.StringVar(&valuesPath, "values", "", "JSON document with the current values")
	_ = fs.Parse(args)
	if configPath == "" || valuesPath == "" {
		fs.Usage()
		os.Exit(2)
	}
	f := loadForm(configPath, valuesPath, false)
	st := f.FormState()
	printJSON(map[string]any{
		"isDirty": st.IsDirty(),
		"paths":   st.DirtyFields().Paths(),
	})
}

func pathCmd(args []string) {
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	type segment struct {
		Key   string `json:"key,omitempty"`
		Index *int   `json:"index,omitempty"`
	}
	type parsed struct {
		Path      string    `json:"path"`
		Canonical string    `json:"canonical"`
		Segments  []segment `json:"segments"`
	}
	out := make([]parsed, 0, len(args))
	for _, p := range args {
		segs := fieldpath.Parse(p)
		ps := parsed{Path: p, Canonical: fieldpath.Join(segs), Segments: make([]segment, 0, len(segs))}
		for _, s := range segs {
			if s.IsIndex {
				i := s.Index
				ps.Segments = append(ps.Segments, segment{Index: &i})
			} else {
				ps.Segments = append(ps.Segments, segment{Key: s.Key})
			}
		}
		out = append(out, ps)
	}
	printJSON(out)
}

// loadForm builds the form from the config and loads the values on top of the
// configured defaults.
func loadForm(configPath, valuesPath string, verbose bool) *goform.Form {
	cfg, err := formconfig.Load(configPath)
	if err != nil {
		fatalf("%v", err)
	}
	var extra []goform.Option
	if verbose {
		extra = append(extra, goform.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	f, err := cfg.Build(extra...)
	if err != nil {
		fatalf("%v", err)
	}
	data, err := os.ReadFile(valuesPath)
	if err != nil {
		fatalf("reading values: %v", err)
	}
	values, err := goform.ValuesFromJSON(data)
	if err != nil {
		fatalf("%v", err)
	}
	f.Reset(context.Background(), values, goform.KeepStateOptions{KeepDefaultValues: true})
	return f
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("encode output: %v", err)
	}
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
