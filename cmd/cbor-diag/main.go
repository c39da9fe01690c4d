// Command cbor-diag converts between binary, hex, annotated hex and
// diagnostic notation representations of CBOR. It reads one data item (or,
// with -seq, a series of undelimited items) from a file argument or stdin
// and writes the requested form to stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/jmespath/go-jmespath"
	"github.com/rs/zerolog"

	cbordiag "github.com/Nemo157/cbor-diag"
	"github.com/Nemo157/cbor-diag/cbor"
)

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "cbor-diag: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cbor-diag: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	From    string
	To      string
	Query   string
	Seq     bool
	Verbose bool
	Input   string // file path, empty for stdin
}

func parseArgs(args []string) (options, error) {
	fs := flag.NewFlagSet("cbor-diag", flag.ContinueOnError)

	var opts options
	var configPath string
	fs.StringVar(&opts.From, "from", "", "input format: auto, bytes, hex or diag")
	fs.StringVar(&opts.To, "to", "", "output format: diag, compact, annotated, hex or bytes")
	fs.StringVar(&opts.Query, "query", "", "JMESPath expression applied to the decoded item")
	fs.BoolVar(&opts.Seq, "seq", false, "parse a series of undelimited binary items")
	fs.BoolVar(&opts.Verbose, "verbose", false, "log conversion details to stderr")
	fs.StringVar(&configPath, "config", "", "TOML file supplying flag defaults")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.Input = fs.Arg(0)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if err := applyConfig(&opts, configPath, set); err != nil {
		return options{}, err
	}

	if opts.From == "" {
		opts.From = "auto"
	}
	if opts.To == "" {
		opts.To = "diag"
	}
	switch opts.From {
	case "auto", "bytes", "hex", "diag":
	default:
		return options{}, fmt.Errorf("unknown input format %q", opts.From)
	}
	switch opts.To {
	case "diag", "compact", "annotated", "hex", "bytes":
	default:
		return options{}, fmt.Errorf("unknown output format %q", opts.To)
	}
	if opts.Seq && opts.From != "auto" && opts.From != "bytes" {
		return options{}, fmt.Errorf("-seq only reads binary input")
	}
	return opts, nil
}

func run(opts options, out io.Writer) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.Disabled)
	if opts.Verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	data, err := readInput(opts.Input)
	if err != nil {
		return err
	}
	log.Debug().Int("bytes", len(data)).Str("from", opts.From).Msg("read input")

	if opts.Seq {
		for len(data) > 0 {
			v, n, err := cbordiag.ParseBytesPartial(data)
			if err != nil {
				return err
			}
			data = data[n:]
			if err := output(v, opts, out, log); err != nil {
				return err
			}
		}
		return nil
	}

	v, err := parse(data, opts.From, log)
	if err != nil {
		return err
	}
	return output(v, opts, out, log)
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func parse(data []byte, from string, log zerolog.Logger) (cbor.Value, error) {
	switch from {
	case "bytes":
		return cbordiag.ParseBytes(data)
	case "hex":
		return cbordiag.ParseHex(string(data))
	case "diag":
		return cbordiag.ParseDiag(string(data))
	}

	// auto: binary first, then the two text forms
	if v, err := cbordiag.ParseBytes(data); err == nil {
		log.Debug().Str("detected", "bytes").Msg("sniffed input format")
		return v, nil
	}
	if utf8.Valid(data) {
		if v, err := cbordiag.ParseHex(string(data)); err == nil {
			log.Debug().Str("detected", "hex").Msg("sniffed input format")
			return v, nil
		}
		if v, err := cbordiag.ParseDiag(string(data)); err == nil {
			log.Debug().Str("detected", "diag").Msg("sniffed input format")
			return v, nil
		}
	}
	return nil, fmt.Errorf("failed all parsers")
}

func output(v cbor.Value, opts options, out io.Writer, log zerolog.Logger) error {
	if opts.Query != "" {
		result, err := jmespath.Search(opts.Query, cbordiag.Plain(v))
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		enc, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("query result: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", enc)
		return err
	}

	log.Debug().Str("to", opts.To).Msg("rendering")
	switch opts.To {
	case "diag":
		_, err := io.WriteString(out, cbordiag.ToDiagPretty(v)+"\n")
		return err
	case "compact":
		_, err := io.WriteString(out, cbordiag.ToDiag(v)+"\n")
		return err
	case "annotated":
		_, err := io.WriteString(out, cbordiag.ToHex(v))
		return err
	case "hex":
		_, err := io.WriteString(out, cbordiag.ToPlainHex(v)+"\n")
		return err
	default: // bytes
		_, err := out.Write(cbordiag.ToBytes(v))
		return err
	}
}
