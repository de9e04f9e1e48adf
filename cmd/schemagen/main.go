// cmd/schemagen generates JSON UI schemas from CUE contract definitions.
//
// It reads every .cue file in the input directory, derives one contract per
// top-level definition, and writes <name>.json files the frontend consumes
// at build time. This is the code-generation pass for deployments that keep
// their contracts in CUE rather than Go.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/matthewbaird/adminkit/internal/cueschema"
)

func main() {
	in := flag.String("in", "contracts", "directory of CUE contract definitions")
	out := flag.String("out", "gen/ui/schema", "output directory for JSON schemas")
	flag.Parse()

	contracts, err := cueschema.Load(*in)
	if err != nil {
		log.Fatalf("schemagen: %v", err)
	}
	if len(contracts) == 0 {
		log.Fatalf("schemagen: no contract definitions found in %s", *in)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("schemagen: creating %s: %v", *out, err)
	}

	for _, contract := range contracts {
		data, err := json.MarshalIndent(contract, "", "  ")
		if err != nil {
			log.Fatalf("schemagen: encoding %s: %v", contract.Name, err)
		}
		path := filepath.Join(*out, contract.Name+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			log.Fatalf("schemagen: writing %s: %v", path, err)
		}
		log.Printf("schemagen: wrote %s (%d fields)", path, contract.Fields.Len())
	}
}
