// The staticlint binary bundles the project's static analysis into a single
// multichecker: standard toolchain passes, ineffassign, nilerr, a
// configurable staticcheck subset and the project-specific noosexit
// analyzer.
//
// The staticcheck subset is read from config.json next to the binary; when
// the file is absent every SA* analyzer is enabled.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/t5krishn/tinyapp/cmd/staticlint/noosexit"
)

const configName = "config.json"

type configData struct {
	Staticcheck []string
}

// staticcheckAnalyzers returns the staticcheck analyzers enabled by the
// config file, or every SA* analyzer when no config is found.
func staticcheckAnalyzers() []*analysis.Analyzer {
	enabled := map[string]bool{}
	enableAll := false

	appfile, err := os.Executable()
	if err == nil {
		data, readErr := os.ReadFile(filepath.Join(filepath.Dir(appfile), configName))
		if readErr != nil {
			enableAll = true
		} else {
			var cfg configData
			if json.Unmarshal(data, &cfg) != nil {
				enableAll = true
			}
			for _, name := range cfg.Staticcheck {
				enabled[name] = true
			}
		}
	} else {
		enableAll = true
	}

	var result []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		if enabled[v.Analyzer.Name] || enableAll && strings.HasPrefix(v.Analyzer.Name, "SA") {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func main() {
	checks := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}

	checks = append(checks, staticcheckAnalyzers()...)

	multichecker.Main(checks...)
}
