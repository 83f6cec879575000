// Package setup resolves the run parameters for an import: where the source
// file lives and which dataset version and date it carries.
//
// Values given on the command line take precedence over environment
// variables. The dataset version and date are normally parsed out of the
// source file name; explicit values are the fallback for non-conforming
// names.
package setup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Environment variable fallbacks for the command-line options.
const (
	EnvDataFolder  = "data_folder_path"
	EnvSourceFile  = "src_file_name"
	EnvDataVersion = "data_version"
	EnvDataDate    = "data_date"
)

// Options holds the raw command-line values. Empty fields fall back to the
// environment.
type Options struct {
	DataFolder  string
	SourceFile  string
	DataVersion string
	DataDate    string

	// TestRun stamps the fixed sentinel version/date so test imports are
	// easy to find and delete.
	TestRun bool
}

// Params is the resolved parameter set for one run.
type Params struct {
	DataFolder  string
	SourceFile  string
	SourcePath  string
	DataVersion string
	DataDate    string
}

var (
	compliantNameRe = regexp.MustCompile(`^v[0-9]+(\.[0-9]+){0,2}(-| )20[0-9]{2}-?[01][0-9]-?[0-3][0-9]`)
	versionRe       = regexp.MustCompile(`^v[0-9]+(\.[0-9]+){0,2}`)
	dateRe          = regexp.MustCompile(`20[0-9]{2}-?[01][0-9]-?[0-3][0-9]`)
)

// Resolve merges command-line options with environment fallbacks and derives
// the dataset version and date.
func Resolve(opts Options) (Params, error) {
	folder := opts.DataFolder
	if folder == "" {
		folder = os.Getenv(EnvDataFolder)
	}
	if folder == "" {
		return Params{}, fmt.Errorf("data folder not provided on command line or in environment")
	}
	if info, err := os.Stat(folder); err != nil || !info.IsDir() {
		return Params{}, fmt.Errorf("data folder %q does not exist or is not accessible", folder)
	}

	source := opts.SourceFile
	if source == "" {
		source = os.Getenv(EnvSourceFile)
	}
	if source == "" {
		return Params{}, fmt.Errorf("source file name not provided on command line or in environment")
	}

	var version, date string
	if opts.TestRun {
		version, date = "v99", "2030-01-01"
	} else if IsCompliantFileName(source) {
		version = DataVersionFrom(source)
		date = DataDateFrom(source)
	}

	if version == "" || date == "" {
		if version == "" {
			version = opts.DataVersion
			if version == "" {
				version = os.Getenv(EnvDataVersion)
			}
			if version == "" {
				return Params{}, fmt.Errorf("data version not provided and not derivable from file name %q", source)
			}
		}
		if date == "" {
			date = validDate(opts.DataDate)
			if date == "" {
				date = validDate(os.Getenv(EnvDataDate))
			}
			if date == "" {
				return Params{}, fmt.Errorf("data date not provided and not derivable from file name %q", source)
			}
		}
	}

	return Params{
		DataFolder:  folder,
		SourceFile:  source,
		SourcePath:  filepath.Join(folder, source),
		DataVersion: version,
		DataDate:    date,
	}, nil
}

// IsCompliantFileName reports whether a source file name starts with a
// version and date, e.g. "v1.50 2024-12-11.json" or "v1.50-20241211.json".
func IsCompliantFileName(name string) bool {
	return compliantNameRe.MatchString(name)
}

// DataVersionFrom extracts the leading version ("v1.50") from a file name,
// or "" when absent.
func DataVersionFrom(name string) string {
	return versionRe.FindString(name)
}

// DataDateFrom extracts the first date from a file name, normalized to
// YYYY-MM-DD. Hyphens in the source may appear in any of the accepted
// positions. Returns "" when no valid calendar date is present.
func DataDateFrom(name string) string {
	m := dateRe.FindString(name)
	if m == "" {
		return ""
	}
	t, err := time.Parse("20060102", strings.ReplaceAll(m, "-", ""))
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// LogFilePath derives the per-run log file path inside the data folder, named
// after the run time and the source file.
func LogFilePath(folder, sourceFile string, now time.Time) string {
	ts := now.Format("01-02 150405")
	name := "ror " + ts + " initialisation.log"
	if sourceFile != "" {
		base := strings.TrimSuffix(sourceFile, filepath.Ext(sourceFile))
		name = "ror " + ts + " from " + base + ".log"
	}
	return filepath.Join(folder, name)
}

func validDate(s string) string {
	if s == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}
	return s
}
