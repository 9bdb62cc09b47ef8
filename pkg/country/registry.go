// Package country describes the countries whose postal code dumps can be
// loaded, and where each dump comes from.
package country

import (
	"slices"
	"strings"

	"github.com/hazyhaar/postal-codes/pkg/geo"
)

// Params locates one country's data.
type Params struct {
	// SourceURL is the zip archive to download.
	SourceURL string `json:"source_url" yaml:"source_url"`
	// ArchiveEntry is the entry inside the archive holding the TSV rows.
	ArchiveEntry string `json:"archive_entry" yaml:"archive_entry"`
	// LocalFile is the file name under the data directory.
	LocalFile string `json:"local_file" yaml:"local_file"`
}

// Defaults are the GeoNames dumps for the supported countries.
var Defaults = map[string]Params{
	"CA": {
		SourceURL:    "https://download.geonames.org/export/zip/CA_full.csv.zip",
		ArchiveEntry: "CA_full.txt",
		LocalFile:    "CA_full.txt",
	},
	"US": {
		SourceURL:    "https://download.geonames.org/export/zip/US.zip",
		ArchiveEntry: "US.txt",
		LocalFile:    "US.txt",
	},
}

// Registry is a read-only table of country parameters keyed by normalized code.
type Registry struct {
	params map[string]Params
}

// NewRegistry copies params into a new registry. Keys are normalized.
func NewRegistry(params map[string]Params) *Registry {
	r := &Registry{params: make(map[string]Params, len(params))}
	for code, p := range params {
		r.params[geo.NormalizeCode(code)] = p
	}
	return r
}

// DefaultRegistry returns a registry of Defaults.
func DefaultRegistry() *Registry {
	return NewRegistry(Defaults)
}

// Get looks up a country case-insensitively.
func (r *Registry) Get(code string) (Params, bool) {
	p, ok := r.params[geo.NormalizeCode(code)]
	return p, ok
}

// Codes returns the registered country codes, sorted.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.params))
	for c := range r.params {
		codes = append(codes, c)
	}
	slices.Sort(codes)
	return codes
}

// Len returns the number of registered countries.
func (r *Registry) Len() int {
	return len(r.params)
}

// Restrict returns a registry holding only the allowed codes. An empty allow
// list keeps everything.
func (r *Registry) Restrict(allowed []string) *Registry {
	if len(allowed) == 0 {
		return r
	}
	out := &Registry{params: make(map[string]Params)}
	for _, code := range allowed {
		code = geo.NormalizeCode(code)
		if p, ok := r.params[code]; ok {
			out.params[code] = p
		}
	}
	return out
}

// String lists the registered codes, e.g. "CA,US".
func (r *Registry) String() string {
	return strings.Join(r.Codes(), ",")
}
