package scan

import (
	"context"
	"errors"

	"github.com/matzehuels/depclean/pkg/fingerprint"
	"github.com/matzehuels/depclean/pkg/pyast"
	"github.com/matzehuels/depclean/pkg/usage"
)

// FileAnalysis is the cached outcome of analyzing one source file. It is
// replaced wholesale on rescan and never mutated.
type FileAnalysis struct {
	Path        string                  `json:"path" yaml:"path"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint" yaml:"fingerprint"`
	Encoding    string                  `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Imports     []pyast.Import          `json:"imports,omitempty" yaml:"imports,omitempty"`
	Statements  []pyast.Statement       `json:"statements,omitempty" yaml:"statements,omitempty"`
	Sites       []usage.Site            `json:"sites,omitempty" yaml:"sites,omitempty"`
	Used        []string                `json:"used,omitempty" yaml:"used,omitempty"`
	Unused      []usage.UnusedImport    `json:"unused,omitempty" yaml:"unused,omitempty"`

	// Error is set for unparseable files. Such files contribute no usage.
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty" yaml:"error_line,omitempty"`
}

// Parsed reports whether the file was analyzed successfully.
func (a *FileAnalysis) Parsed() bool { return a.Error == "" }

// Editable reports whether statement offsets address the raw file bytes.
func (a *FileAnalysis) Editable() bool {
	return a.Parsed() && (a.Encoding == pyast.EncodingUTF8 || a.Encoding == pyast.EncodingUTF8BOM)
}

// Analyze parses src and resolves usage. Parse failures are recorded in the
// returned analysis; only cancellation is returned as an error.
func Analyze(ctx context.Context, rel string, src []byte, fp fingerprint.Fingerprint, policy usage.Policy) (*FileAnalysis, error) {
	a := &FileAnalysis{Path: rel, Fingerprint: fp}

	f, err := pyast.ParseContext(ctx, rel, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var perr *pyast.ParseError
		if errors.As(err, &perr) {
			a.Error, a.ErrorLine = perr.Reason, perr.Line
		} else {
			a.Error = err.Error()
		}
		return a, nil
	}

	res := policy.Resolve(f)
	a.Encoding = f.Encoding
	a.Imports = f.Imports
	a.Statements = f.Statements
	a.Sites = res.Sites
	a.Used = res.Used
	a.Unused = res.Unused
	return a, nil
}
