// Package deps defines the uniform shape of dependency declarations read from
// project manifests.
//
// # Overview
//
// Every supported manifest format has a [ManifestParser] that turns the file
// into a [ManifestResult]: a flat list of [PackageEntry] values with the
// exact line span each declaration occupies. The line span is what lets the
// fixer remove an unused requirement without touching anything else.
//
// Parsers for Python live in [python]. Use [ParseAll] to run a set of
// parsers over discovered files:
//
//	results, failures := deps.ParseAll(paths, deps.Options{Root: root}, python.Parsers()...)
//
// A manifest that fails to parse is returned as a [ParseError]; callers
// record it as a warning and carry on with the rest.
//
// # Lock files
//
// Parsers whose IncludesTransitive reports true (poetry.lock, Pipfile.lock)
// produce entries with Locked set. They describe what is installed rather
// than what the project declares, so they are never reported as unused and
// never removed.
//
// [python]: github.com/matzehuels/depclean/pkg/deps/python
package deps
