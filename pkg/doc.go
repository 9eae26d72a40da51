// Package pkg provides the libraries behind depclean, a dependency cleaner
// for Python projects.
//
// # Overview
//
// depclean reads every Python source file in a project, works out which
// imports are never used, and reconciles the imported modules with the
// distributions the project declares. The result is a report with a health
// score and, optionally, a fix that removes the dead imports.
//
// # Architecture
//
// The data flow through depclean:
//
//	project root
//	     ↓
//	[scan] discover *.py files, analyze them on a worker pool
//	     ↓              ↑ [pyast] imports, [usage] name resolution,
//	     ↓              ↑ [cache] content-addressed persistence
//	[deps/python] parse requirements, pyproject, setup.*, Pipfile, locks
//	     ↓
//	[reconcile] map distributions to import names via [identity]
//	     ↓
//	[report] counts, health score, impact, text/JSON/YAML/DOT/SVG export
//	     ↓
//	[fix] plan edits, diff, back up, apply, roll back
//
// [pipeline] wires these stages into the operations the CLI exposes.
//
// # Quick Start
//
//	runner, err := pipeline.New(pipeline.Options{Root: "."}, cache.NewNullCache(), nil)
//	if err != nil {
//	    return err
//	}
//	rep, err := runner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(rep.Health.Score, rep.Health.Grade)
//
// # Main Packages
//
// ## Analysis
//
// [pyast] - tree-sitter based extraction of import statements and name
// references, with PEP 263 source decoding.
//
// [usage] - Resolves which imported bindings are referenced, honoring
// __all__, conditional imports and package re-exports.
//
// [scan] - Concurrent project scanner with a per-file analysis store keyed by
// content fingerprint.
//
// ## Dependencies
//
// [deps] - The manifest parser contract and the uniform [deps.PackageEntry].
//
// [deps/python] - Parsers for every Python manifest and lock format.
//
// [identity] - Canonical distribution names and the distribution to import
// name mapping table.
//
// [reconcile] - Unused, missing and duplicate package detection.
//
// ## Output and Fixes
//
// [report] - The Report type, health scoring and exporters.
//
// [fix] - Plans and applies edits with backups and rollback.
//
// ## Infrastructure
//
// [cache] - File, Redis and no-op backends for persisted analyses.
//
// [config] - Layered configuration (defaults, .depclean.yaml, environment,
// flags).
//
// [observability] - Scan, cache and fix hooks with a Prometheus textfile
// implementation.
//
// [errors] - Coded errors that map onto CLI exit codes.
//
// [fingerprint] - xxh3 content hashes.
//
// [buildinfo] - Version information set at link time.
package pkg
