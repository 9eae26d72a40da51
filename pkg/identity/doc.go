// Package identity maps declared Python distribution names to the top-level
// modules they provide.
//
// A requirement such as "Pillow" is imported as "PIL", "scikit-learn" as
// "sklearn", and "python-dateutil" as "dateutil". [Normalizer.Normalize]
// resolves a declared name in three steps:
//
//  1. the static mapping table (mappings.toml, embedded, optionally extended
//     by a user file),
//  2. a structural heuristic: extras dropped, case and separators folded,
//     a "python-" prefix or "-python" suffix removed,
//  3. the declared name itself.
//
// All three results are kept as candidates, so matching an import root
// against an [Identity] errs on the side of "used".
//
// The package also knows the Python 3 standard library module names
// ([Normalizer.IsStdlib]) so the reconciler never reports "os" as a missing
// dependency.
package identity
