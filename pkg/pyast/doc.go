// Package pyast extracts imports and name references from Python source.
//
// Source is parsed with the tree-sitter Python grammar. [Parse] returns a
// [File] holding everything the usage resolver needs and nothing more:
//
//   - Imports: every import declaration in source order, including imports
//     nested in functions, try/except fallbacks and TYPE_CHECKING blocks.
//   - Statements: the byte span of every import statement and how it sits
//     in its block, so a fixer can delete or rewrite it safely.
//   - Refs: identifier reads outside import statements.
//   - Exports: names listed in a module-level __all__.
//   - StringRefs: names mentioned in string annotations.
//   - Shadows: module-level rebindings of names.
//
// Files that do not parse cleanly yield a [*ParseError]. Byte offsets refer
// to the raw file content for UTF-8 sources; see [File.Encoding].
package pyast
