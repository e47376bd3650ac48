// Package match ranks known names against an unrecognized one for the
// "did you mean" hints attached to unknown type names, wire elements and
// wire format names.
//
// Names are compared after NormalizeIdent folds away the differences that
// do not matter to a reader: case, separators, the "local_" rename prefix
// and the "[x]" choice suffix.
package match
