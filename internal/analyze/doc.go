// Package analyze decides whether a document's text looks sensitive or
// unintended for public release. The decision is delegated to a
// language-model collaborator whose contract is deliberately loose:
// unstructured text in, unstructured text out. The fragile
// first-line-affirmative parsing of that output is isolated in
// verdict.go so it can be swapped without touching callers.
package analyze
