// Package render assembles a directory's knowledge file body from its
// LLM-produced summary and its constituent file/subdirectory listings.
// Nothing here calls an LLM or touches a filesystem; it is pure string
// assembly, grounded entirely in the content handed to it.
package render
