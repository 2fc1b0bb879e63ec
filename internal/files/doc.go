// Package files finds input files on disk and writes converted output.
//
// Discovery expands command line arguments: a directory becomes the
// supported files directly inside it, sorted by name, and any other path is
// passed through unchanged so the reader can reject it with its own error.
//
// Manager writes artifacts into an output directory. Writes go to a
// temporary file in the same directory and are renamed into place, and a
// write that would replace one of the inputs is refused.
package files
