// Package pycyt reads and writes flow cytometry data in the FCS 3.1 binary
// format.
//
// An FCS file carries three regions: a fixed 58-byte header with segment
// offsets, a delimiter-framed TEXT segment of keyword/value metadata, and a
// raw binary DATA segment holding one row per event. This package resolves
// the metadata in a single pass, decodes event data into dense matrices,
// and writes files whose offsets are always consistent with the bytes
// emitted.
//
// The entry points here are thin wrappers around the fcs subpackage, which
// holds the full API:
//
//	f, err := pycyt.Open("sample.fcs")
//	if err != nil {
//		return err
//	}
//	defer f.Close()
//
//	m, err := f.ReadAll()
//
// Writing is symmetric:
//
//	err := pycyt.WriteFile("out.fcs", []string{"FSC-A", "SSC-A"}, m)
//
// Integer files are masked per channel as the standard requires, float
// files decode through a native byte-order fast path, and spillover
// matrices can be applied at read time with fcs.WithAutoCompensation.
package pycyt

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/jlumpe/pycyt-old/fcs"
	"github.com/jlumpe/pycyt-old/internal/logging"
)

// File is an open FCS data set. See fcs.File.
type File = fcs.File

// Matrix is a dense event matrix. See fcs.Matrix.
type Matrix = fcs.Matrix

// Metadata is a resolved metadata record. See fcs.Metadata.
type Metadata = fcs.Metadata

// Spillover is a fluorescence cross-talk matrix. See fcs.Spillover.
type Spillover = fcs.Spillover

// Open opens the named FCS file and resolves its metadata.
func Open(path string) (*File, error) {
	return fcs.Open(path)
}

// OpenReader resolves metadata from an already-open seekable source.
func OpenReader(r io.ReadSeeker) (*File, error) {
	return fcs.NewFile(r)
}

// ReadMetadata resolves a file's metadata without retaining the source.
func ReadMetadata(r io.ReadSeeker) (*Metadata, error) {
	return fcs.ReadMetadata(r)
}

// Write emits a complete FCS file to w.
func Write(w io.Writer, channels []string, m *Matrix, opts ...fcs.WriteOption) error {
	return fcs.Write(w, channels, m, opts...)
}

// WriteFile writes a complete FCS file to the named path.
func WriteFile(path string, channels []string, m *Matrix, opts ...fcs.WriteOption) error {
	return fcs.WriteFile(path, channels, m, opts...)
}

// SetLogger replaces the package-wide logger used for recoverable-issue
// warnings.
func SetLogger(l zerolog.Logger) {
	logging.SetLogger(l)
}
