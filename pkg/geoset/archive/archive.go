// Package archive enumerates tar members and unwraps gzip streams.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
)

// Walk opens a tar archive and calls fn for every regular-file member
// with the member's name and a reader over its bytes. The reader is
// only valid inside the callback. A callback error aborts the walk.
func Walk(path string, fn func(name string, r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := fn(hdr.Name, tr); err != nil {
			return err
		}
	}
}

// Gunzip decompresses a single gzip stream into dst.
func Gunzip(dst string, r io.Reader) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gz.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, gz); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
