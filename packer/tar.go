package packer

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"

	"github.com/drinkcat/simple-serac/manifest"
)

// writeArchive streams every entry in m into an uncompressed tar at
// tmpPath, one entry per call with no directory descent inside the writer,
// per the spec's archive-format requirement.
func writeArchive(tmpPath, inputRoot string, data []manifest.FileEntry) error {
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	for _, fe := range data {
		if err := writeEntry(tw, inputRoot, fe); err != nil {
			tw.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func writeEntry(tw *tar.Writer, inputRoot string, fe manifest.FileEntry) error {
	fullPath := filepath.Join(inputRoot, filepath.FromSlash(fe.Name))

	fi, err := os.Lstat(fullPath)
	if err != nil {
		return err
	}

	if fi.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(fullPath)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name:     fe.Name,
			Typeflag: tar.TypeSymlink,
			Linkname: target,
			Mode:     0o777,
			ModTime:  fi.ModTime(),
		}
		return tw.WriteHeader(hdr)
	}

	hdr := &tar.Header{
		Name:     fe.Name,
		Typeflag: tar.TypeReg,
		Size:     fe.Size,
		Mode:     0o644,
		ModTime:  fi.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	src, err := os.Open(fullPath)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(tw, src)
	return err
}
