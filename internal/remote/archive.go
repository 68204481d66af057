package remote

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// WriteArchive streams the tree rooted at dir as a gzip tar. Git metadata is
// left out.
func WriteArchive(w io.Writer, dir string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.Name() == ".git" {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		var link string
		if info.Mode()&os.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", dir, err)
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

type streamRunner func(ctx context.Context, name, script string, stdin io.Reader) (Result, error)

// upload pipes the archive of localDir into the unpack script through run.
func upload(ctx context.Context, run streamRunner, localDir, remoteDir string) error {
	pr, pw := io.Pipe()
	archived := make(chan error, 1)
	go func() {
		err := WriteArchive(pw, localDir)
		pw.CloseWithError(err)
		archived <- err
	}()

	_, runErr := run(ctx, "upload", UploadScript(remoteDir), pr)
	// Unblock the producer if the command stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	archiveErr := <-archived

	if archiveErr != nil && !errors.Is(archiveErr, io.ErrClosedPipe) {
		return archiveErr
	}
	return runErr
}
