package release

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ArchiveName returns the artifact filename for a product and version.
func ArchiveName(product, version string) string {
	return fmt.Sprintf("%s-%s.tar.gz", product, version)
}

// Package produces a compressed archive of the working tree in workDir,
// named <product>-<version>.tar.gz inside workDir itself. An existing
// archive of the same name is overwritten. VCS metadata and previous
// archives of the same product are excluded.
func Package(workDir, product, version string) (string, error) {
	name := ArchiveName(product, version)
	outPath := filepath.Join(workDir, name)

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("release: creating archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	prefix := product + "-"
	err = filepath.Walk(workDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(workDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		// Skip VCS metadata and any prior artifact of this product.
		base := filepath.Base(rel)
		if base == ".git" {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && strings.HasPrefix(base, prefix) && strings.HasSuffix(base, ".tar.gz") {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("release: packaging working tree: %w", err)
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("release: finalizing archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("release: finalizing compression: %w", err)
	}
	return outPath, nil
}
