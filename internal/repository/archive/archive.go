package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

const (
	fileMode       = 0o644
	executableMode = 0o755
)

var (
	errUnsafeEntry      = errors.New("unsafe archive entry")
	errUnsupportedEntry = errors.New("unsupported archive entry type")
	errSizeMismatch     = errors.New("file size changed while archiving")
)

// Entry is a file read from an archive.
type Entry struct {
	Path string
	Mode fs.FileMode
	Size int64
}

// Mode normalizes a source permission to the mode stored in archives.
func Mode(perm fs.FileMode) fs.FileMode {
	if perm&0o111 != 0 {
		return executableMode
	}

	return fileMode
}

// Write archives the files at the given slash-separated paths under root.
func Write(w io.Writer, root string, paths []string) error {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}

	// Zero header fields keep the output independent of build time and host.
	gz.ModTime = time.Time{}
	gz.Name = ""
	gz.OS = 3

	tw := tar.NewWriter(gz)

	for _, p := range sorted {
		if err = writeEntry(tw, root, p); err != nil {
			return err
		}
	}

	if err = tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}

	if err = gz.Close(); err != nil {
		return fmt.Errorf("close gzip: %w", err)
	}

	return nil
}

func writeEntry(tw *tar.Writer, root, p string) error {
	if err := checkPath(p); err != nil {
		return err
	}

	f, err := os.Open(filepath.Join(root, filepath.FromSlash(p)))
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", p, err)
	}

	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", errUnsupportedEntry, p)
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     p,
		Size:     info.Size(),
		Mode:     int64(Mode(info.Mode().Perm())),
		ModTime:  time.Unix(0, 0).UTC(),
		Format:   tar.FormatPAX,
	}

	if err = tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", p, err)
	}

	n, err := io.Copy(tw, f)
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}

	if n != info.Size() {
		return fmt.Errorf("%w: %s", errSizeMismatch, p)
	}

	return nil
}

// Read calls visit for each regular file in the archive. The reader passed to
// visit is only valid during the call.
func Read(r io.Reader, visit func(Entry, io.Reader) error) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("open gzip: %w", err)
	}

	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			return fmt.Errorf("%w: %s (type %q)", errUnsupportedEntry, header.Name, header.Typeflag)
		}

		if err = checkPath(header.Name); err != nil {
			return err
		}

		entry := Entry{
			Path: header.Name,
			Mode: fs.FileMode(header.Mode).Perm(),
			Size: header.Size,
		}

		if err = visit(entry, tr); err != nil {
			return err
		}
	}
}

func checkPath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || path.Clean(p) != p || p == ".." || strings.HasPrefix(p, "../") {
		return fmt.Errorf("%w: %q", errUnsafeEntry, p)
	}

	return nil
}
