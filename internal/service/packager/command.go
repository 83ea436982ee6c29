package packager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/domain/manifest"
	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/repository/archive"
	"github.com/yzharold/RCAS/internal/repository/sourcetree"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ManifestPath is an optional TOML manifest; the built-in RCAS manifest is used when empty.
	ManifestPath string
	// SourceDir is the root of the checked-out source tree.
	SourceDir string
	// OutputDir receives the archive and the descriptor.
	OutputDir string
}

// Result describes the produced distribution.
type Result struct {
	Descriptor     *distribution.Descriptor
	DescriptorPath string
	ArchivePath    string
}

// packager holds the state of one build. Callers use Run.
type packager struct {
	// manifest is the validated package description.
	manifest *manifest.Manifest
	// sourceDir is the absolute source root.
	sourceDir string
	// outputDir is the absolute distribution directory.
	outputDir string
}

const outputDirMode = 0o755

var (
	errOutputInsideSource = errors.New("output directory must not be a package directory")
	errPayloadChanged     = errors.New("source file changed during build")
	errPayloadIncomplete  = errors.New("archive is missing files")
)

// Run builds the distribution described by opts.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "rcas-packager")

	m, err := LoadManifest(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	pkg, err := newPackager(m, opts)
	if err != nil {
		return nil, fmt.Errorf("initialize packager: %w", err)
	}

	result, err := pkg.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("packager failed: %w", err)
	}

	logger.InfoKV(ctx, "Packager completed successfully", "id", result.Descriptor.ID)

	return result, nil
}

// LoadManifest returns the manifest at path, or the built-in one, validated.
func LoadManifest(path string) (*manifest.Manifest, error) {
	m := manifest.Default()

	if path != "" {
		var err error

		if m, err = manifest.Load(path); err != nil {
			return nil, err
		}
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return m, nil
}

func newPackager(m *manifest.Manifest, opts *Options) (*packager, error) {
	sourceDir, err := filepath.Abs(defaultString(opts.SourceDir, "."))
	if err != nil {
		return nil, fmt.Errorf("resolve source dir: %w", err)
	}

	outputDir, err := filepath.Abs(defaultString(opts.OutputDir, "dist"))
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}

	// Writing into a package directory would feed the next build its own output.
	for _, pkg := range m.Packages {
		pkgDir := filepath.Join(sourceDir, filepath.FromSlash(manifest.PackageDir(pkg)))
		if outputDir == pkgDir || strings.HasPrefix(outputDir, pkgDir+string(filepath.Separator)) {
			return nil, fmt.Errorf("%w: %s", errOutputInsideSource, outputDir)
		}
	}

	return &packager{
		manifest:  m,
		sourceDir: sourceDir,
		outputDir: outputDir,
	}, nil
}

// Run collects, archives and describes the payload.
func (p *packager) Run(ctx context.Context) (*Result, error) {
	logger.InfoKV(ctx, "Collecting package files", "source", p.sourceDir)

	collected, err := sourcetree.Collect(ctx, p.sourceDir, p.manifest)
	if err != nil {
		return nil, fmt.Errorf("collect files: %w", err)
	}

	files, err := p.checksumFiles(collected)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(p.outputDir, outputDirMode); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	desc, err := distribution.NewDescriptor(p.manifest, files)
	if err != nil {
		return nil, err
	}

	archiveName := distribution.ArchiveName(p.manifest.Name, p.manifest.Version)
	archivePath := filepath.Join(p.outputDir, archiveName)

	logger.InfoKV(ctx, "Writing archive", "path", archivePath, "files", len(files))

	archiveInfo, err := p.writeArchive(archivePath, desc)
	if err != nil {
		return nil, fmt.Errorf("write archive: %w", err)
	}

	desc.Seal(archiveInfo)

	descriptorPath := filepath.Join(p.outputDir, distribution.DescriptorFilename)

	logger.InfoKV(ctx, "Saving distribution descriptor", "path", descriptorPath)

	if err = p.saveDescriptor(descriptorPath, desc); err != nil {
		return nil, fmt.Errorf("save descriptor: %w", err)
	}

	p.printNextSteps(ctx, desc)

	return &Result{
		Descriptor:     desc,
		DescriptorPath: descriptorPath,
		ArchivePath:    archivePath,
	}, nil
}

// checksumFiles hashes every collected file.
func (p *packager) checksumFiles(collected []sourcetree.File) ([]distribution.File, error) {
	files := make([]distribution.File, 0, len(collected))

	for _, f := range collected {
		sum, err := sourcetree.FileChecksum(filepath.Join(p.sourceDir, filepath.FromSlash(f.Path)))
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", f.Path, err)
		}

		files = append(files, distribution.File{
			Path:     f.Path,
			Kind:     f.Kind,
			Size:     f.Size,
			Mode:     archive.Mode(f.Mode),
			Checksum: distribution.EncodeChecksum(sum),
		})
	}

	return files, nil
}

// writeArchive writes the payload next to its final path, verifies it against
// the descriptor and renames it into place.
func (p *packager) writeArchive(path string, desc *distribution.Descriptor) (distribution.Archive, error) {
	paths := make([]string, 0, len(desc.Files))
	for _, f := range desc.Files {
		paths = append(paths, f.Path)
	}

	var buf bytes.Buffer
	if err := archive.Write(&buf, p.sourceDir, paths); err != nil {
		return distribution.Archive{}, err
	}

	if err := verifyArchive(buf.Bytes(), desc); err != nil {
		return distribution.Archive{}, err
	}

	sum, err := sourcetree.Checksum(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return distribution.Archive{}, err
	}

	if err = writeFileAtomic(path, buf.Bytes()); err != nil {
		return distribution.Archive{}, err
	}

	return distribution.Archive{
		Name:     filepath.Base(path),
		Checksum: distribution.EncodeChecksum(sum),
		Size:     int64(buf.Len()),
	}, nil
}

// verifyArchive re-reads the archive and compares every entry with the descriptor.
func verifyArchive(data []byte, desc *distribution.Descriptor) error {
	seen := 0

	err := archive.Read(bytes.NewReader(data), func(e archive.Entry, r io.Reader) error {
		f, ok := desc.Lookup(e.Path)
		if !ok {
			return fmt.Errorf("%w: unexpected %s", errPayloadChanged, e.Path)
		}

		sum, err := sourcetree.Checksum(r)
		if err != nil {
			return err
		}

		if distribution.EncodeChecksum(sum) != f.Checksum {
			return fmt.Errorf("%w: %s", errPayloadChanged, e.Path)
		}

		seen++

		return nil
	})
	if err != nil {
		return err
	}

	if seen != len(desc.Files) {
		return fmt.Errorf("%w: %d of %d", errPayloadIncomplete, seen, len(desc.Files))
	}

	return nil
}

// saveDescriptor writes the descriptor atomically.
func (p *packager) saveDescriptor(path string, desc *distribution.Descriptor) error {
	var buf bytes.Buffer
	if err := distribution.Encode(&buf, desc); err != nil {
		return err
	}

	return writeFileAtomic(path, buf.Bytes())
}

// printNextSteps logs how the produced files are used.
func (p *packager) printNextSteps(ctx context.Context, desc *distribution.Descriptor) {
	var builder strings.Builder

	builder.WriteString("Distribution ")
	builder.WriteString(desc.Name)
	builder.WriteString(" ")
	builder.WriteString(desc.Version)
	builder.WriteString(" is ready in ")
	builder.WriteString(p.outputDir)
	builder.WriteString(":\n")
	builder.WriteString(distribution.DescriptorFilename)
	builder.WriteString(",\n")
	builder.WriteString(desc.Archive.Name)
	builder.WriteString("\n\nInstall it with: rcas-setup install ")
	builder.WriteString(p.outputDir)

	for _, ep := range desc.EntryPoints {
		builder.WriteString("\nThe installation provides the command ")
		builder.WriteString(ep.Alias)
		builder.WriteString(" (")
		builder.WriteString(ep.Module)
		builder.WriteString(":")
		builder.WriteString(ep.Callable)
		builder.WriteString(")")
	}

	logger.Info(ctx, builder.String())
}

// writeFileAtomic writes data to a temporary sibling and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return err
	}

	if err = tmp.Chmod(distribution.DefaultFileMode); err != nil {
		_ = tmp.Close()

		return err
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}
