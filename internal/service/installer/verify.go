package installer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yzharold/RCAS/internal/domain/distribution"
	"github.com/yzharold/RCAS/internal/logger"
	"github.com/yzharold/RCAS/internal/repository/sourcetree"
)

// ErrInstallationCorrupt is returned by Verify when recorded files are missing or changed.
var ErrInstallationCorrupt = errors.New("installation does not match its record")

// Report is the outcome of Verify.
type Report struct {
	Record   *distribution.Record
	Checked  int
	Missing  []string
	Modified []string
}

// OK reports whether every recorded file is present and unchanged.
func (r *Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Modified) == 0
}

// Verify re-hashes every file recorded for the installation under prefix.
// The report is returned together with ErrInstallationCorrupt on mismatches.
func Verify(ctx context.Context, prefix string) (*Report, error) {
	ctx = logger.WithName(ctx, "rcas-verify")

	if prefix == "" {
		return nil, errPrefixRequired
	}

	layout := NewLayout(prefix)

	record, err := loadRecord(layout)
	if err != nil {
		return nil, err
	}

	report := &Report{Record: record}

	for _, f := range record.Files {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		report.Checked++

		sum, err := sourcetree.FileChecksum(f.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			report.Missing = append(report.Missing, f.Path)

			continue
		case err != nil:
			return nil, fmt.Errorf("checksum %s: %w", f.Path, err)
		}

		if distribution.EncodeChecksum(sum) != f.Checksum {
			report.Modified = append(report.Modified, f.Path)
		}
	}

	if !report.OK() {
		logger.WarnKV(ctx, "Installation differs from its record",
			"missing", len(report.Missing), "modified", len(report.Modified))

		return report, fmt.Errorf("%w: %d missing, %d modified",
			ErrInstallationCorrupt, len(report.Missing), len(report.Modified))
	}

	logger.InfoKV(ctx, "Installation verified", "name", record.Name, "version", record.Version, "files", report.Checked)

	return report, nil
}
