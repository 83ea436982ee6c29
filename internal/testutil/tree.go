// Package testutil builds RCAS source trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RCASTree maps slash-separated paths to contents of a minimal tree that
// satisfies every default package data glob.
//
//nolint:gochecknoglobals // Read-only fixture.
var RCASTree = map[string]string{
	"RCAS/__init__.py":                "",
	"RCAS/RCAS.py":                    "import sys\n\ndef main():\n    print(' '.join(sys.argv[1:]))\n    return 0\n",
	"RCAS/data/gmt/c2.cp.kegg.gmt":    "KEGG_GLYCOLYSIS\thttp://example\tHK1\tHK2\n",
	"RCAS/data/meme/jaspar.meme":      "MEME version 4\n",
	"RCAS/data/custom.css":            "body { font-family: sans-serif; }\n",
	"RCAS/data/header.html":           "<div class=\"header\">RCAS</div>\n",
	"RCAS/data/img/logo.png":          "\x89PNG\r\n",
	"RCAS/data/snakefiles/Snakefile":  "rule all:\n    input: 'report.html'\n",
	"RCAS/libexec/annotate.R":         "library(GenomicRanges)\n",
	"RCAS/libexec/anot.py":            "print('annotate')\n",
	"RCAS/libexec/rcas.Rmd":           "---\ntitle: RCAS\n---\n",
	"RCAS/libexec/generate_report.sh": "#!/bin/sh\nRscript -e \"rmarkdown::render('$1')\"\n",
	"RCAS/data/img/.DS_Store":         "junk",
	"docs/index.md":                   "# RCAS\n",
}

// WriteRCASTree writes RCASTree under root and returns root.
func WriteRCASTree(t *testing.T, root string) string {
	t.Helper()

	for rel, contents := range RCASTree {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))

		mode := os.FileMode(0o644)
		if filepath.Ext(rel) == ".sh" {
			mode = 0o755
		}

		require.NoError(t, os.WriteFile(full, []byte(contents), mode))
		require.NoError(t, os.Chmod(full, mode))
	}

	return root
}
