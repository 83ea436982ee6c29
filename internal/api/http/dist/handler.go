// Package dist exposes a distribution directory over HTTP.
package dist

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/yzharold/RCAS/internal/domain/distribution"
)

// Handler serves the descriptor and the archive of one distribution.
type Handler struct {
	dir  string
	desc *distribution.Descriptor
}

// New returns a handler for the distribution in dir described by desc.
func New(dir string, desc *distribution.Descriptor) *Handler {
	return &Handler{dir: dir, desc: desc}
}

// RegisterRoutes mounts /healthz and /dist/:file.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.health)
	r.HEAD("/healthz", h.health)
	r.GET("/dist/:file", h.file)
	r.HEAD("/dist/:file", h.file)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    h.desc.Name,
		"version": h.desc.Version,
	})
}

// file serves only the names the descriptor accounts for.
func (h *Handler) file(c *gin.Context) {
	name := c.Param("file")

	switch name {
	case distribution.DescriptorFilename:
		c.Header("Content-Type", "application/yaml")
	case h.desc.Archive.Name:
		c.Header("Content-Type", "application/gzip")
		c.Header("X-Rcas-Checksum", h.desc.Archive.Checksum)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "file": name})

		return
	}

	c.File(filepath.Join(h.dir, name))
}
