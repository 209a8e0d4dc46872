package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medical-records-service/internal/storage"
	"medical-records-service/internal/utils"
)

const ctxUploadBatch = "uploadBatch"

// UploadSpec describes which multipart field is staged and where.
type UploadSpec struct {
	Area  storage.Area
	Field string
	// MaxFiles overrides the store limit when positive.
	MaxFiles int
	// Owner names the files; it runs after the form is parsed.
	Owner func(c *gin.Context) string
}

// StageUploads parses the multipart form, validates and stages the files of
// spec.Field, and exposes the batch to handlers through GetUploadBatch.
// Whatever the handler did not commit is removed once it returns.
func StageUploads(store *storage.Store, spec UploadSpec, logger zerolog.Logger) gin.HandlerFunc {
	limits := store.Limits()
	maxFiles := limits.MaxFiles
	if spec.MaxFiles > 0 {
		maxFiles = spec.MaxFiles
	}
	bodyLimit := int64(maxFiles)*limits.MaxFileSize + 1<<20

	return func(c *gin.Context) {
		if limits.MaxFileSize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, bodyLimit)
		}

		form, err := c.MultipartForm()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				utils.Error(c, http.StatusRequestEntityTooLarge, tooLargeMessage(limits))
			} else {
				utils.BadRequest(c, "Se esperaba un formulario multipart válido")
			}
			c.Abort()
			return
		}

		files := form.File[spec.Field]
		if len(files) > maxFiles {
			utils.BadRequest(c, fmt.Sprintf("Máximo %d archivo(s) permitidos en el campo '%s'", maxFiles, spec.Field))
			c.Abort()
			return
		}

		owner := ""
		if spec.Owner != nil {
			owner = spec.Owner(c)
		}
		batch, err := store.Stage(spec.Area, owner, files)
		if err != nil {
			var rejected *storage.RejectedTypeError
			switch {
			case errors.As(err, &rejected):
				utils.ErrorWith(c, http.StatusBadRequest, rejected.Error(), "INVALID_FILE_TYPE",
					map[string]any{"filename": rejected.Filename, "mimeType": rejected.MimeType}, "")
			case errors.Is(err, storage.ErrFileTooLarge):
				utils.Error(c, http.StatusRequestEntityTooLarge, tooLargeMessage(limits))
			case errors.Is(err, storage.ErrTooManyFiles):
				utils.BadRequest(c, fmt.Sprintf("Máximo %d archivo(s) permitidos", limits.MaxFiles))
			default:
				logger.Error().Err(err).Str("field", spec.Field).Msg("staging upload failed")
				utils.InternalServerError(c, "Error al guardar los archivos")
			}
			c.Abort()
			return
		}

		c.Set(ctxUploadBatch, batch)
		defer batch.Release()
		c.Next()
	}
}

// GetUploadBatch returns the batch staged for this request, or nil.
func GetUploadBatch(c *gin.Context) *storage.Batch {
	v, ok := c.Get(ctxUploadBatch)
	if !ok {
		return nil
	}
	batch, _ := v.(*storage.Batch)
	return batch
}

func tooLargeMessage(limits storage.Limits) string {
	return fmt.Sprintf("El archivo excede %dMB", limits.MaxFileSize>>20)
}
