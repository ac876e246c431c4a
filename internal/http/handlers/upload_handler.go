// Upload HTTP handlers.
//
// This file exposes the watch photo upload endpoint:
//   - POST /uploads  (multipart "image")
//
// The stored image is normalized server-side; the response URL is the only
// reference a client may place on a watch record.
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/watchdex/go-watch-backend/internal/storage"
)

// ImageSaver persists an uploaded image and returns its public URL.
// Satisfied by *storage.ImageStore.
type ImageSaver interface {
	Save(r io.Reader) (string, error)
}

// UploadResponse carries the public URL of a stored image.
type UploadResponse struct {
	URL string `json:"url" example:"/uploads/4f1c9f33-9f5e-4e62-a2bb-4bb5c1f4a21e.jpg"`
}

// UploadImage godoc
// @ID          uploadImage
// @Summary     Upload a watch photo
// @Description Accepts a multipart image, resizes and re-encodes it as JPEG, and returns its public URL.
// @Tags        Uploads
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       image          formData  file  true  "Image file"
//
// @Success     201  {object} handlers.UploadResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or undecodable image"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /uploads [post]
func (h *Handlers) UploadImage(c *gin.Context) {
	if _, okAuth := requireUser(c); !okAuth {
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `multipart field "image" required`)
		return
	}
	defer file.Close()

	url, err := h.images.Save(file)
	if err != nil {
		if errors.Is(err, storage.ErrImageDecode) {
			fail(c, http.StatusBadRequest, ErrCodeImageInvalid, "could not decode image")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, UploadResponse{URL: url})
}
