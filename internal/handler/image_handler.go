package handler

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/archivebase/scanrepo/internal/models"
	"github.com/archivebase/scanrepo/internal/service"
	appErrors "github.com/archivebase/scanrepo/pkg/errors"
	"github.com/archivebase/scanrepo/pkg/response"
	"github.com/archivebase/scanrepo/pkg/storage"
)

// ImageHandler exposes scan image endpoints. Originals are restricted:
// downloading one takes either a token or a signed URL, while derivatives
// stay public.
type ImageHandler struct {
	images *service.ImageService
	signer *storage.DownloadSigner
}

// NewImageHandler constructs ImageHandler.
func NewImageHandler(images *service.ImageService, signer *storage.DownloadSigner) *ImageHandler {
	return &ImageHandler{images: images, signer: signer}
}

// authorizedForOriginal accepts a logged-in user or a valid download token
// matching the requested image.
func (h *ImageHandler) authorizedForOriginal(c *gin.Context, number, imageID int) bool {
	if claimsFromContext(c) != nil {
		return true
	}
	token := c.Query("token")
	if token == "" {
		return false
	}
	scanNumber, tokenImageID, err := h.signer.Validate(token)
	return err == nil && scanNumber == number && tokenImageID == imageID
}

func imageIDParam(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("imageID"))
	if err != nil || id <= 0 {
		return 0, appErrors.NewValidation([]string{"imageID must be a positive integer"})
	}
	return id, nil
}

// Upload godoc
// @Summary Attach an image to a scan
// @Tags Images
// @Accept multipart/form-data
// @Produce json
// @Param number path int true "Scan number"
// @Param file formData file true "Image file"
// @Success 201 {object} response.Envelope
// @Router /scans/{number}/images [post]
func (h *ImageHandler) Upload(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.NewValidation([]string{"file is required"}))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "cannot read uploaded file"))
		return
	}
	defer src.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	image, err := h.images.Add(c.Request.Context(), currentUser(c), number, fileHeader.Filename, mimeType, src, fileHeader.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, image)
}

// List godoc
// @Summary List images of a scan
// @Tags Images
// @Produce json
// @Param number path int true "Scan number"
// @Success 200 {object} response.Envelope
// @Router /scans/{number}/images [get]
func (h *ImageHandler) List(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	images, err := h.images.List(c.Request.Context(), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, images, nil)
}

// File godoc
// @Summary Download the original file of an image
// @Tags Images
// @Produce octet-stream
// @Param number path int true "Scan number"
// @Param imageID path int true "Image ID"
// @Success 200 {file} binary
// @Router /scans/{number}/images/{imageID}/file [get]
func (h *ImageHandler) File(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := imageIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !h.authorizedForOriginal(c, number, id) {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	f, meta, err := h.images.Open(c.Request.Context(), number, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	streamImage(c, f, meta)
}

// SignedURL godoc
// @Summary Issue a signed download token for an image original
// @Tags Images
// @Produce json
// @Param number path int true "Scan number"
// @Param imageID path int true "Image ID"
// @Success 200 {object} response.Envelope
// @Router /scans/{number}/images/{imageID}/url [get]
func (h *ImageHandler) SignedURL(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := imageIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	token, expiresAt, err := h.signer.Generate(number, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        fmt.Sprintf("/scans/%d/images/%d/file?token=%s", number, id, token),
		"token":      token,
		"expires_at": expiresAt,
	}, nil)
}

// DefaultFile godoc
// @Summary Download the default image of a scan
// @Tags Images
// @Produce octet-stream
// @Param number path int true "Scan number"
// @Success 200 {file} binary
// @Router /scans/{number}/image [get]
func (h *ImageHandler) DefaultFile(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	f, meta, err := h.images.OpenDefault(c.Request.Context(), number)
	if err != nil {
		response.Error(c, err)
		return
	}
	streamImage(c, f, meta)
}

// Derivative godoc
// @Summary Download a resized rendition of an image
// @Tags Images
// @Produce octet-stream
// @Param number path int true "Scan number"
// @Param imageID path int true "Image ID"
// @Param size query string true "Size spec, e.g. 200x150 or x600"
// @Success 200 {file} binary
// @Router /scans/{number}/images/{imageID}/derivative [get]
func (h *ImageHandler) Derivative(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := imageIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, contentType, err := h.images.Derivative(c.Request.Context(), number, id, c.Query("size"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// SetDefault godoc
// @Summary Mark an image as the scan's default
// @Tags Images
// @Param number path int true "Scan number"
// @Param imageID path int true "Image ID"
// @Success 204
// @Router /scans/{number}/images/{imageID}/default [put]
func (h *ImageHandler) SetDefault(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := imageIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.images.SetDefault(c.Request.Context(), currentUser(c), number, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete an image
// @Tags Images
// @Param number path int true "Scan number"
// @Param imageID path int true "Image ID"
// @Success 204
// @Router /scans/{number}/images/{imageID} [delete]
func (h *ImageHandler) Delete(c *gin.Context) {
	number, err := scanNumberParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := imageIDParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.images.Delete(c.Request.Context(), currentUser(c), number, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func streamImage(c *gin.Context, f *os.File, meta *models.ScanImage) {
	defer f.Close()
	c.Header("Content-Disposition", "inline; filename="+meta.Filename)
	c.DataFromReader(http.StatusOK, meta.SizeBytes, meta.MimeType, f, nil)
}
