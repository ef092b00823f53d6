package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/recognition"
	"github.com/nghyane/inkledger/internal/resilience"
)

// Recognizer transcribes a batch of page images.
type Recognizer interface {
	Recognize(ctx context.Context, images []recognition.Image) ([]recognition.Record, error)
}

// RecognizeResponse is the payload of POST /v1/recognize.
type RecognizeResponse struct {
	Count   int                  `json:"count"`
	Records []recognition.Record `json:"records"`
}

// RecognizeHandler serves uploads of page images as multipart "files" parts.
type RecognizeHandler struct {
	recognizer Recognizer
}

func NewRecognizeHandler(r Recognizer) *RecognizeHandler {
	return &RecognizeHandler{recognizer: r}
}

func (h *RecognizeHandler) Recognize(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		RespondBadRequest(c, "expected a multipart form with one or more \"files\" parts")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		RespondBadRequest(c, "no files uploaded")
		return
	}

	images := make([]recognition.Image, 0, len(headers))
	for _, fh := range headers {
		img, err := readUpload(fh)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		images = append(images, img)
	}

	records, err := h.recognizer.Recognize(c.Request.Context(), images)
	if err != nil {
		switch {
		case errors.Is(err, recognition.ErrMissingAPIKey):
			RespondError(c, http.StatusServiceUnavailable, ErrCodeNotConfigured, err.Error())
		case resilience.IsCircuitOpen(err):
			RespondError(c, http.StatusServiceUnavailable, ErrCodeUpstreamFailure, "recognition temporarily disabled after repeated failures")
		case errors.Is(err, context.DeadlineExceeded):
			RespondError(c, http.StatusGatewayTimeout, ErrCodeUpstreamFailure, err.Error())
		default:
			RespondError(c, http.StatusBadGateway, ErrCodeUpstreamFailure, err.Error())
		}
		return
	}
	RespondOK(c, RecognizeResponse{Count: len(records), Records: records})
}

func readUpload(fh *multipart.FileHeader) (recognition.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return recognition.Image{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return recognition.Image{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if len(data) == 0 {
		return recognition.Image{}, fmt.Errorf("%s is empty", fh.Filename)
	}
	return recognition.NewImage(fh.Filename, data, fh.Header.Get("Content-Type")), nil
}
