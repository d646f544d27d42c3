package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/Brownie44l1/hanzi-api/internal/apperror"
	"github.com/Brownie44l1/hanzi-api/internal/logging"
	"github.com/Brownie44l1/hanzi-api/internal/prediction"
)

// FilePathField is the form field carrying the image path.
const FilePathField = "file_path"

const missingFilePath = "please provide a file path (file_path)"

// Predictor is the prediction pipeline the handler serves.
type Predictor interface {
	Predict(imagePath string) ([]prediction.Prediction, error)
}

// Options configures a Handler.
type Options struct {
	// Device is reported by the health endpoint.
	Device       string
	MaxFormBytes int64
	CORSOrigins  []string
}

type Handler struct {
	predictor Predictor
	opts      Options
	logger    logging.Logger
}

func NewHandler(predictor Predictor, opts Options, logger logging.Logger) *Handler {
	if opts.MaxFormBytes <= 0 {
		opts.MaxFormBytes = 32 << 20
	}
	return &Handler{
		predictor: predictor,
		opts:      opts,
		logger:    logger,
	}
}

// PredictResponse is the success body of POST /predict.
type PredictResponse struct {
	Success       bool                    `json:"success"`
	ImagePath     string                  `json:"image_path"`
	Predictions   []prediction.Prediction `json:"predictions"`
	InferenceTime float64                 `json:"inference_time"`
}

// ErrorResponse is the failure body. ImagePath is omitted when the request
// never named one.
type ErrorResponse struct {
	Success   bool    `json:"success"`
	Error     string  `json:"error"`
	ImagePath *string `json:"image_path,omitempty"`
}

// NewPredictResponse builds a success body; elapsed is reported in seconds
// rounded to milliseconds.
func NewPredictResponse(imagePath string, predictions []prediction.Prediction, elapsed time.Duration) PredictResponse {
	if predictions == nil {
		predictions = []prediction.Prediction{}
	}
	return PredictResponse{
		Success:       true,
		ImagePath:     imagePath,
		Predictions:   predictions,
		InferenceTime: math.Round(elapsed.Seconds()*1000) / 1000,
	}
}

// NewErrorResponse builds a failure body for a named image.
func NewErrorResponse(imagePath string, err error) ErrorResponse {
	return ErrorResponse{Success: false, Error: err.Error(), ImagePath: &imagePath}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"device": h.opts.Device,
	})
}

func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxFormBytes)
	if err := r.ParseMultipartForm(h.opts.MaxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.WithError(err).Warn("failed to parse form")
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "failed to parse form"})
		return
	}

	values, ok := r.PostForm[FilePathField]
	if !ok || len(values) == 0 {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: missingFilePath})
		return
	}
	filePath := values[0]
	log := h.logger.WithFields(
		logging.F(logging.FieldRequestID, requestID(r)),
		logging.F(logging.FieldFile, filePath),
	)

	start := time.Now()
	predictions, err := h.predictor.Predict(filePath)
	if err != nil {
		log.WithError(err).Warn("prediction failed",
			logging.F(logging.FieldKind, apperror.KindOf(err).String()))
		respondJSON(w, http.StatusInternalServerError, NewErrorResponse(filePath, err))
		return
	}

	resp := NewPredictResponse(filePath, predictions, time.Since(start))
	log.Info("prediction served",
		logging.F(logging.FieldCount, len(resp.Predictions)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	respondJSON(w, http.StatusOK, resp)
}

// respondJSON writes labels as-is rather than \u-escaped.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}
