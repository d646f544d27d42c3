// Package prediction turns an image path into a ranked, labelled list of
// classes. It validates the path, runs the model and maps raw class indices
// through the label catalog.
package prediction

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/Brownie44l1/hanzi-api/internal/apperror"
	"github.com/Brownie44l1/hanzi-api/internal/logging"
	"github.com/Brownie44l1/hanzi-api/internal/model"
)

// Classifier runs the model on an already validated image path.
type Classifier interface {
	Infer(imagePath string) (model.Result, error)
}

// Catalog resolves class indices to ids and ids to display labels.
type Catalog interface {
	CanonicalID(classIndex int) string
	DisplayLabel(canonicalID string) string
}

// Prediction is one ranked class.
type Prediction struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"chinese_char"`
}

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// AllowedFile reports whether path ends in an allowed image extension. The
// extension is whatever follows the last '.', compared case-insensitively.
func AllowedFile(path string) bool {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(path[i+1:])]
}

var (
	errEmptyPath   = apperror.New(apperror.InvalidInput, "input error: file path must be a non-empty string")
	errMissingFile = apperror.New(apperror.FileNotFound, "file error: file does not exist")
	errBadFormat   = apperror.New(apperror.UnsupportedFormat, "input error: unsupported file format")
)

// Service is stateless per call and safe for concurrent use as long as its
// Classifier is.
type Service struct {
	classifier Classifier
	catalog    Catalog
	logger     logging.Logger
}

// NewService wires a Service.
func NewService(classifier Classifier, catalog Catalog, logger logging.Logger) *Service {
	return &Service{
		classifier: classifier,
		catalog:    catalog,
		logger:     logger,
	}
}

// Predict returns up to model.TopK predictions for the image, in the model's
// own ranking. An image the model yields no probabilities for gives an empty,
// non-nil slice and no error. Every error is an *apperror.Error.
func (s *Service) Predict(imagePath string) ([]Prediction, error) {
	if err := validate(imagePath); err != nil {
		return nil, err.WithPath(imagePath)
	}

	start := time.Now()
	result, err := s.infer(imagePath)
	if err != nil {
		return nil, apperror.Wrap(apperror.PredictionFailure, "prediction failed", err).WithPath(imagePath)
	}

	predictions := s.rank(result)
	s.logger.Debug("inference complete",
		logging.F(logging.FieldFile, imagePath),
		logging.F(logging.FieldCount, len(predictions)),
		logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
	return predictions, nil
}

func validate(imagePath string) *apperror.Error {
	if strings.TrimSpace(imagePath) == "" {
		return errEmptyPath
	}
	if _, err := os.Stat(imagePath); err != nil {
		return errMissingFile
	}
	if !AllowedFile(imagePath) {
		return errBadFormat
	}
	return nil
}

// infer converts a panic in the model into an error.
func (s *Service) infer(imagePath string) (result model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic during inference: %w", e)
				return
			}
			err = fmt.Errorf("panic during inference: %v", r)
		}
	}()

	result, err = s.classifier.Infer(imagePath)
	if err == nil && result.Probs != nil && len(result.Probs.Top5) != len(result.Probs.Top5Conf) {
		err = errors.New("model returned mismatched top-5 indices and confidences")
	}
	return result, err
}

func (s *Service) rank(result model.Result) []Prediction {
	if result.Probs == nil {
		return []Prediction{}
	}

	predictions := make([]Prediction, 0, len(result.Probs.Top5))
	for i, classIndex := range result.Probs.Top5 {
		if i == model.TopK {
			break
		}
		id := s.catalog.CanonicalID(classIndex)
		predictions = append(predictions, Prediction{
			ID:         id,
			Confidence: roundConfidence(result.Probs.Top5Conf[i]),
			Label:      s.catalog.DisplayLabel(id),
		})
	}
	return predictions
}

const confidenceScale = 1e5

// roundConfidence rounds to 5 decimal places.
func roundConfidence(c float32) float64 {
	return math.Round(float64(c)*confidenceScale) / confidenceScale
}
