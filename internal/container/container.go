// Package container is the composition root. It builds the label catalog and
// the model handle exactly once and injects them into the prediction service
// and HTTP handler.
package container

import (
	"errors"
	"fmt"
	"time"

	"github.com/Brownie44l1/hanzi-api/internal/config"
	"github.com/Brownie44l1/hanzi-api/internal/handlers"
	"github.com/Brownie44l1/hanzi-api/internal/labels"
	"github.com/Brownie44l1/hanzi-api/internal/logging"
	"github.com/Brownie44l1/hanzi-api/internal/model"
	"github.com/Brownie44l1/hanzi-api/internal/prediction"
)

// Model is what the container needs from a loaded model. *model.Handle
// implements it.
type Model interface {
	prediction.Classifier
	Device() model.Device
	Classes() int
	InputSize() (width, height int)
	LoadDuration() time.Duration
	Close()
}

// ModelLoader opens the model.
type ModelLoader func(path string, device model.Device, opts model.Options) (Model, error)

func loadHandle(path string, device model.Device, opts model.Options) (Model, error) {
	h, err := model.Load(path, device, opts)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Container holds the fully initialised service graph. It is never exposed
// half-built: New either returns every dependency or an error.
type Container struct {
	config    *config.Config
	model     Model
	predictor *prediction.Service
	handler   *handlers.Handler
}

// New loads all startup resources described by cfg.
func New(cfg *config.Config, logger logging.Logger) (*Container, error) {
	return NewWithLoader(cfg, logger, loadHandle)
}

// NewWithLoader is New with a replaceable model loader.
func NewWithLoader(cfg *config.Config, logger logging.Logger, load ModelLoader) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}

	indicesPath := cfg.Resolve(cfg.Labels.ClassIndices)
	labelsPath := cfg.Resolve(cfg.Labels.IDToLabel)
	catalog, err := labels.Load(indicesPath, labelsPath)
	if err != nil {
		return nil, err
	}
	nIdx, nLabels := catalog.Len()
	logger.Info("label catalog loaded",
		logging.F("class_indices", nIdx),
		logging.F("display_labels", nLabels))

	modelPath := cfg.Resolve(cfg.Model.Path)
	logger.Info("loading model", logging.F(logging.FieldFile, modelPath))
	handle, err := load(modelPath, cfg.Device(), model.Options{
		RuntimeLibrary: cfg.Model.RuntimeLibrary,
	})
	if err != nil {
		return nil, err
	}
	width, height := handle.InputSize()
	logger.Info("model loaded",
		logging.F(logging.FieldDevice, handle.Device().String()),
		logging.F(logging.FieldNumClasses, handle.Classes()),
		logging.F("input_size", fmt.Sprintf("%dx%d", width, height)),
		logging.F("load_time_s", handle.LoadDuration().Seconds()))
	if handle.Classes() > 0 && handle.Classes() != nIdx {
		logger.Warn("class count differs from index mapping; missing ids fall back to the class index",
			logging.F(logging.FieldNumClasses, handle.Classes()),
			logging.F("class_indices", nIdx))
	}

	predictor := prediction.NewService(handle, catalog, logger.WithField(logging.FieldComponent, "prediction"))
	handler := handlers.NewHandler(predictor, handlers.Options{
		Device:       handle.Device().String(),
		MaxFormBytes: cfg.Server.MaxFormMB << 20,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, logger.WithField(logging.FieldComponent, "http"))

	return &Container{
		config:    cfg,
		model:     handle,
		predictor: predictor,
		handler:   handler,
	}, nil
}

func (c *Container) Config() *config.Config { return c.config }

func (c *Container) Predictor() *prediction.Service { return c.predictor }

func (c *Container) Handler() *handlers.Handler { return c.handler }

// Close releases the model runtime.
func (c *Container) Close() {
	if c.model != nil {
		c.model.Close()
	}
}
