package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/Brownie44l1/hanzi-api/internal/apperror"
)

// backend runs one forward pass. Implementations may reuse buffers between
// calls, so Handle serializes access.
type backend interface {
	Run(input []float32) ([]float32, error)
	Destroy()
}

// Options tune Load beyond the weights path and device.
type Options struct {
	// RuntimeLibrary is the path of the ONNX Runtime shared library. Empty
	// uses the platform default lookup.
	RuntimeLibrary string
}

// Handle owns a loaded classification model. It is safe for concurrent use;
// inference calls are run one at a time.
type Handle struct {
	mu      sync.Mutex
	backend backend

	device       Device
	inputWidth   int
	inputHeight  int
	outputShape  []int64
	loadDuration time.Duration
}

// Load opens the weights at path on the requested device. DeviceAuto tries
// CUDA and falls back to CPU; the outcome is fixed for the handle's lifetime.
func Load(path string, device Device, opts Options) (*Handle, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperror.New(apperror.ModelLoad, "model load failed: model file does not exist").WithPath(path)
		}
		return nil, apperror.Wrap(apperror.ModelLoad, "model load failed", err).WithPath(path)
	}
	if info.IsDir() {
		return nil, apperror.New(apperror.ModelLoad, "model load failed: model path is a directory").WithPath(path)
	}

	b, layout, resolved, err := openONNX(path, device, opts)
	if err != nil {
		return nil, apperror.Wrap(apperror.ModelLoad, "model load failed", err).WithPath(path)
	}

	h := newHandle(b, resolved, layout)
	h.loadDuration = time.Since(start)
	return h, nil
}

// tensorLayout is what Handle needs to know about the model's tensors.
type tensorLayout struct {
	inputWidth  int
	inputHeight int
	outputShape []int64
}

func newHandle(b backend, device Device, layout tensorLayout) *Handle {
	return &Handle{
		backend:     b,
		device:      device,
		inputWidth:  layout.inputWidth,
		inputHeight: layout.inputHeight,
		outputShape: layout.outputShape,
	}
}

// Infer classifies the image at imagePath. The path is assumed to be
// validated by the caller.
func (h *Handle) Infer(imagePath string) (Result, error) {
	img, err := decodeImage(imagePath)
	if err != nil {
		return Result{}, err
	}
	input := preprocessImage(img, h.inputWidth, h.inputHeight)

	h.mu.Lock()
	output, err := h.backend.Run(input)
	h.mu.Unlock()
	if err != nil {
		return Result{}, fmt.Errorf("inference failed: %w", err)
	}

	probs, err := probsFromOutput(h.outputShape, output, TopK)
	if err != nil {
		return Result{}, fmt.Errorf("invalid model output: %w", err)
	}
	return Result{Probs: probs}, nil
}

// Device is the device the model was placed on.
func (h *Handle) Device() Device {
	return h.device
}

// LoadDuration is how long Load took.
func (h *Handle) LoadDuration() time.Duration {
	return h.loadDuration
}

// InputSize is the width and height images are scaled to.
func (h *Handle) InputSize() (width, height int) {
	return h.inputWidth, h.inputHeight
}

// Classes is the number of classes in the output distribution, or 0 when the
// model is not a classifier.
func (h *Handle) Classes() int {
	if len(h.outputShape) == 2 && h.outputShape[0] == 1 {
		return int(h.outputShape[1])
	}
	return 0
}

// Close releases the runtime resources.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.backend != nil {
		h.backend.Destroy()
		h.backend = nil
	}
}
