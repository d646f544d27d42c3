package model

import (
	"errors"
	"fmt"
	"strconv"

	ort "github.com/yalue/onnxruntime_go"
)

var errShapeMismatch = errors.New("tensor size does not match shape")

type onnxBackend struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func (b *onnxBackend) Run(input []float32) ([]float32, error) {
	dst := b.inputTensor.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("%w: got %d values, want %d", errShapeMismatch, len(input), len(dst))
	}
	copy(dst, input)

	if err := b.session.Run(); err != nil {
		return nil, err
	}

	out := b.outputTensor.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

func (b *onnxBackend) Destroy() {
	if b.inputTensor != nil {
		b.inputTensor.Destroy()
	}
	if b.outputTensor != nil {
		b.outputTensor.Destroy()
	}
	if b.session != nil {
		b.session.Destroy()
	}
	ort.DestroyEnvironment()
}

func initEnvironment(opts Options) error {
	if ort.IsInitialized() {
		return nil
	}
	if opts.RuntimeLibrary != "" {
		ort.SetSharedLibraryPath(opts.RuntimeLibrary)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// openONNX creates a session for the model at path and returns the device it
// actually landed on.
func openONNX(path string, device Device, opts Options) (*onnxBackend, tensorLayout, Device, error) {
	if err := initEnvironment(opts); err != nil {
		return nil, tensorLayout{}, Device{}, err
	}

	fail := func(err error) (*onnxBackend, tensorLayout, Device, error) {
		ort.DestroyEnvironment()
		return nil, tensorLayout{}, Device{}, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return fail(fmt.Errorf("failed to read model signature: %w", err))
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fail(fmt.Errorf("model has %d inputs and %d outputs", len(inputs), len(outputs)))
	}
	in, out := inputs[0], outputs[0]
	if in.DataType != ort.TensorElementDataTypeFloat || out.DataType != ort.TensorElementDataTypeFloat {
		return fail(fmt.Errorf("model tensors must be float32"))
	}

	inputShape, err := staticShape(in.Dimensions)
	if err != nil {
		return fail(fmt.Errorf("input %q: %w", in.Name, err))
	}
	outputShape, err := staticShape(out.Dimensions)
	if err != nil {
		return fail(fmt.Errorf("output %q: %w", out.Name, err))
	}
	layout, err := layoutFor(inputShape, outputShape)
	if err != nil {
		return fail(err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(inputShape...))
	if err != nil {
		return fail(fmt.Errorf("failed to create input tensor: %w", err))
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		inputTensor.Destroy()
		return fail(fmt.Errorf("failed to create output tensor: %w", err))
	}

	newSession := func(d Device) (*ort.AdvancedSession, error) {
		return newAdvancedSession(path, in.Name, out.Name, inputTensor, outputTensor, d)
	}

	resolved := device
	var session *ort.AdvancedSession
	switch device.Kind {
	case DeviceAuto:
		resolved = Device{Kind: DeviceCUDA}
		session, err = newSession(resolved)
		if err != nil {
			resolved = CPU
			session, err = newSession(resolved)
		}
	default:
		session, err = newSession(device)
	}
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fail(fmt.Errorf("failed to create ONNX session on %s: %w", resolved, err))
	}

	return &onnxBackend{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, layout, resolved, nil
}

func newAdvancedSession(path, inputName, outputName string, input, output *ort.Tensor[float32], device Device) (*ort.AdvancedSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if device.Kind == DeviceCUDA {
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer cuda.Destroy()

		if err := cuda.Update(map[string]string{"device_id": strconv.Itoa(device.ID)}); err != nil {
			return nil, fmt.Errorf("failed to set CUDA device: %w", err)
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return nil, fmt.Errorf("CUDA execution provider unavailable: %w", err)
		}
	}

	return ort.NewAdvancedSession(path,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output},
		options)
}

// staticShape pins a dynamic leading batch dimension to 1. Any other dynamic
// dimension cannot be preallocated.
func staticShape(dims ort.Shape) ([]int64, error) {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			shape[i] = d
		case i == 0:
			shape[i] = 1
		default:
			return nil, fmt.Errorf("dimension %d is dynamic in shape %v", i, dims)
		}
	}
	return shape, nil
}

// layoutFor checks the input is a single NCHW RGB image.
func layoutFor(inputShape, outputShape []int64) (tensorLayout, error) {
	if len(inputShape) != 4 || inputShape[0] != 1 || inputShape[1] != 3 {
		return tensorLayout{}, fmt.Errorf("input shape %v is not [1 3 H W]", inputShape)
	}
	return tensorLayout{
		inputHeight: int(inputShape[2]),
		inputWidth:  int(inputShape[3]),
		outputShape: outputShape,
	}, nil
}
