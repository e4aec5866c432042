// Package ortengine runs models through ONNX Runtime. The shared library is
// loaded at runtime; tensor storage is carved from the caller's arena and
// handed to the session without copying.
package ortengine

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
	ort "github.com/yalue/onnxruntime_go"
)

// DefaultSchemaVersion is the ONNX IR version accepted when Options leaves it unset.
const DefaultSchemaVersion = 8

type Options struct {
	// LibraryPath points at libonnxruntime; empty uses the platform default.
	LibraryPath   string
	SchemaVersion uint32
	Threads       int
}

type Backend struct {
	opts        Options
	initialized bool
}

func New(opts Options) *Backend {
	if opts.SchemaVersion == 0 {
		opts.SchemaVersion = DefaultSchemaVersion
	}
	return &Backend{opts: opts}
}

func (b *Backend) Name() string { return "onnxruntime" }

func (b *Backend) SupportedSchemaVersion() uint32 { return b.opts.SchemaVersion }

func (b *Backend) ensureEnvironment() error {
	if b.initialized {
		return nil
	}
	if b.opts.LibraryPath != "" {
		ort.SetSharedLibraryPath(b.opts.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}
	b.initialized = true
	return nil
}

type Model struct {
	data    []byte
	version uint32
	input   ort.InputOutputInfo
	output  ort.InputOutputInfo
}

func (m *Model) SchemaVersion() uint32 { return m.version }

func (b *Backend) LoadModel(data []byte) (engine.Model, error) {
	version, err := IRVersion(data)
	if err != nil {
		return nil, err
	}
	if err := b.ensureEnvironment(); err != nil {
		return nil, err
	}
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read model inputs and outputs: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model needs at least one input and one output")
	}
	return &Model{data: data, version: version, input: inputs[0], output: outputs[0]}, nil
}

func (b *Backend) NewInterpreter(m engine.Model, ops *engine.OpResolver, arena *engine.Arena) (engine.Interpreter, error) {
	model, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("ortengine: unexpected model type %T", m)
	}
	// Kernels are built into the runtime; an empty resolver still means the
	// caller skipped registration.
	if ops == nil || ops.Len() == 0 {
		return nil, errors.New("ortengine: no operators registered")
	}
	return &Interpreter{model: model, arena: arena, threads: b.opts.Threads}, nil
}

// Close tears down the ONNX Runtime environment.
func (b *Backend) Close() error {
	if !b.initialized {
		return nil
	}
	b.initialized = false
	return ort.DestroyEnvironment()
}

type Interpreter struct {
	model   *Model
	arena   *engine.Arena
	threads int

	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[int8]
	outputTensor *ort.Tensor[int8]
	input        *engine.Tensor
	output       *engine.Tensor
}

func staticShape(dims []int64) []int {
	shape := make([]int, len(dims))
	for i, d := range dims {
		if d < 1 {
			d = 1
		}
		shape[i] = int(d)
	}
	return shape
}

func (i *Interpreter) newTensor(info ort.InputOutputInfo) (*ort.Tensor[int8], *engine.Tensor, error) {
	if info.DataType != ort.TensorElementDataTypeInt8 {
		return nil, nil, fmt.Errorf("%w: %s is %s, want int8", engine.ErrAllocation, info.Name, info.DataType)
	}
	shape := staticShape(info.Dimensions)
	data, err := i.arena.AllocInt8(engine.Elements(shape))
	if err != nil {
		return nil, nil, fmt.Errorf("allocating %s: %w", info.Name, err)
	}
	dims := make([]int64, len(shape))
	for j, d := range shape {
		dims[j] = int64(d)
	}
	t, err := ort.NewTensor(ort.NewShape(dims...), data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", engine.ErrAllocation, info.Name, err)
	}
	return t, engine.NewTensor(info.Name, shape, data), nil
}

func (i *Interpreter) AllocateTensors() error {
	inputTensor, input, err := i.newTensor(i.model.input)
	if err != nil {
		return err
	}
	outputTensor, output, err := i.newTensor(i.model.output)
	if err != nil {
		inputTensor.Destroy()
		return err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()
	if i.threads > 0 {
		if err := options.SetIntraOpNumThreads(i.threads); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := ort.NewAdvancedSessionWithONNXData(i.model.data,
		[]string{i.model.input.Name}, []string{i.model.output.Name},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		options)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("%w: failed to create ONNX session: %w", engine.ErrAllocation, err)
	}

	i.session = session
	i.inputTensor, i.outputTensor = inputTensor, outputTensor
	i.input, i.output = input, output
	return nil
}

func (i *Interpreter) Input(index int) *engine.Tensor {
	if index != 0 {
		return nil
	}
	return i.input
}

func (i *Interpreter) Output(index int) *engine.Tensor {
	if index != 0 {
		return nil
	}
	return i.output
}

func (i *Interpreter) Invoke() error {
	if i.session == nil {
		return fmt.Errorf("%w: session not created", engine.ErrInvoke)
	}
	if err := i.session.Run(); err != nil {
		return fmt.Errorf("%w: %w", engine.ErrInvoke, err)
	}
	return nil
}

func (i *Interpreter) Close() error {
	var errs []error
	if i.session != nil {
		errs = append(errs, i.session.Destroy())
		i.session = nil
	}
	if i.inputTensor != nil {
		errs = append(errs, i.inputTensor.Destroy())
		i.inputTensor = nil
	}
	if i.outputTensor != nil {
		errs = append(errs, i.outputTensor.Destroy())
		i.outputTensor = nil
	}
	return errors.Join(errs...)
}
