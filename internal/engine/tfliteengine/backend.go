//go:build tflite

package tfliteengine

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/mattn/go-tflite"
)

type Options struct {
	// SchemaVersion overrides the accepted model version when non-zero.
	SchemaVersion uint32
	Threads       int
	// Report receives messages from the runtime's error reporter.
	Report func(msg string)
}

type Backend struct {
	opts Options
}

func New(opts Options) *Backend {
	if opts.SchemaVersion == 0 {
		opts.SchemaVersion = SchemaVersion
	}
	return &Backend{opts: opts}
}

func (b *Backend) Name() string { return "tflite" }

func (b *Backend) SupportedSchemaVersion() uint32 { return b.opts.SchemaVersion }

type Model struct {
	version uint32
	model   *tflite.Model
}

func (m *Model) SchemaVersion() uint32 { return m.version }

// Close frees the native model. The runtime holds its own copy of the bytes.
func (m *Model) Close() error {
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	return nil
}

func (b *Backend) LoadModel(data []byte) (engine.Model, error) {
	version, err := ModelVersion(data)
	if err != nil {
		return nil, err
	}
	model := tflite.NewModel(data)
	if model == nil {
		return nil, errors.New("tflite: cannot load model")
	}
	return &Model{version: version, model: model}, nil
}

func (b *Backend) NewInterpreter(m engine.Model, ops *engine.OpResolver, arena *engine.Arena) (engine.Interpreter, error) {
	model, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("tfliteengine: unexpected model type %T", m)
	}
	if ops == nil || ops.Len() == 0 {
		return nil, errors.New("tfliteengine: no operators registered")
	}
	options := tflite.NewInterpreterOptions()
	if b.opts.Threads > 0 {
		options.SetNumThread(b.opts.Threads)
	}
	if b.opts.Report != nil {
		report := b.opts.Report
		options.SetErrorReporter(func(msg string, _ interface{}) { report(msg) }, nil)
	}
	interp := tflite.NewInterpreter(model.model, options)
	if interp == nil {
		options.Delete()
		return nil, errors.New("tfliteengine: cannot create interpreter")
	}
	return &Interpreter{model: model, options: options, interp: interp, arena: arena}, nil
}

// Interpreter wraps a native interpreter. The runtime owns tensor memory;
// the arena only enforces the byte budget.
type Interpreter struct {
	model   *Model
	options *tflite.InterpreterOptions
	interp  *tflite.Interpreter
	arena   *engine.Arena
	input   *engine.Tensor
	output  *engine.Tensor
}

func (i *Interpreter) wrap(t *tflite.Tensor) (*engine.Tensor, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: tensor missing", engine.ErrAllocation)
	}
	if t.Type() != tflite.Int8 {
		return nil, fmt.Errorf("%w: %s is %v, want int8", engine.ErrAllocation, t.Name(), t.Type())
	}
	n := int(t.ByteSize())
	if _, err := i.arena.Alloc(n); err != nil {
		return nil, fmt.Errorf("reserving %s: %w", t.Name(), err)
	}
	data := unsafe.Slice((*int8)(t.Data()), n)
	return engine.NewTensor(t.Name(), t.Shape(), data), nil
}

func (i *Interpreter) AllocateTensors() error {
	if status := i.interp.AllocateTensors(); status != tflite.OK {
		return fmt.Errorf("%w: AllocateTensors status %v", engine.ErrAllocation, status)
	}
	input, err := i.wrap(i.interp.GetInputTensor(0))
	if err != nil {
		return err
	}
	output, err := i.wrap(i.interp.GetOutputTensor(0))
	if err != nil {
		return err
	}
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
	if status := i.interp.Invoke(); status != tflite.OK {
		return fmt.Errorf("%w: status %v", engine.ErrInvoke, status)
	}
	return nil
}

func (i *Interpreter) Close() error {
	i.interp.Delete()
	i.options.Delete()
	i.input, i.output = nil, nil
	return i.model.Close()
}
