// Package enginetest provides an in-process engine.Backend whose kernel is a
// deterministic function of its input. It stands in for a native runtime in tests.
package enginetest

import (
	"errors"
	"fmt"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
)

// Model describes the fixed topology the fake interpreter exposes.
type Model struct {
	Version     uint32
	InputShape  []int
	OutputShape []int

	backend *Backend
	closed  bool
}

func (m *Model) SchemaVersion() uint32 { return m.Version }

func (m *Model) Close() error {
	if !m.closed && m.backend != nil {
		m.closed = true
		m.backend.ModelsClosed++
	}
	return nil
}

// Backend hands out Model for every LoadModel call.
type Backend struct {
	Supported uint32
	Model     Model
	// InvokeErr, when set, makes every Invoke fail.
	InvokeErr error

	Invocations  int
	ModelsClosed int
	Resolvers    []*engine.OpResolver
}

// New returns a backend for a model with the given input and output shapes,
// versioned to match the backend.
func New(version uint32, inputShape, outputShape []int) *Backend {
	return &Backend{
		Supported: version,
		Model:     Model{Version: version, InputShape: inputShape, OutputShape: outputShape},
	}
}

func (b *Backend) Name() string { return "enginetest" }

func (b *Backend) SupportedSchemaVersion() uint32 { return b.Supported }

func (b *Backend) LoadModel(data []byte) (engine.Model, error) {
	if len(data) == 0 {
		return nil, errors.New("empty model")
	}
	m := b.Model
	m.backend = b
	return &m, nil
}

func (b *Backend) NewInterpreter(m engine.Model, ops *engine.OpResolver, arena *engine.Arena) (engine.Interpreter, error) {
	model, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("enginetest: unexpected model type %T", m)
	}
	b.Resolvers = append(b.Resolvers, ops)
	return &interpreter{backend: b, model: model, arena: arena}, nil
}

type interpreter struct {
	backend *Backend
	model   *Model
	arena   *engine.Arena
	input   *engine.Tensor
	output  *engine.Tensor
}

func (i *interpreter) AllocateTensors() error {
	in, err := i.arena.AllocInt8(engine.Elements(i.model.InputShape))
	if err != nil {
		return err
	}
	out, err := i.arena.AllocInt8(engine.Elements(i.model.OutputShape))
	if err != nil {
		return err
	}
	i.input = engine.NewTensor("input", i.model.InputShape, in)
	i.output = engine.NewTensor("output", i.model.OutputShape, out)
	return nil
}

func (i *interpreter) Input(index int) *engine.Tensor {
	if index != 0 {
		return nil
	}
	return i.input
}

func (i *interpreter) Output(index int) *engine.Tensor {
	if index != 0 {
		return nil
	}
	return i.output
}

// Invoke scores class c with the mean of every input element whose index is
// congruent to c modulo the class count.
func (i *interpreter) Invoke() error {
	i.backend.Invocations++
	if i.backend.InvokeErr != nil {
		return fmt.Errorf("%w: %w", engine.ErrInvoke, i.backend.InvokeErr)
	}
	if i.input == nil {
		return fmt.Errorf("%w: tensors not allocated", engine.ErrInvoke)
	}
	scores := i.output.Int8s()
	classes := len(scores)
	if classes == 0 {
		return nil
	}
	sums := make([]int, classes)
	counts := make([]int, classes)
	for j, v := range i.input.Int8s() {
		sums[j%classes] += int(v)
		counts[j%classes]++
	}
	for c := range scores {
		if counts[c] == 0 {
			scores[c] = 0
			continue
		}
		scores[c] = int8(sums[c] / counts[c])
	}
	return nil
}

func (i *interpreter) Close() error {
	i.input, i.output = nil, nil
	return nil
}
