// Package model owns the interpreter lifecycle and turns output scores into
// category labels.
package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
)

// RequiredOps are the operator kinds the classifier model is built from.
var RequiredOps = []engine.OpKind{
	engine.OpAveragePool2D,
	engine.OpConv2D,
	engine.OpMaxPool2D,
	engine.OpReshape,
	engine.OpSoftmax,
	engine.OpFullyConnected,
}

// Driver binds one model to one interpreter. Setup moves it from
// Uninitialized to Ready; Invoke is valid only once Ready.
type Driver struct {
	backend   engine.Backend
	logger    *slog.Logger
	arenaSize int

	state  State
	model  engine.Model
	ops    *engine.OpResolver
	arena  *engine.Arena
	interp engine.Interpreter
	input  *engine.Tensor
	output *engine.Tensor
}

func NewDriver(backend engine.Backend, arenaSize int, logger *slog.Logger) *Driver {
	return &Driver{backend: backend, arenaSize: arenaSize, logger: logger}
}

// NewOpResolver registers exactly RequiredOps.
func NewOpResolver() (*engine.OpResolver, error) {
	ops := engine.NewOpResolver(len(RequiredOps))
	for _, kind := range RequiredOps {
		if err := ops.Add(kind); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

// Setup binds modelData, registers operators, allocates tensors from a fresh
// arena and acquires the input and output tensors. On failure the driver stays
// Uninitialized with no tensors bound.
func (d *Driver) Setup(modelData []byte) error {
	if d.state == Ready {
		return errors.New("driver already set up")
	}

	m, err := d.backend.LoadModel(modelData)
	if err != nil {
		d.logger.Error("Failed to load model", "backend", d.backend.Name(), "error", err)
		return fmt.Errorf("failed to load model: %w", err)
	}
	if got, want := m.SchemaVersion(), d.backend.SupportedSchemaVersion(); got != want {
		d.logger.Error("Model schema version not supported", "version", got, "supported", want)
		closeModel(m)
		return fmt.Errorf("%w: model is version %d, supported version is %d", engine.ErrSchemaVersion, got, want)
	}

	ops, err := NewOpResolver()
	if err != nil {
		d.logger.Error("Failed to register operators", "error", err)
		closeModel(m)
		return fmt.Errorf("failed to register operators: %w", err)
	}

	arena := engine.NewArena(d.arenaSize)
	interp, err := d.backend.NewInterpreter(m, ops, arena)
	if err != nil {
		d.logger.Error("Failed to create interpreter", "error", err)
		closeModel(m)
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := interp.AllocateTensors(); err != nil {
		d.logger.Error("AllocateTensors() failed", "arena_size", d.arenaSize, "error", err)
		interp.Close()
		closeModel(m)
		if !errors.Is(err, engine.ErrAllocation) {
			err = fmt.Errorf("%w: %w", engine.ErrAllocation, err)
		}
		return err
	}

	input, output := interp.Input(0), interp.Output(0)
	if input == nil || output == nil {
		d.logger.Error("Model has no input or output tensor")
		interp.Close()
		closeModel(m)
		return fmt.Errorf("%w: model has no input or output tensor", engine.ErrAllocation)
	}

	d.model, d.ops, d.arena, d.interp = m, ops, arena, interp
	d.input, d.output = input, output
	d.state = Ready
	d.logger.Debug("Interpreter ready",
		"backend", d.backend.Name(),
		"input_shape", input.Shape,
		"output_shape", output.Shape,
		"arena_used", arena.Used())
	return nil
}

func closeModel(m engine.Model) error {
	if closer, ok := m.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Invoke runs one forward pass over the current input tensor.
func (d *Driver) Invoke() error {
	if d.state != Ready {
		return engine.ErrNotReady
	}
	return d.interp.Invoke()
}

func (d *Driver) State() State { return d.state }

// Input is nil until Setup succeeds.
func (d *Driver) Input() *engine.Tensor { return d.input }

// Output is nil until Setup succeeds.
func (d *Driver) Output() *engine.Tensor { return d.output }

func (d *Driver) Metadata() Metadata {
	md := Metadata{Backend: d.backend.Name(), ArenaSize: d.arenaSize}
	if d.state == Ready {
		md.InputShape = d.input.Shape
		md.OutputShape = d.output.Shape
		md.ArenaUsed = d.arena.Used()
	}
	return md
}

// Close releases the interpreter and, if the backend holds process-wide
// resources, the backend too. The driver returns to Uninitialized.
func (d *Driver) Close() error {
	var errs []error
	if d.interp != nil {
		errs = append(errs, d.interp.Close())
	}
	if d.model != nil {
		errs = append(errs, closeModel(d.model))
	}
	if closer, ok := d.backend.(interface{ Close() error }); ok {
		errs = append(errs, closer.Close())
	}
	d.model, d.ops, d.arena, d.interp = nil, nil, nil, nil
	d.input, d.output = nil, nil
	d.state = Uninitialized
	return errors.Join(errs...)
}
