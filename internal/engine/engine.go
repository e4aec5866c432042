// Package engine defines the contract between the classifier and the
// neural-network interpreter that actually runs the model. Backends live in
// sub-packages; the classifier only ever talks to these types.
package engine

// Model is a bound, immutable model image. A Model holding native memory
// also implements io.Closer; Close must be safe to call more than once.
type Model interface {
	// SchemaVersion is the compatibility tag stored in the model artifact.
	SchemaVersion() uint32
}

// Interpreter executes a Model over tensors carved from an Arena.
type Interpreter interface {
	AllocateTensors() error
	Input(index int) *Tensor
	Output(index int) *Tensor
	Invoke() error
	Close() error
}

// Backend creates models and interpreters for one inference runtime.
type Backend interface {
	Name() string
	// SupportedSchemaVersion is the only model schema version the backend accepts.
	SupportedSchemaVersion() uint32
	// LoadModel binds data. Backends may keep a reference to data instead of
	// copying it, so data must outlive the Model.
	LoadModel(data []byte) (Model, error)
	NewInterpreter(m Model, ops *OpResolver, arena *Arena) (Interpreter, error)
}

// Tensor is a fixed-shape buffer of signed 8-bit quantized values.
type Tensor struct {
	Name  string
	Shape []int
	data  []int8
}

// NewTensor wraps data, which must hold exactly the number of elements in shape.
func NewTensor(name string, shape []int, data []int8) *Tensor {
	return &Tensor{Name: name, Shape: append([]int(nil), shape...), data: data}
}

// Int8s returns the backing storage. Writes go straight to the interpreter.
func (t *Tensor) Int8s() []int8 {
	return t.data
}

// ByteLen is the size of the backing storage in bytes.
func (t *Tensor) ByteLen() int {
	return len(t.data)
}

// Elements is the product of the shape dimensions.
func Elements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
