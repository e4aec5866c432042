package engine

import "fmt"

// OpKind identifies a kind of computation a backend must provide a kernel for.
type OpKind int

const (
	OpAveragePool2D OpKind = iota + 1
	OpConv2D
	OpMaxPool2D
	OpReshape
	OpSoftmax
	OpFullyConnected
)

var opNames = map[OpKind]string{
	OpAveragePool2D:  "AVERAGE_POOL_2D",
	OpConv2D:         "CONV_2D",
	OpMaxPool2D:      "MAX_POOL_2D",
	OpReshape:        "RESHAPE",
	OpSoftmax:        "SOFTMAX",
	OpFullyConnected: "FULLY_CONNECTED",
}

func (k OpKind) String() string {
	if name, ok := opNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OpKind(%d)", int(k))
}

// OpResolver is a fixed-capacity set of registered operator kinds.
type OpResolver struct {
	capacity int
	kinds    []OpKind
}

func NewOpResolver(capacity int) *OpResolver {
	return &OpResolver{capacity: capacity, kinds: make([]OpKind, 0, capacity)}
}

// Add registers kind. It fails when the resolver is full or kind is already present.
func (r *OpResolver) Add(kind OpKind) error {
	if r.Has(kind) {
		return fmt.Errorf("op %s already registered", kind)
	}
	if len(r.kinds) >= r.capacity {
		return fmt.Errorf("registering %s: %w (capacity %d)", kind, ErrResolverFull, r.capacity)
	}
	r.kinds = append(r.kinds, kind)
	return nil
}

func (r *OpResolver) Has(kind OpKind) bool {
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (r *OpResolver) Len() int {
	return len(r.kinds)
}

// Kinds returns the registered kinds in registration order.
func (r *OpResolver) Kinds() []OpKind {
	return append([]OpKind(nil), r.kinds...)
}
