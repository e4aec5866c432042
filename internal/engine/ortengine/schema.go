package ortengine

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// irVersionField is ModelProto.ir_version.
const irVersionField protowire.Number = 1

// IRVersion reads the ONNX IR version from a serialized ModelProto without
// decoding the graph.
func IRVersion(data []byte) (uint32, error) {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return 0, fmt.Errorf("onnx: reading tag: %w", protowire.ParseError(n))
		}
		data = data[n:]
		if num == irVersionField && typ == protowire.VarintType {
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return 0, fmt.Errorf("onnx: reading ir_version: %w", protowire.ParseError(m))
			}
			if v > math.MaxUint32 {
				return 0, fmt.Errorf("onnx: ir_version %d out of range", v)
			}
			return uint32(v), nil
		}
		m := protowire.ConsumeFieldValue(num, typ, data)
		if m < 0 {
			return 0, fmt.Errorf("onnx: skipping field %d: %w", num, protowire.ParseError(m))
		}
		data = data[m:]
	}
	return 0, errors.New("onnx: ir_version not present")
}
