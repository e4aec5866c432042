package tfliteengine

import (
	"errors"

	flatbuffers "github.com/google/flatbuffers/go"
)

// SchemaVersion is the TFLite flatbuffer schema version this backend reads.
const SchemaVersion = 3

// ModelVersion returns the version field of a TFLite model flatbuffer.
// A model that leaves the field unset reports 0.
func ModelVersion(buf []byte) (uint32, error) {
	if len(buf) < flatbuffers.SizeUOffsetT {
		return 0, errors.New("tflite: model too short")
	}
	root := flatbuffers.GetUOffsetT(buf)
	if int(root)+flatbuffers.SizeSOffsetT > len(buf) {
		return 0, errors.New("tflite: root table out of range")
	}
	t := flatbuffers.Table{Bytes: buf, Pos: root}
	vtable := int(root) - int(t.GetSOffsetT(root))
	if vtable < 0 || vtable+2*flatbuffers.SizeVOffsetT > len(buf) {
		return 0, errors.New("tflite: vtable out of range")
	}
	vsize := int(t.GetVOffsetT(flatbuffers.UOffsetT(vtable)))
	if vsize > 4 && vtable+3*flatbuffers.SizeVOffsetT > len(buf) {
		return 0, errors.New("tflite: vtable out of range")
	}
	// Model.version is the first field of the root table.
	o := flatbuffers.UOffsetT(t.Offset(4))
	if o == 0 {
		return 0, nil
	}
	if int(o+t.Pos)+flatbuffers.SizeUint32 > len(buf) {
		return 0, errors.New("tflite: version field out of range")
	}
	return t.GetUint32(o + t.Pos), nil
}
