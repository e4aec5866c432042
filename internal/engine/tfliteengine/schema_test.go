package tfliteengine

import (
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildModel(version uint32) []byte {
	b := flatbuffers.NewBuilder(64)
	b.StartObject(1)
	b.PrependUint32Slot(0, version, 0)
	b.Finish(b.EndObject())
	return b.FinishedBytes()
}

func TestModelVersion(t *testing.T) {
	got, err := ModelVersion(buildModel(SchemaVersion))
	require.NoError(t, err)
	assert.Equal(t, uint32(SchemaVersion), got)

	got, err = ModelVersion(buildModel(7))
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got)
}

func TestModelVersionRejectsShortInput(t *testing.T) {
	_, err := ModelVersion([]byte{1, 2})
	require.Error(t, err)

	_, err = ModelVersion([]byte{0xff, 0, 0, 0})
	require.Error(t, err)
}
