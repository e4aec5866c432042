package model

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Brownie44l1/produce-classifier/internal/engine"
	"github.com/Brownie44l1/produce-classifier/internal/engine/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modelData = []byte("model")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newBackend() *enginetest.Backend {
	return enginetest.New(3, []int{1, 4, 4, 3}, []int{1, 3})
}

func TestDriverSetup(t *testing.T) {
	backend := newBackend()
	d := NewDriver(backend, 20000, discardLogger())
	require.Equal(t, Uninitialized, d.State())

	require.NoError(t, d.Setup(modelData))
	assert.Equal(t, Ready, d.State())
	require.NotNil(t, d.Input())
	require.NotNil(t, d.Output())
	assert.Equal(t, 48, d.Input().ByteLen())
	assert.Equal(t, 3, d.Output().ByteLen())

	require.Len(t, backend.Resolvers, 1)
	assert.Equal(t, RequiredOps, backend.Resolvers[0].Kinds())

	md := d.Metadata()
	assert.Equal(t, "enginetest", md.Backend)
	assert.Equal(t, []int{1, 3}, md.OutputShape)
	assert.Equal(t, 51, md.ArenaUsed)

	require.Error(t, d.Setup(modelData), "second setup")
}

func TestDriverSetupSchemaMismatch(t *testing.T) {
	backend := newBackend()
	backend.Model.Version = 2
	d := NewDriver(backend, 20000, discardLogger())

	err := d.Setup(modelData)
	require.ErrorIs(t, err, engine.ErrSchemaVersion)
	assert.Equal(t, Uninitialized, d.State())
	assert.Nil(t, d.Input())
	assert.Nil(t, d.Output())
	assert.Empty(t, backend.Resolvers, "no interpreter built")
	assert.Equal(t, 1, backend.ModelsClosed)

	require.ErrorIs(t, d.Invoke(), engine.ErrNotReady)
}

func TestDriverSetupArenaTooSmall(t *testing.T) {
	backend := newBackend()
	d := NewDriver(backend, 40, discardLogger())

	err := d.Setup(modelData)
	require.ErrorIs(t, err, engine.ErrAllocation)
	assert.Equal(t, Uninitialized, d.State())
	assert.Nil(t, d.Input())
	assert.Equal(t, 1, backend.ModelsClosed)
}

// tensorlessBackend builds interpreters that never expose tensors.
type tensorlessBackend struct {
	*enginetest.Backend
}

func (b tensorlessBackend) NewInterpreter(m engine.Model, ops *engine.OpResolver, arena *engine.Arena) (engine.Interpreter, error) {
	interp, err := b.Backend.NewInterpreter(m, ops, arena)
	if err != nil {
		return nil, err
	}
	return tensorlessInterpreter{interp}, nil
}

type tensorlessInterpreter struct {
	engine.Interpreter
}

func (tensorlessInterpreter) Input(int) *engine.Tensor { return nil }

func TestDriverSetupMissingTensors(t *testing.T) {
	backend := newBackend()
	var logs bytes.Buffer
	d := NewDriver(tensorlessBackend{backend}, 20000, slog.New(slog.NewTextHandler(&logs, nil)))

	err := d.Setup(modelData)
	require.ErrorIs(t, err, engine.ErrAllocation)
	assert.Equal(t, Uninitialized, d.State())
	assert.Nil(t, d.Output())
	assert.Contains(t, logs.String(), "Model has no input or output tensor")
	assert.Equal(t, 1, backend.ModelsClosed)
}

func TestDriverSetupLoadFailure(t *testing.T) {
	d := NewDriver(newBackend(), 20000, discardLogger())
	require.Error(t, d.Setup(nil))
	assert.Equal(t, Uninitialized, d.State())
}

func TestDriverInvoke(t *testing.T) {
	backend := newBackend()
	d := NewDriver(backend, 20000, discardLogger())
	require.NoError(t, d.Setup(modelData))

	in := d.Input().Int8s()
	for i := range in {
		in[i] = int8(i % 3 * 10)
	}
	require.NoError(t, d.Invoke())
	assert.Equal(t, []int8{0, 10, 20}, d.Output().Int8s())

	backend.InvokeErr = errors.New("kernel failed")
	require.ErrorIs(t, d.Invoke(), engine.ErrInvoke)
	assert.Equal(t, 2, backend.Invocations)
}

func TestDriverInvokeDeterministic(t *testing.T) {
	d := NewDriver(newBackend(), 20000, discardLogger())
	require.NoError(t, d.Setup(modelData))

	pattern := make([]int8, d.Input().ByteLen())
	for i := range pattern {
		pattern[i] = int8(i*37 - 90)
	}

	var runs [][]int8
	for range 3 {
		copy(d.Input().Int8s(), pattern)
		require.NoError(t, d.Invoke())
		runs = append(runs, append([]int8(nil), d.Output().Int8s()...))
	}
	assert.Equal(t, runs[0], runs[1])
	assert.Equal(t, runs[0], runs[2])
}

func TestDriverClose(t *testing.T) {
	backend := newBackend()
	d := NewDriver(backend, 20000, discardLogger())
	require.NoError(t, d.Setup(modelData))
	assert.Zero(t, backend.ModelsClosed)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, backend.ModelsClosed)
	assert.Equal(t, Uninitialized, d.State())
	assert.Nil(t, d.Output())
	require.ErrorIs(t, d.Invoke(), engine.ErrNotReady)
}
