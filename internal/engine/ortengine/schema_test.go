package ortengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestIRVersion(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    uint32
		wantErr bool
	}{
		{
			name: "leading field",
			data: protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 8),
			want: 8,
		},
		{
			name: "after producer name",
			data: func() []byte {
				b := protowire.AppendTag(nil, 2, protowire.BytesType)
				b = protowire.AppendString(b, "pytorch")
				b = protowire.AppendTag(b, 1, protowire.VarintType)
				return protowire.AppendVarint(b, 9)
			}(),
			want: 9,
		},
		{
			name:    "wider than 32 bits",
			data:    protowire.AppendVarint(protowire.AppendTag(nil, 1, protowire.VarintType), 1<<32+8),
			wantErr: true,
		},
		{
			name:    "missing",
			data:    protowire.AppendString(protowire.AppendTag(nil, 2, protowire.BytesType), "x"),
			wantErr: true,
		},
		{
			name:    "truncated",
			data:    protowire.AppendTag(nil, 1, protowire.VarintType),
			wantErr: true,
		},
		{
			name:    "garbage",
			data:    []byte{0xff, 0xff, 0xff},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IRVersion(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStaticShape(t *testing.T) {
	assert.Equal(t, []int{1, 96, 96, 3}, staticShape([]int64{-1, 96, 96, 3}))
	assert.Equal(t, []int{1, 3}, staticShape([]int64{1, 3}))
}
