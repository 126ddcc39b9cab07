package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

func TestActionSegment(t *testing.T) {
	tests := []struct {
		id      int64
		want    string
		wantErr bool
	}{
		{12_000_000_000, SegmentImports, false},
		{112_999_999_999, SegmentImports, false},
		{113_000_000_000, "", true},
		{115_999_999_999, "", true},
		{116_000_000_000, SegmentExports, false},
		{116_999_999_999, SegmentExports, false},
		{117_000_000_000, SegmentActions, false},
		{118_000_000_000, SegmentProcesses, false},
		{118_999_999_999, SegmentProcesses, false},
		{119_000_000_000, "", true},
		{11_999_999_999, "", true},
		{-1, "", true},
	}

	for _, tt := range tests {
		got, err := ActionSegment(tt.id)
		if tt.wantErr {
			require.ErrorIs(t, err, api.ErrInvalidIdentifier, "id %d", tt.id)
			continue
		}

		require.NoError(t, err, "id %d", tt.id)
		assert.Equal(t, tt.want, got, "id %d", tt.id)
	}
}

func TestValidateFileID(t *testing.T) {
	require.NoError(t, ValidateFileID(FileIDMin, false))
	require.NoError(t, ValidateFileID(FileIDMax, false))
	require.ErrorIs(t, ValidateFileID(FileIDMin-1, false), api.ErrInvalidIdentifier)
	require.ErrorIs(t, ValidateFileID(FileIDMax+1, false), api.ErrInvalidIdentifier)
	require.ErrorIs(t, ValidateFileID(115_000_000_000, false), api.ErrInvalidIdentifier)
	require.NoError(t, ValidateFileID(115_000_000_000, true))
}

func TestValidateDimension(t *testing.T) {
	tests := []struct {
		id          int64
		want        DimensionKind
		discouraged bool
	}{
		{101_999_999_999, DimensionUsers, true},
		{101_000_000_001, DimensionList, true},
		{109_000_000_123, DimensionListSubset, false},
		{114_000_000_000, DimensionLineItemSubset, false},
	}

	for _, tt := range tests {
		got, err := ValidateDimension(tt.id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.discouraged, got.Discouraged())
	}

	for _, bad := range []int64{100_999_999_999, 102_000_000_000, 110_000_000_000, 115_000_000_000} {
		_, err := ValidateDimension(bad)
		require.ErrorIs(t, err, api.ErrInvalidIdentifier, "id %d", bad)
	}
}
