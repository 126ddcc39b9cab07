package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
)

func TestWorkspaceRows(t *testing.T) {
	rows := workspaceRows([]anaplan.Workspace{
		{ID: "8a81b09d", Name: "Finance", Active: true, CurrentSize: 2_000_000, SizeAllowance: 10_000_000},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"8a81b09d", "Finance", "true", "2.0 MB", "10 MB"}, rows[0])
}

func TestTaskRows(t *testing.T) {
	rows := taskRows([]anaplan.TaskSummary{
		{ID: "t1", TaskState: "COMPLETE", CreationTime: 0},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, []string{"t1", "COMPLETE", "-"}, rows[0])
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "112000000001", formatID(anaplan.ID(112000000001)))
}

func TestSortOptions(t *testing.T) {
	cmd := newModelsCmd()
	assert.Nil(t, sortOptions(cmd))

	require.NoError(t, cmd.Flags().Set("sort", "name"))
	require.NoError(t, cmd.Flags().Set("desc", "true"))
	assert.Len(t, sortOptions(cmd), 1)
}
