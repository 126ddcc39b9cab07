package anaplan

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// taskRoutes serves an action that completes after pending polls.
func taskRoutes(f *fakeAnaplan, segment string, actionID int64, pending int32, successful bool) *atomic.Int32 {
	tasks := fmt.Sprintf("%s/%s/%d/tasks", modelPath, segment, actionID)
	polls := &atomic.Int32{}

	f.json("POST "+tasks, map[string]any{"task": map[string]any{"taskId": "T1"}})
	f.handle("GET "+tasks+"/T1", func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) <= pending {
			fmt.Fprint(w, `{"task":{"taskId":"T1","taskState":"IN_PROGRESS","progress":0.5}}`)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"task": map[string]any{
			"taskId":    "T1",
			"taskState": "COMPLETE",
			"result": map[string]any{
				"successful": successful,
				"details": []any{
					map[string]any{"type": "hierarchyRowsProcessedWithWarnings", "localMessageText": "3 rows rejected", "occurrences": 3},
				},
			},
		}})
	})

	return polls
}

func TestRunAction_PollsUntilComplete(t *testing.T) {
	f := newFake(t)
	polls := taskRoutes(f, "imports", 112000000001, 2, true)
	c := f.client()

	status, err := c.RunAction(context.Background(), 112000000001)
	require.NoError(t, err)

	assert.Equal(t, "COMPLETE", status.State())
	assert.Equal(t, int32(3), polls.Load())

	invoke := f.requests("POST " + modelPath + "/imports/112000000001/tasks")
	require.Len(t, invoke, 1)
	assert.JSONEq(t, `{"localeName":"en_US"}`, string(invoke[0].body))
}

func TestRunAction_UnsuccessfulTask(t *testing.T) {
	f := newFake(t)
	taskRoutes(f, "processes", 118000000001, 0, false)
	c := f.client()

	status, err := c.RunAction(context.Background(), 118000000001)
	require.ErrorIs(t, err, ErrActionFailed)
	require.NotNil(t, status, "the failed task is still returned")

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, int64(118000000001), actionErr.ActionID)
	assert.Equal(t, "T1", actionErr.TaskID)
	require.Len(t, actionErr.Details, 1)
	assert.Equal(t, "3 rows rejected", actionErr.Details[0]["localMessageText"])
}

func TestRunAction_RoutesByIdentifier(t *testing.T) {
	for _, tc := range []struct {
		id      int64
		segment string
	}{
		{112000000007, "imports"},
		{116000000007, "exports"},
		{117000000007, "actions"},
		{118000000007, "processes"},
	} {
		t.Run(tc.segment, func(t *testing.T) {
			f := newFake(t)
			taskRoutes(f, tc.segment, tc.id, 0, true)

			_, err := f.client().RunAction(context.Background(), tc.id)
			require.NoError(t, err)
		})
	}
}

func TestRunAction_InvalidIdentifier(t *testing.T) {
	f := newFake(t)
	c := f.client()

	_, err := c.RunAction(context.Background(), 113000000000)
	require.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Zero(t, f.callCount())
}

func TestListExports_NotPaginated(t *testing.T) {
	f := newFake(t)
	f.json("GET "+modelPath+"/exports", map[string]any{"exports": []any{
		map[string]any{"id": "116000000001", "name": "Grid.csv", "exportType": "GRID_CURRENT_PAGE", "exportFormat": "text/csv"},
	}})

	exports, err := f.client().ListExports(context.Background())
	require.NoError(t, err)
	require.Len(t, exports, 1)
	assert.Equal(t, ID(116000000001), exports[0].ID)
	assert.Equal(t, "text/csv", exports[0].Format)

	calls := f.requests("GET " + modelPath + "/exports")
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].query, "limit")
}

func TestListTaskStatus(t *testing.T) {
	f := newFake(t)
	f.json("GET "+modelPath+"/exports/116000000001/tasks", paged("tasks", []any{
		map[string]any{"taskId": "A", "taskState": "COMPLETE", "creationTime": 1},
		map[string]any{"taskId": "B", "taskState": "IN_PROGRESS", "creationTime": 2},
	}, 2))

	tasks, err := f.client().ListTaskStatus(context.Background(), 116000000001)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "B", tasks[1].ID)
	assert.Equal(t, "IN_PROGRESS", tasks[1].State())
}

func TestUploadAndImport(t *testing.T) {
	f := newFake(t)
	file := modelPath + "/files/113000000001"

	var chunks [][]byte

	f.json("POST "+file, map[string]any{"file": map[string]any{"id": "113000000001", "chunkCount": 1}})
	f.handle("PUT "+file+"/chunks/0", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-gzip", r.Header.Get("Content-Type"))

		zr, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			return
		}

		data, err := io.ReadAll(zr)
		assert.NoError(t, err)

		chunks = append(chunks, data)
		w.WriteHeader(http.StatusNoContent)
	})
	taskRoutes(f, "imports", 112000000001, 0, true)

	err := f.client().UploadAndImport(context.Background(), 113000000001, []byte("code,name\nA,Alpha\n"), 112000000001)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "code,name\nA,Alpha\n", string(chunks[0]))
	assert.Len(t, f.requests("POST "+modelPath+"/imports/112000000001/tasks"), 1)
}

func TestUploadFile_RejectsNonFileID(t *testing.T) {
	f := newFake(t)

	err := f.client().UploadFile(context.Background(), 112000000001, []byte("x"))
	require.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Zero(t, f.callCount())
}

func TestExportAndDownload(t *testing.T) {
	f := newFake(t)
	taskRoutes(f, "exports", 116000000001, 1, true)

	f.json("GET "+modelPath+"/files", paged("files", []any{
		map[string]any{"id": "116000000001", "name": "Grid.csv", "chunkCount": 2},
	}, 1))
	f.handle("GET "+modelPath+"/files/116000000001/chunks/0", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "a,b\n")
	})
	f.handle("GET "+modelPath+"/files/116000000001/chunks/1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "1,2\n")
	})

	data, err := f.client().ExportAndDownload(context.Background(), 116000000001)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestGetDimensionItems(t *testing.T) {
	f := newFake(t)
	f.json("GET "+txPath+"/dimensions/109000000001/items", map[string]any{"items": []any{
		map[string]any{"id": "209000000001", "name": "North", "code": "N"},
	}})

	c := f.client()

	items, err := c.GetDimensionItems(context.Background(), 109000000001)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "N", items[0].Code)

	_, err = c.GetDimensionItems(context.Background(), 112000000001)
	require.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestRemoteErrorCarriesStatus(t *testing.T) {
	f := newFake(t)
	f.handle("GET "+modelPath+"/processes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":{"code":400,"message":"bad"}}`)
	})

	_, err := f.client().ListProcesses(context.Background())
	require.ErrorIs(t, err, ErrRemote)

	var remote *RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
	assert.Contains(t, remote.Body, "bad")
}

func TestUploadFileStream_FromReader(t *testing.T) {
	f := newFake(t)
	file := modelPath + "/files/113000000002"

	var (
		mu     sync.Mutex
		chunks = map[string]string{}
	)

	f.json("POST "+file, map[string]any{"file": map[string]any{"id": "113000000002", "chunkCount": -1}})

	for _, idx := range []string{"0", "1", "2"} {
		f.handle("PUT "+file+"/chunks/"+idx, func(w http.ResponseWriter, r *http.Request) {
			zr, err := gzip.NewReader(r.Body)
			if !assert.NoError(t, err) {
				return
			}

			data, err := io.ReadAll(zr)
			assert.NoError(t, err)

			mu.Lock()
			chunks[idx] = string(data)
			mu.Unlock()

			w.WriteHeader(http.StatusNoContent)
		})
	}

	f.handle("POST "+file+"/complete", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	c := f.client()
	err := c.UploadFileStream(context.Background(), 113000000002, ReaderChunks(strings.NewReader("abcdefgh"), 3))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"0": "abc", "1": "def", "2": "gh"}, chunks)

	reg := f.requests("POST " + file)
	require.Len(t, reg, 1)
	assert.JSONEq(t, `{"chunkCount":-1}`, string(reg[0].body))
	assert.Len(t, f.requests("POST "+file+"/complete"), 1)
}
