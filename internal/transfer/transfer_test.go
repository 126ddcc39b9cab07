package transfer

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

const testFileID int64 = 113_000_000_042

// fakeFiles emulates the files collection of one model.
type fakeFiles struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	chunkCount  map[int64]int
	chunks      map[int64]map[int][]byte
	registered  []int
	completed   []int64
	putIndices  []int
	contentType []string
	calls       atomic.Int32
	createAs    int64
	failChunk   int
}

func newFakeFiles(t *testing.T) *fakeFiles {
	t.Helper()

	f := &fakeFiles{
		t:          t,
		chunkCount: map[int64]int{},
		chunks:     map[int64]map[int][]byte{},
		failChunk:  -1,
	}

	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeFiles) serve(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// files[/<id>[/chunks/<i> | /complete]]

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(parts) == 1 {
		f.listFiles(w)
		return
	}

	id, err := strconv.ParseInt(parts[1], 10, 64)
	if !assert.NoError(f.t, err) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 2 && r.Method == http.MethodPost:
		var body struct {
			ChunkCount int `json:"chunkCount"`
		}
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

		f.registered = append(f.registered, body.ChunkCount)
		f.chunkCount[id] = body.ChunkCount
		f.chunks[id] = map[int][]byte{}

		created := id
		if f.createAs != 0 {
			created = f.createAs
		}

		fmt.Fprintf(w, `{"file":{"id":"%d","chunkCount":%d}}`, created, body.ChunkCount)
	case len(parts) == 2 && r.Method == http.MethodGet:
		_, _ = w.Write(f.chunks[id][0])
	case len(parts) == 3 && parts[2] == "complete":
		var body struct {
			ID int64 `json:"id"`
		}
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(f.t, id, body.ID)

		f.completed = append(f.completed, id)
		f.chunkCount[id] = len(f.chunks[id])

		fmt.Fprint(w, `{}`)
	case len(parts) == 4 && r.Method == http.MethodPut:
		index, _ := strconv.Atoi(parts[3])
		if index == f.failChunk {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.putIndices = append(f.putIndices, index)
		f.contentType = append(f.contentType, r.Header.Get("Content-Type"))

		zr, err := gzip.NewReader(r.Body)
		if !assert.NoError(f.t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		data, err := io.ReadAll(zr)
		assert.NoError(f.t, err)

		f.chunks[id][index] = data
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 4 && r.Method == http.MethodGet:
		index, _ := strconv.Atoi(parts[3])
		_, _ = w.Write(f.chunks[id][index])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeFiles) listFiles(w http.ResponseWriter) {
	files := make([]map[string]any, 0, len(f.chunkCount))
	for id, n := range f.chunkCount {
		files = append(files, map[string]any{"id": id, "name": "data.csv", "chunkCount": n})
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"files": files,
		"meta":  map[string]any{"paging": map[string]int{"totalSize": len(files), "currentPageSize": len(files)}},
	})
}

func (f *fakeFiles) engine(exec api.Executor, opts Options) *Engine {
	svc := api.NewService(f.srv.Client(), api.Config{RetryCount: 1}, exec, nil)

	return New(svc, f.srv.URL+"/files", opts, nil)
}

func randomBytes(n int) []byte {
	r := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, n)

	for i := range b {
		b[i] = byte(r.UintN(256))
	}

	return b
}

func TestChunks(t *testing.T) {
	assert.Empty(t, Chunks(nil, 10))
	assert.Equal(t, [][]byte{[]byte("abc"), []byte("de")}, Chunks([]byte("abcde"), 3))
	assert.Len(t, Chunks(make([]byte, 60), 25), 3)
	assert.Len(t, Chunks(make([]byte, 50), 25), 2)
}

func TestUploadDownload_RoundTrip(t *testing.T) {
	for name, exec := range map[string]api.Executor{
		"parallel":    api.Parallel(4),
		"cooperative": api.Cooperative(),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFakeFiles(t)
			e := f.engine(exec, Options{ChunkSize: 250_000})
			content := randomBytes(600_000)

			require.NoError(t, e.Upload(context.Background(), testFileID, content))

			assert.Equal(t, []int{3}, f.registered)

			indices := slices.Clone(f.putIndices)
			slices.Sort(indices)
			assert.Equal(t, []int{0, 1, 2}, indices)

			for _, ct := range f.contentType {
				assert.Equal(t, "application/x-gzip", ct)
			}

			got, err := e.Download(context.Background(), testFileID)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(content, got), "downloaded bytes differ")
		})
	}
}

func TestUpload_GateRejectsBeforeAnyCall(t *testing.T) {
	f := newFakeFiles(t)
	e := f.engine(nil, Options{})

	err := e.Upload(context.Background(), 115_000_000_000, []byte("x"))
	require.ErrorIs(t, err, api.ErrInvalidIdentifier)
	assert.Zero(t, f.calls.Load())

	err = e.UploadStream(context.Background(), 115_000_000_000, SliceChunks([]byte("x")))
	require.ErrorIs(t, err, api.ErrInvalidIdentifier)
	assert.Zero(t, f.calls.Load())
}

func TestUpload_CreatedFile(t *testing.T) {
	f := newFakeFiles(t)
	f.createAs = 113_000_000_999

	err := f.engine(nil, Options{}).Upload(context.Background(), testFileID, []byte("x"))
	require.ErrorIs(t, err, api.ErrInvalidIdentifier)
	assert.Empty(t, f.putIndices, "no chunk is uploaded to an accidentally created file")

	f.registered = nil

	err = f.engine(nil, Options{AllowFileCreation: true}).Upload(context.Background(), 42, []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, f.registered)
}

func TestUpload_ChunkFailureFailsUpload(t *testing.T) {
	f := newFakeFiles(t)
	f.failChunk = 1

	err := f.engine(api.Cooperative(), Options{ChunkSize: 2}).Upload(context.Background(), testFileID, []byte("aabbcc"))
	require.ErrorIs(t, err, api.ErrRemote)
	assert.Contains(t, err.Error(), "chunk 1")
}

func TestUploadStream_BatchesAndCompletes(t *testing.T) {
	f := newFakeFiles(t)
	e := f.engine(api.Parallel(2), Options{BatchSize: 2})

	chunks := [][]byte{[]byte("a1"), []byte("b2"), []byte("c3"), []byte("d4"), []byte("e5")}

	require.NoError(t, e.UploadStream(context.Background(), testFileID, SliceChunks(chunks...)))

	assert.Equal(t, []int{-1}, f.registered)
	assert.Equal(t, []int64{testFileID}, f.completed)

	indices := slices.Clone(f.putIndices)
	slices.Sort(indices)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indices)

	var got [][]byte
	for c, err := range e.DownloadStream(context.Background(), testFileID) {
		require.NoError(t, err)
		got = append(got, c)
	}

	assert.Equal(t, chunks, got)
}

func TestUploadStream_SourceError(t *testing.T) {
	f := newFakeFiles(t)
	boom := errors.New("producer failed")

	src := func(yield func([]byte, error) bool) {
		if !yield([]byte("ok"), nil) {
			return
		}

		yield(nil, boom)
	}

	err := f.engine(nil, Options{BatchSize: 10}).UploadStream(context.Background(), testFileID, src)
	require.ErrorIs(t, err, boom)
	assert.Empty(t, f.completed)
}

func TestReaderChunks(t *testing.T) {
	var got []string

	for c, err := range ReaderChunks(strings.NewReader("abcdefgh"), 3) {
		require.NoError(t, err)
		got = append(got, string(c))
	}

	assert.Equal(t, []string{"abc", "def", "gh"}, got)

	got = nil

	for c, err := range ReaderChunks(strings.NewReader("abcdef"), 3) {
		require.NoError(t, err)
		got = append(got, string(c))
	}

	assert.Equal(t, []string{"abc", "def"}, got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReaderChunks_Error(t *testing.T) {
	var errs int

	for _, err := range ReaderChunks(failingReader{}, 3) {
		require.Error(t, err)
		errs++
	}

	assert.Equal(t, 1, errs)
}

func TestDownload_SingleChunk(t *testing.T) {
	f := newFakeFiles(t)
	e := f.engine(nil, Options{})

	require.NoError(t, e.Upload(context.Background(), testFileID, []byte("small")))

	got, err := e.Download(context.Background(), testFileID)
	require.NoError(t, err)
	assert.Equal(t, "small", string(got))
}

func TestDownload_UnknownFile(t *testing.T) {
	f := newFakeFiles(t)

	_, err := f.engine(nil, Options{}).Download(context.Background(), testFileID)
	require.ErrorIs(t, err, api.ErrInvalidIdentifier)

	for _, err := range f.engine(nil, Options{}).DownloadStream(context.Background(), testFileID) {
		require.ErrorIs(t, err, api.ErrInvalidIdentifier)
	}
}

func TestDownloadStream_StopsEarly(t *testing.T) {
	f := newFakeFiles(t)
	e := f.engine(api.Cooperative(), Options{ChunkSize: 1, BatchSize: 2})

	require.NoError(t, e.Upload(context.Background(), testFileID, []byte("abcdef")))

	before := f.calls.Load()

	for c := range e.DownloadStream(context.Background(), testFileID) {
		assert.Equal(t, "a", string(c))
		break
	}

	// One listing plus the first batch of two chunks.
	assert.EqualValues(t, 3, f.calls.Load()-before)
}
