// Package transfer moves file content to and from the Anaplan files API in
// gzip compressed chunks, either all at once or as a stream.
package transfer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/ident"
)

// Transfer defaults.
const (
	DefaultChunkSize = 25_000_000
	DefaultBatchSize = 4
)

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	ChunkSize         int
	BatchSize         int
	AllowFileCreation bool
}

// Engine uploads and downloads the files of one model.
type Engine struct {
	req           api.Requester
	filesURL      string
	chunkSize     int
	batchSize     int
	allowCreation bool
	logger        *slog.Logger
}

// New returns an Engine for filesURL, the model's ".../files" collection.
func New(req api.Requester, filesURL string, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		req:           req,
		filesURL:      filesURL,
		chunkSize:     opts.ChunkSize,
		batchSize:     opts.BatchSize,
		allowCreation: opts.AllowFileCreation,
		logger:        logger,
	}

	if e.chunkSize <= 0 {
		e.chunkSize = DefaultChunkSize
	}

	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}

	return e
}

// Chunks splits content into slices of at most size bytes. The slices share
// content's backing array.
func Chunks(content []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}

	out := make([][]byte, 0, (len(content)+size-1)/size)
	for start := 0; start < len(content); start += size {
		out = append(out, content[start:min(start+size, len(content))])
	}

	return out
}

func (e *Engine) fileURL(fileID int64) string {
	return e.filesURL + "/" + strconv.FormatInt(fileID, 10)
}

func (e *Engine) chunkURL(fileID int64, index int) string {
	return e.fileURL(fileID) + "/chunks/" + strconv.Itoa(index)
}

// fileID decodes ids the API sends either as numbers or as strings.
type fileID int64

func (f *fileID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)

	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("transfer: file id %s: %w", b, err)
	}

	*f = fileID(n)

	return nil
}

// setChunkCount registers the chunk count for a file after the id gate. The
// server creates a new file when the id is unknown; that is an error unless
// file creation is allowed.
func (e *Engine) setChunkCount(ctx context.Context, id int64, n int) error {
	if err := ident.ValidateFileID(id, e.allowCreation); err != nil {
		return err
	}

	var resp struct {
		File *struct {
			ID fileID `json:"id"`
		} `json:"file"`
	}

	if err := e.req.Post(ctx, e.fileURL(id), map[string]int{"chunkCount": n}, &resp); err != nil {
		return fmt.Errorf("transfer: registering chunk count for file %d: %w", id, err)
	}

	if resp.File == nil {
		return fmt.Errorf("transfer: registering file %d: response has no file", id)
	}

	created := int64(resp.File.ID)
	if created == id {
		return nil
	}

	if e.allowCreation {
		e.logger.Info("created new file", slog.Int64("name", id), slog.Int64("file_id", created))
		return nil
	}

	return fmt.Errorf("%w: file %d did not exist and was created as %d; ask a model builder to remove it "+
		"or set allow_file_creation to create files dynamically", api.ErrInvalidIdentifier, id, created)
}

// Upload splits content into chunks and uploads them through the executor.
// Any chunk failure fails the upload. Partial uploads are not rolled back.
func (e *Engine) Upload(ctx context.Context, id int64, content []byte) error {
	chunks := Chunks(content, e.chunkSize)

	e.logger.Info("uploading file",
		slog.Int64("file_id", id),
		slog.Int("chunks", len(chunks)),
		slog.String("size", humanize.Bytes(uint64(len(content)))),
	)

	if err := e.setChunkCount(ctx, id, len(chunks)); err != nil {
		return err
	}

	return e.putChunks(ctx, id, 0, chunks)
}

func (e *Engine) putChunks(ctx context.Context, id int64, base int, chunks [][]byte) error {
	return e.req.Executor().Run(ctx, len(chunks), func(ctx context.Context, i int) error {
		index := base + i

		if err := e.req.PutBinaryGzip(ctx, e.chunkURL(id, index), chunks[i]); err != nil {
			return fmt.Errorf("transfer: uploading chunk %d of file %d: %w", index, id, err)
		}

		e.logger.Debug("chunk uploaded", slog.Int64("file_id", id), slog.Int("index", index))

		return nil
	})
}

type fileEntry struct {
	ID         fileID `json:"id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunkCount"`
}

// ChunkCount looks the file up in the model's file list.
func (e *Engine) ChunkCount(ctx context.Context, id int64) (int, error) {
	raw, err := e.req.GetPaginated(ctx, api.PageQuery{URL: e.filesURL, ResultKey: "files"})
	if err != nil {
		return 0, fmt.Errorf("transfer: listing files: %w", err)
	}

	files, err := api.DecodeAll[fileEntry](raw)
	if err != nil {
		return 0, err
	}

	for _, f := range files {
		if int64(f.ID) == id {
			return f.ChunkCount, nil
		}
	}

	return 0, fmt.Errorf("%w: file %d not found", api.ErrInvalidIdentifier, id)
}

// Download returns the file content. Multi-chunk files are fetched through
// the executor and concatenated in index order.
func (e *Engine) Download(ctx context.Context, id int64) ([]byte, error) {
	n, err := e.ChunkCount(ctx, id)
	if err != nil {
		return nil, err
	}

	if n <= 1 {
		return e.req.GetBinary(ctx, e.fileURL(id))
	}

	e.logger.Info("downloading file", slog.Int64("file_id", id), slog.Int("chunks", n))

	chunks, err := e.getChunks(ctx, id, 0, n)
	if err != nil {
		return nil, err
	}

	return bytes.Join(chunks, nil), nil
}

func (e *Engine) getChunks(ctx context.Context, id int64, base, n int) ([][]byte, error) {
	chunks := make([][]byte, n)

	err := e.req.Executor().Run(ctx, n, func(ctx context.Context, i int) error {
		data, err := e.req.GetBinary(ctx, e.chunkURL(id, base+i))
		if err != nil {
			return fmt.Errorf("transfer: downloading chunk %d of file %d: %w", base+i, id, err)
		}

		chunks[i] = data

		return nil
	})
	if err != nil {
		return nil, err
	}

	return chunks, nil
}
