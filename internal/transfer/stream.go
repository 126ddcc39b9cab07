package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
)

// UploadStream uploads chunks of unknown count. The file is registered with
// a chunk count of -1, chunks are consumed lazily and flushed through the
// executor in batches of the configured batch size, and the file is marked
// complete once the source is exhausted. Only one batch is held in memory.
func (e *Engine) UploadStream(ctx context.Context, id int64, chunks iter.Seq2[[]byte, error]) error {
	if err := e.setChunkCount(ctx, id, -1); err != nil {
		return err
	}

	batch := make([][]byte, 0, e.batchSize)
	next := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}

		if err := e.putChunks(ctx, id, next, batch); err != nil {
			return err
		}

		next += len(batch)
		batch = batch[:0]

		return nil
	}

	for chunk, err := range chunks {
		if err != nil {
			return fmt.Errorf("transfer: reading chunk %d of file %d: %w", next+len(batch), id, err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		batch = append(batch, chunk)

		if len(batch) == e.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}

	if err := e.req.Post(ctx, e.fileURL(id)+"/complete", map[string]int64{"id": id}, nil); err != nil {
		return fmt.Errorf("transfer: completing file %d: %w", id, err)
	}

	e.logger.Info("marked all chunks complete", slog.Int64("file_id", id), slog.Int("chunks", next))

	return nil
}

// ReaderChunks yields r in chunks of exactly size bytes, the last one
// possibly shorter. Each chunk is a fresh slice.
func ReaderChunks(r io.Reader, size int) iter.Seq2[[]byte, error] {
	if size <= 0 {
		size = DefaultChunkSize
	}

	return func(yield func([]byte, error) bool) {
		for {
			buf := make([]byte, size)

			n, err := io.ReadFull(r, buf)
			if n > 0 && !yield(buf[:n], nil) {
				return
			}

			switch {
			case err == nil:
				continue
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				return
			default:
				yield(nil, err)
				return
			}
		}
	}
}

// SliceChunks yields the given chunks in order.
func SliceChunks(chunks ...[]byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

// DownloadStream yields the file's chunks in index order. Chunks are fetched
// through the executor in batches of the configured batch size and only one
// batch is held at a time. An error is yielded once and ends the stream.
func (e *Engine) DownloadStream(ctx context.Context, id int64) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		n, err := e.ChunkCount(ctx, id)
		if err != nil {
			yield(nil, err)
			return
		}

		if n <= 1 {
			data, err := e.req.GetBinary(ctx, e.fileURL(id))
			yield(data, err)

			return
		}

		e.logger.Info("streaming file", slog.Int64("file_id", id), slog.Int("chunks", n))

		for base := 0; base < n; base += e.batchSize {
			batch, err := e.getChunks(ctx, id, base, min(e.batchSize, n-base))
			if err != nil {
				yield(nil, err)
				return
			}

			for _, c := range batch {
				if !yield(c, nil) {
					return
				}
			}
		}
	}
}
