package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/telemetry"
)

const maxParts = 10000

// bodyCloser is implemented by *io.PipeReader. Closing the read side makes the
// producer's next Write fail, which is how a store failure reaches the client read.
type bodyCloser interface {
	CloseWithError(err error) error
}

// Upload streams in.Body into in.Key. A body that ends inside the first part
// is written with a single PutObject. Larger bodies use a multipart upload
// with at most the configured number of parts in flight; it is aborted on any
// body, part or context error and CompleteMultipartUpload is only issued once
// every part has succeeded.
func (s *Store) Upload(ctx context.Context, in object.UploadInput) (object.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		closeBody(in.Body, err)
		return object.UploadResult{}, s.opError("upload", in.Key, fmt.Errorf("%w: %w", object.ErrUploadAborted, err))
	}

	first, last, err := s.readPart(in.Body)
	if err != nil {
		s.releaseBuf(first)
		return object.UploadResult{}, s.opError("read", in.Key, fmt.Errorf("%w: %w", object.ErrUploadAborted, err))
	}
	if last {
		defer s.releaseBuf(first)
		return s.putObject(ctx, in, first)
	}
	return s.multipartUpload(ctx, in, first)
}

func (s *Store) putObject(ctx context.Context, in object.UploadInput, data []byte) (object.UploadResult, error) {
	sse, kmsKeyID := s.serverSideEncryption()
	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(in.Key),
		Body:                 bytes.NewReader(data),
		ContentLength:        aws.Int64(int64(len(data))),
		ContentType:          aws.String(contentTypeOrDefault(in.ContentType)),
		Metadata:             in.Metadata,
		ServerSideEncryption: sse,
		SSEKMSKeyId:          kmsKeyID,
	})
	if err != nil {
		return object.UploadResult{}, s.opError("put_object", in.Key, err)
	}
	return object.UploadResult{
		SizeBytes: int64(len(data)),
		Parts:     1,
		ETag:      aws.ToString(out.ETag),
	}, nil
}

func (s *Store) multipartUpload(ctx context.Context, in object.UploadInput, first []byte) (object.UploadResult, error) {
	sse, kmsKeyID := s.serverSideEncryption()
	created, err := s.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(in.Key),
		ContentType:          aws.String(contentTypeOrDefault(in.ContentType)),
		Metadata:             in.Metadata,
		ServerSideEncryption: sse,
		SSEKMSKeyId:          kmsKeyID,
		ChecksumAlgorithm:    s3types.ChecksumAlgorithmCrc32,
	})
	if err != nil {
		s.releaseBuf(first)
		closeBody(in.Body, err)
		return object.UploadResult{}, s.opError("create_multipart_upload", in.Key, err)
	}
	uploadID := aws.ToString(created.UploadId)

	upCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	g, gctx := errgroup.WithContext(upCtx)
	g.SetLimit(s.concurrency)

	// While parts are still being read, a failed part must also stop the producer.
	stopWatch := context.AfterFunc(gctx, func() { closeBody(in.Body, context.Cause(gctx)) })

	var (
		mu      sync.Mutex
		parts   = make([]s3types.CompletedPart, 0, 4)
		total   int64
		readErr error
	)

	data, num, last := first, int32(1), false
	for {
		partNum, partData := num, data
		total += int64(len(partData))
		g.Go(func() error {
			defer s.releaseBuf(partData)
			out, err := s.client.UploadPart(gctx, &s3.UploadPartInput{
				Bucket:            aws.String(s.bucket),
				Key:               aws.String(in.Key),
				UploadId:          aws.String(uploadID),
				PartNumber:        aws.Int32(partNum),
				Body:              bytes.NewReader(partData),
				ContentLength:     aws.Int64(int64(len(partData))),
				ChecksumAlgorithm: s3types.ChecksumAlgorithmCrc32,
			})
			if err != nil {
				return s.opError("upload_part", in.Key, fmt.Errorf("part %d: %w", partNum, err))
			}
			mu.Lock()
			parts = append(parts, s3types.CompletedPart{
				ETag:          out.ETag,
				PartNumber:    aws.Int32(partNum),
				ChecksumCRC32: out.ChecksumCRC32,
			})
			mu.Unlock()
			return nil
		})

		if last || gctx.Err() != nil {
			break
		}
		if num >= maxParts {
			readErr = fmt.Errorf("object exceeds %d parts of %d bytes", maxParts, s.partSize)
			cancel(readErr)
			break
		}

		next, eof, err := s.readPart(in.Body)
		if err != nil {
			s.releaseBuf(next)
			// A read failing after gctx is done was caused by closeBody above.
			if gctx.Err() == nil {
				readErr = err
				cancel(err)
			}
			break
		}
		if len(next) == 0 {
			s.releaseBuf(next)
			break
		}
		data, num, last = next, num+1, eof
	}

	stopWatch()
	waitErr := g.Wait()

	var failed error
	switch {
	case readErr != nil:
		failed = s.opError("read", in.Key, fmt.Errorf("%w: %w", object.ErrUploadAborted, readErr))
	case waitErr != nil:
		failed = fmt.Errorf("%w: %w", object.ErrUploadAborted, waitErr)
	case ctx.Err() != nil:
		failed = s.opError("upload", in.Key, fmt.Errorf("%w: %w", object.ErrUploadAborted, context.Cause(ctx)))
	}
	if failed != nil {
		closeBody(in.Body, failed)
		s.abort(ctx, in.Key, uploadID)
		return object.UploadResult{}, failed
	}

	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})

	done, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(in.Key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		s.abort(ctx, in.Key, uploadID)
		return object.UploadResult{}, s.opError("complete_multipart_upload", in.Key, err)
	}

	return object.UploadResult{
		SizeBytes: total,
		Parts:     len(parts),
		ETag:      aws.ToString(done.ETag),
	}, nil
}

// abort runs on a detached context so a cancelled request still cleans up its parts.
func (s *Store) abort(ctx context.Context, key, uploadID string) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.abortTimeout)
	defer cancel()

	_, err := s.client.AbortMultipartUpload(abortCtx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		telemetry.Error("s3.abort_failed", map[string]any{
			"bucket":    s.bucket,
			"key":       key,
			"upload_id": uploadID,
			"code":      errorCode(err),
			"err":       err.Error(),
		})
	}
}

// readPart fills one part buffer. last is true when the body ended inside it.
func (s *Store) readPart(r io.Reader) (data []byte, last bool, err error) {
	buf := s.getBuf()
	n, err := io.ReadFull(r, buf)
	switch err {
	case nil:
		return buf[:n], false, nil
	case io.EOF, io.ErrUnexpectedEOF:
		return buf[:n], true, nil
	default:
		return buf[:n], false, err
	}
}

func (s *Store) getBuf() []byte {
	if p, ok := s.bufs.Get().(*[]byte); ok && int64(cap(*p)) == s.partSize {
		return (*p)[:s.partSize]
	}
	return make([]byte, s.partSize)
}

func (s *Store) releaseBuf(b []byte) {
	if int64(cap(b)) != s.partSize {
		return
	}
	b = b[:cap(b)]
	s.bufs.Put(&b)
}

func (s *Store) serverSideEncryption() (s3types.ServerSideEncryption, *string) {
	if s.kmsKeyID != "" {
		return s3types.ServerSideEncryptionAwsKms, aws.String(s.kmsKeyID)
	}
	return s3types.ServerSideEncryptionAes256, nil
}

func closeBody(r io.Reader, cause error) {
	if c, ok := r.(bodyCloser); ok {
		_ = c.CloseWithError(cause)
	}
}

func contentTypeOrDefault(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
