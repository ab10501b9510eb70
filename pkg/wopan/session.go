// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package wopan

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/LeeDigitalWorks/wovault/pkg/events"
	"github.com/LeeDigitalWorks/wovault/pkg/utils"
)

// session carries the identity shared by every part of one upload.
type session struct {
	filePath    string
	fileName    string
	fileSize    int64
	directoryID string
	uniqueID    string
	batchNo     string
	totalParts  int
	fileInfo    string // encrypted envelope, identical for all parts
}

func (u *uploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || req.FilePath == "" {
		return nil, &Error{Code: ErrCodeValidation, Message: "file path is required"}
	}

	info, err := os.Stat(req.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", req.FilePath), Err: err}
		}
		return nil, &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("stat %s", req.FilePath), Err: err}
	}
	if info.IsDir() {
		return nil, &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("%s is a directory", req.FilePath)}
	}

	sess, err := u.newSession(req, info)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("open %s", req.FilePath), Err: err}
	}
	defer f.Close()

	u.cfg.Emitter.Emit(ctx, events.Event{
		Type:       events.TypeSessionStarted,
		FileName:   sess.fileName,
		FileSize:   sess.fileSize,
		UniqueID:   sess.uniqueID,
		BatchNo:    sess.batchNo,
		TotalParts: sess.totalParts,
	})

	return u.run(ctx, sess, f)
}

// newSession fixes the session identity. uniqueId and batchNo are generated
// exactly once and reused for every part; the remote service correlates the
// parts of a file by them.
func (u *uploader) newSession(req *UploadRequest, info os.FileInfo) (*session, error) {
	directoryID := req.DirectoryID
	if directoryID == "" {
		directoryID = RootDirectoryID
	}

	now := time.Now()
	sess := &session{
		filePath:    req.FilePath,
		fileName:    filepath.Base(req.FilePath),
		fileSize:    info.Size(),
		directoryID: directoryID,
		uniqueID:    newUniqueID(now),
		batchNo:     now.Format("20060102150405"),
		totalParts:  totalParts(info.Size(), u.cfg.ChunkSize),
	}

	envelope := &FileInfoEnvelope{
		SpaceType:   "0",
		DirectoryID: directoryID,
		BatchNo:     sess.batchNo,
		FileName:    sess.fileName,
		FileSize:    sess.fileSize,
		FileType:    FileTypeOf(sess.fileName),
	}
	fileInfo, err := u.cipher.Encrypt(envelope)
	if err != nil {
		return nil, &Error{Code: ErrCodeValidation, Message: "encrypt envelope", Err: err}
	}
	sess.fileInfo = fileInfo

	return sess, nil
}

// run drives the ordered part sequence. It stops as soon as a part response
// carries a fid: the remote service may finalize before the nominal last
// part, and pushing further parts would re-send data the server already
// considers complete.
func (u *uploader) run(ctx context.Context, sess *session, f *os.File) (*UploadResult, error) {
	buf := utils.GetBuffer(int(u.cfg.ChunkSize))
	defer utils.PutBuffer(buf)

	var last *UploadResponse
	for partIndex := 1; partIndex <= sess.totalParts; partIndex++ {
		if err := ctx.Err(); err != nil {
			u.emitFailed(ctx, sess, partIndex, err)
			return nil, err
		}

		n, err := readChunk(f, buf)
		if err != nil {
			uerr := &Error{Code: ErrCodeValidation, Message: fmt.Sprintf("read part %d", partIndex), Err: err}
			u.emitFailed(ctx, sess, partIndex, uerr)
			return nil, uerr
		}

		part := &PartUpload{
			UniqueID:    sess.uniqueID,
			AccessToken: u.cfg.AccessToken,
			FileName:    sess.fileName,
			FileSize:    sess.fileSize,
			TotalParts:  sess.totalParts,
			DirectoryID: sess.directoryID,
			FileInfo:    sess.fileInfo,
			PartSize:    int64(n),
			PartIndex:   partIndex,
			Body:        buf[:n],
		}

		resp, err := u.sendPart(ctx, sess, part)
		if err != nil {
			u.emitFailed(ctx, sess, partIndex, err)
			return nil, err
		}
		last = resp

		u.cfg.Emitter.Emit(ctx, events.Event{
			Type:       events.TypePartUploaded,
			FileName:   sess.fileName,
			UniqueID:   sess.uniqueID,
			PartIndex:  partIndex,
			TotalParts: sess.totalParts,
			PartSize:   part.PartSize,
		})

		if fid := resp.Fid(); fid != "" {
			u.cfg.Emitter.Emit(ctx, events.Event{
				Type:     events.TypeSessionCompleted,
				FileName: sess.fileName,
				UniqueID: sess.uniqueID,
				Fid:      fid,
			})
			return result(sess, partIndex, resp, true), nil
		}
	}

	// The nominal sequence finished but no response ever carried a fid.
	// Report the last response as the outcome, flagged unconfirmed: the
	// remote may or may not have assembled the file.
	u.cfg.Emitter.Emit(ctx, events.Event{
		Type:      events.TypeSessionUnconfirmed,
		FileName:  sess.fileName,
		UniqueID:  sess.uniqueID,
		PartIndex: sess.totalParts,
	})
	return result(sess, sess.totalParts, last, false), nil
}

// sendPart runs the bounded retry loop for one part. Transport faults and
// remote error codes retry with different pacing; exhausting the budget is
// fatal for the whole session.
func (u *uploader) sendPart(ctx context.Context, sess *session, part *PartUpload) (*UploadResponse, error) {
	var lastErr *Error

	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var kind FailureKind
		resp, err := u.cfg.Transport.UploadPart(ctx, part)
		switch {
		case err != nil:
			kind = FailureTransport
			lastErr = &Error{
				Code:    ErrCodeTransport,
				Message: fmt.Sprintf("part %d/%d", part.PartIndex, part.TotalParts),
				Err:     err,
			}
		case !resp.Accepted():
			kind = FailureProtocol
			lastErr = &Error{
				Code:    ErrCodeProtocol,
				Message: fmt.Sprintf("part %d/%d rejected with code %s: %s", part.PartIndex, part.TotalParts, resp.Code, resp.Msg),
			}
		default:
			return resp, nil
		}

		if attempt == u.cfg.MaxAttempts {
			break
		}

		delay := u.cfg.Backoff.Next(attempt, kind)
		u.cfg.Emitter.Emit(ctx, events.Event{
			Type:      events.TypePartRetried,
			FileName:  sess.fileName,
			UniqueID:  sess.uniqueID,
			PartIndex: part.PartIndex,
			Attempt:   attempt,
			Delay:     delay,
			Reason:    kind.String(),
			Err:       lastErr,
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, &Error{
		Code:    ErrCodeExhausted,
		Message: fmt.Sprintf("part %d/%d failed after %d attempts", part.PartIndex, part.TotalParts, u.cfg.MaxAttempts),
		Err:     lastErr,
	}
}

func (u *uploader) emitFailed(ctx context.Context, sess *session, partIndex int, err error) {
	u.cfg.Emitter.Emit(ctx, events.Event{
		Type:      events.TypeSessionFailed,
		FileName:  sess.fileName,
		UniqueID:  sess.uniqueID,
		PartIndex: partIndex,
		Err:       err,
	})
}

func result(sess *session, partsSent int, resp *UploadResponse, confirmed bool) *UploadResult {
	res := &UploadResult{
		Fid:        resp.Fid(),
		Confirmed:  confirmed,
		UniqueID:   sess.uniqueID,
		BatchNo:    sess.batchNo,
		FileName:   sess.fileName,
		FileSize:   sess.fileSize,
		TotalParts: sess.totalParts,
		PartsSent:  partsSent,
	}
	if resp != nil {
		res.Code = resp.Code
		res.Message = resp.Msg
	}
	return res
}

// readChunk fills buf from f, returning a short count on the final part.
func readChunk(f *os.File, buf []byte) (int, error) {
	n, err := io.ReadFull(f, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	return n, err
}

// totalParts computes the part count for a file of size bytes. A zero-byte
// file is one empty part; the protocol cannot represent a zero-part upload.
func totalParts(size, chunkSize int64) int {
	if size <= 0 {
		return 1
	}
	n := size / chunkSize
	if size%chunkSize != 0 {
		n++
	}
	return int(n)
}

const uniqueIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// newUniqueID builds the session correlation key: epoch milliseconds plus a
// short random alphabetic suffix, the format the web client generates.
func newUniqueID(now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = uniqueIDAlphabet[rand.Intn(len(uniqueIDAlphabet))]
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), suffix)
}
