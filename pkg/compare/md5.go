package compare

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/nobbyfix/AzurLaneTools/pkg/storage"
)

// MD5Hasher computes MD5 digests of files in a storage backend, in the
// format used by hash manifests.
type MD5Hasher struct {
	bufferPool *sync.Pool
}

// NewMD5Hasher creates a hasher reading with the given buffer size
func NewMD5Hasher(bufferSize int) *MD5Hasher {
	if bufferSize < 4096 {
		bufferSize = 4096
	}
	return &MD5Hasher{
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// HashFile returns the lowercase hex MD5 and the byte count of path
func (h *MD5Hasher) HashFile(ctx context.Context, backend storage.Backend, path string) (string, int64, error) {
	reader, err := backend.Read(ctx, path)
	if err != nil {
		return "", 0, err
	}
	defer reader.Close()

	hash := md5.New()
	bufPtr := h.bufferPool.Get().(*[]byte)
	defer h.bufferPool.Put(bufPtr)
	buf := *bufPtr

	var bytesRead int64
	for {
		select {
		case <-ctx.Done():
			return "", bytesRead, ctx.Err()
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
			bytesRead += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", bytesRead, fmt.Errorf("failed to read file: %w", err)
		}
	}

	return hex.EncodeToString(hash.Sum(nil)), bytesRead, nil
}

// MD5Bytes returns the lowercase hex MD5 of data
func MD5Bytes(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
