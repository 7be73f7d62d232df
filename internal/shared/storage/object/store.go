package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"upscale-bot/internal/shared/util"
)

// sniffLen matches the default read limit of mimetype.
const sniffLen = 3072

// ScratchStore holds short-lived binary objects (downloaded source images,
// fetched results) for the lifetime of one upscale run.
type ScratchStore interface {
	Put(ctx context.Context, owner, fileName string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh slash-separated key for fileName under the hashed
// owner namespace.
func NewKey(owner, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return path.Join(util.OwnerKey(owner), uuid.NewString()+"_"+name), nil
}

// DetectType returns the media type of data, without parameters.
func DetectType(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return mt
}

// Sniff reads the head of r to detect its media type. The returned reader
// yields the complete stream, head included.
func Sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("read head: %w", err)
	}
	head = head[:n]
	return DetectType(head), io.MultiReader(bytes.NewReader(head), r), nil
}
