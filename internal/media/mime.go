package media

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes mimetype inspects.
const sniffLen = 3072

// allowedImageTypes maps every accepted image MIME type to its object key extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

func allowedDescription() string {
	names := make([]string, 0, len(allowedImageTypes))
	for mt := range allowedImageTypes {
		names = append(names, strings.TrimPrefix(mt, "image/"))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// sniff detects the content type from the leading bytes and returns a reader
// that still yields the whole body.
func sniff(r io.Reader) (string, string, io.Reader, error) {
	buffered := bufio.NewReaderSize(r, sniffLen)
	head, err := buffered.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return "", "", nil, err
	}
	mediaType := strings.ToLower(mimetype.Detect(head).String())
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return mediaType, allowedImageTypes[mediaType], buffered, nil
}
