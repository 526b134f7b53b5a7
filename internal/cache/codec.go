package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
)

// brotliMarker prefixes compressed entries. Plain entries are JSON objects
// and always start with '{', so both forms can share a namespace.
const brotliMarker byte = 0x01

// maxDecodedEntry bounds decompression of a single entry.
const maxDecodedEntry = 32 * 1024 * 1024

func encodeEntry(entry *Entry, compress bool) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshaling entry: %w", err)
	}
	if !compress {
		return raw, nil
	}

	var buf bytes.Buffer
	buf.WriteByte(brotliMarker)
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing entry: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing entry: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeEntry(raw []byte) (*Entry, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty entry")
	}

	if raw[0] == brotliMarker {
		r := io.LimitReader(brotli.NewReader(bytes.NewReader(raw[1:])), maxDecodedEntry+1)
		plain, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("decompressing entry: %w", err)
		}
		if len(plain) > maxDecodedEntry {
			return nil, fmt.Errorf("entry too large (exceeds %d bytes)", maxDecodedEntry)
		}
		raw = plain
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("parsing entry: %w", err)
	}
	return &entry, nil
}
