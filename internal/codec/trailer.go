// trailer.go implements the byte-level framing that makes a .tmd file both a
// readable text document and a valid ZIP archive.
//
// The ZIP end-of-central-directory (EOCD) record carries a variable-length
// comment. A .tmd container stores a fixed 13-byte trailer there: the 5-byte
// signature "TMD1\0" followed by the Markdown prefix length as an unsigned
// 64-bit little-endian integer. Readers scan backward from the end of the
// buffer for the EOCD signature (never farther than 64KB + 22 bytes, the
// maximum the comment-length field allows), validate the comment, and split
// the buffer at the recorded offset.
//
// These routines are deliberately independent of archive/zip's own offset
// bookkeeping: the trailer is a byte-level concern and is tested adversarially
// against truncated and corrupted input.

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	// eocdMinLen is the size of an EOCD record with an empty comment.
	eocdMinLen = 22
	// eocdCommentLenOff is the offset of the comment-length field within the
	// EOCD record.
	eocdCommentLenOff = 20
	// maxEOCDScan bounds the backward signature scan: the comment-length
	// field is 16 bits, so the EOCD cannot start farther from the end.
	maxEOCDScan = 0xFFFF + eocdMinLen
)

// eocdSignature marks the start of the EOCD record.
var eocdSignature = []byte{'P', 'K', 0x05, 0x06}

// trailerSignature opens the TMD comment.
var trailerSignature = []byte("TMD1\x00")

// trailerLen is the exact comment length of a .tmd container: signature plus
// 8-byte prefix length.
const trailerLen = 5 + 8

// findEOCD returns the offset of the last EOCD signature within the bounded
// scan window.
func findEOCD(data []byte) (int, error) {
	if len(data) < eocdMinLen {
		return 0, fmt.Errorf("%w: input too small to contain ZIP end-of-central-directory", ErrFormat)
	}
	start := 0
	if len(data) > maxEOCDScan {
		start = len(data) - maxEOCDScan
	}
	for i := len(data) - eocdMinLen; i >= start; i-- {
		if bytes.Equal(data[i:i+4], eocdSignature) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: ZIP end-of-central-directory signature not found", ErrFormat)
}

// splitTmd locates the TMD trailer and splits data into its Markdown prefix
// and archive suffix. Every offset derived from the untrusted input is
// checked before use.
func splitTmd(data []byte) (markdown, archive []byte, err error) {
	eocd, err := findEOCD(data)
	if err != nil {
		return nil, nil, err
	}
	if eocd+eocdMinLen > len(data) {
		return nil, nil, fmt.Errorf("%w: end-of-central-directory extends past end of buffer", ErrFormat)
	}

	commentLen := int(binary.LittleEndian.Uint16(data[eocd+eocdCommentLenOff:]))
	commentStart := eocd + eocdMinLen
	if commentStart+commentLen > len(data) {
		return nil, nil, fmt.Errorf("%w: comment length %d exceeds buffer", ErrFormat, commentLen)
	}
	comment := data[commentStart : commentStart+commentLen]

	if !bytes.HasPrefix(comment, trailerSignature) {
		return nil, nil, fmt.Errorf("%w: missing TMD trailer signature", ErrFormat)
	}
	if len(comment) != trailerLen {
		return nil, nil, fmt.Errorf("%w: unexpected TMD trailer length: expected %d bytes, got %d",
			ErrFormat, trailerLen, len(comment))
	}

	prefixLen := binary.LittleEndian.Uint64(comment[len(trailerSignature):])
	if prefixLen > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: markdown prefix length %d exceeds buffer size %d",
			ErrFormat, prefixLen, len(data))
	}
	return data[:prefixLen], data[prefixLen:], nil
}

// patchTrailer rewrites archive's EOCD comment to the TMD trailer recording
// markdownLen, returning the patched archive. The archive must have been
// freshly built (any existing comment is discarded).
func patchTrailer(archive []byte, markdownLen uint64) ([]byte, error) {
	eocd, err := findEOCD(archive)
	if err != nil {
		return nil, err
	}
	if eocd+eocdMinLen > len(archive) {
		return nil, fmt.Errorf("%w: end-of-central-directory extends past end of buffer", ErrFormat)
	}
	if trailerLen > 0xFFFF {
		return nil, fmt.Errorf("%w: TMD trailer would exceed ZIP comment limit", ErrFormat)
	}

	trailer := make([]byte, 0, trailerLen)
	trailer = append(trailer, trailerSignature...)
	trailer = binary.LittleEndian.AppendUint64(trailer, markdownLen)

	patched := make([]byte, eocd+eocdMinLen, eocd+eocdMinLen+trailerLen)
	copy(patched, archive)
	binary.LittleEndian.PutUint16(patched[eocd+eocdCommentLenOff:], uint16(trailerLen))
	return append(patched, trailer...), nil
}
