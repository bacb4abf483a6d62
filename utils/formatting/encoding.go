// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package formatting converts byte payloads to and from the checksummed
// hex strings used by API surfaces.
package formatting

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	hexPrefix    = "0x"
	checksumLen  = 4
	maxEncodeLen = 64 * 1024 * 1024
)

var (
	ErrInvalidEncoding  = errors.New("invalid encoding")
	ErrMissingHexPrefix = errors.New("missing 0x prefix to hex encoding")
	ErrMissingChecksum  = errors.New("input string is smaller than the checksum size")
	ErrBadChecksum      = errors.New("invalid input checksum")
	ErrEncodingOverflow = errors.New("encoding overflow")
)

// Encoding defines how byte strings are rendered. Hex is lowercase hex
// with a 0x prefix and a 4-byte SHA-256 checksum suffix; HexNC is the
// same without the checksum.
type Encoding uint8

const (
	Hex Encoding = iota
	HexNC
)

func (enc Encoding) String() string {
	switch enc {
	case Hex:
		return "hex"
	case HexNC:
		return "hexnc"
	default:
		return ErrInvalidEncoding.Error()
	}
}

func (enc Encoding) valid() bool {
	return enc == Hex || enc == HexNC
}

func (enc Encoding) MarshalJSON() ([]byte, error) {
	if !enc.valid() {
		return nil, ErrInvalidEncoding
	}
	return []byte(`"` + enc.String() + `"`), nil
}

func (enc *Encoding) UnmarshalJSON(b []byte) error {
	str := string(b)
	if str == "null" {
		return nil
	}
	var encStr string
	if err := json.Unmarshal(b, &encStr); err != nil {
		return err
	}
	switch strings.ToLower(encStr) {
	case "hex":
		*enc = Hex
	case "hexnc":
		*enc = HexNC
	default:
		return ErrInvalidEncoding
	}
	return nil
}

// Encode renders bytes in the given encoding, appending a checksum for
// the encodings that carry one.
func Encode(encoding Encoding, bytes []byte) (string, error) {
	if !encoding.valid() {
		return "", ErrInvalidEncoding
	}
	if len(bytes) > maxEncodeLen {
		return "", fmt.Errorf("%w: %d > %d", ErrEncodingOverflow, len(bytes), maxEncodeLen)
	}

	if encoding == HexNC {
		return hexPrefix + hex.EncodeToString(bytes), nil
	}
	checked := make([]byte, len(bytes)+checksumLen)
	copy(checked, bytes)
	copy(checked[len(bytes):], checksum(bytes))
	return hexPrefix + hex.EncodeToString(checked), nil
}

// Decode parses a string produced by Encode, verifying the checksum when
// the encoding carries one.
func Decode(encoding Encoding, str string) ([]byte, error) {
	if !encoding.valid() {
		return nil, ErrInvalidEncoding
	}
	if len(str) == 0 {
		return nil, nil
	}

	if !strings.HasPrefix(str, hexPrefix) {
		return nil, ErrMissingHexPrefix
	}
	checked, err := hex.DecodeString(strings.TrimPrefix(str, hexPrefix))
	if err != nil {
		return nil, err
	}
	if encoding == HexNC {
		return checked, nil
	}
	if len(checked) < checksumLen {
		return nil, ErrMissingChecksum
	}

	payload := checked[:len(checked)-checksumLen]
	if !strings.EqualFold(
		hex.EncodeToString(checked[len(checked)-checksumLen:]),
		hex.EncodeToString(checksum(payload)),
	) {
		return nil, ErrBadChecksum
	}
	return payload, nil
}

// checksum returns the last 4 bytes of the payload's SHA-256 digest.
func checksum(bytes []byte) []byte {
	h := sha256.Sum256(bytes)
	return h[sha256.Size-checksumLen:]
}
