package store

import (
	"bytes"
	"fmt"
	"strings"
)

// keySeparator joins partition and sort key in engines with a flat keyspace.
// It sorts below every printable byte, so one partition's items stay
// contiguous and ordered by sort key.
const keySeparator = 0x00

// EncodeKey flattens a key for engines with a single ordered keyspace.
func EncodeKey(k Key) ([]byte, error) {
	if k.PK == "" || k.SK == "" {
		return nil, fmt.Errorf("key %q requires both partition and sort key", k)
	}
	if strings.IndexByte(k.PK, keySeparator) >= 0 || strings.IndexByte(k.SK, keySeparator) >= 0 {
		return nil, fmt.Errorf("key %q contains a NUL byte", k)
	}
	return flatKey(k), nil
}

// DecodeKey splits a flattened key.
func DecodeKey(raw []byte) (Key, error) {
	pk, sk, ok := bytes.Cut(raw, []byte{keySeparator})
	if !ok {
		return Key{}, fmt.Errorf("stored key %q has no separator", raw)
	}
	return Key{PK: string(pk), SK: string(sk)}, nil
}

// RangePrefix is the flattened prefix shared by every key of pk whose sort
// key begins with prefix.
func RangePrefix(pk, prefix string) []byte {
	buf := make([]byte, 0, len(pk)+1+len(prefix))
	buf = append(buf, pk...)
	buf = append(buf, keySeparator)
	buf = append(buf, prefix...)
	return buf
}

// RangeEnd is a seek target above every key under RangePrefix. 0xFF never
// occurs in UTF-8 text.
func RangeEnd(pk, prefix string) []byte {
	return append(RangePrefix(pk, prefix), 0xFF)
}

func flatKey(k Key) []byte {
	buf := make([]byte, 0, len(k.PK)+1+len(k.SK))
	buf = append(buf, k.PK...)
	buf = append(buf, keySeparator)
	buf = append(buf, k.SK...)
	return buf
}
