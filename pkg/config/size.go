package config

import (
	"github.com/dustin/go-humanize"
)

// ByteSize is a uint64 value that supports unmarshalling from both
// human-friendly string representations (e.g. "64MB") and numeric
// representations. It can be cast to a uint64 value, where it represents a
// byte count.
type ByteSize uint64

// UnmarshalText implements the text unmarshalling interface used when loading
// from YAML files.
func (s *ByteSize) UnmarshalText(textBytes []byte) error {
	value, err := humanize.ParseBytes(string(textBytes))
	if err != nil {
		return err
	}
	*s = ByteSize(value)
	return nil
}

// String renders the byte size in human-friendly form.
func (s ByteSize) String() string {
	return humanize.Bytes(uint64(s))
}
