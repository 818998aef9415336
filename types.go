package compressio

import (
	"fmt"
	"strings"
)

// Type is the on-disk compression identifier stored in an extent's
// descriptor. These values are persisted; never renumber them.
type Type uint8

const (
	TypeNone   Type = 0
	TypeLZ4Old Type = 1 // legacy LZ4, decoded like TypeLZ4 and never written
	TypeGzip   Type = 2
	TypeLZ4    Type = 3
	TypeZstd   Type = 4
	TypeSnappy Type = 5
	TypeBrotli Type = 6

	typeNR = 7
)

var typeNames = [typeNR]string{
	TypeNone:   "none",
	TypeLZ4Old: "lz4_old",
	TypeGzip:   "gzip",
	TypeLZ4:    "lz4",
	TypeZstd:   "zstd",
	TypeSnappy: "snappy",
	TypeBrotli: "brotli",
}

// String returns the human-readable name of a compression type.
func (t Type) String() string {
	if t < typeNR {
		return typeNames[t]
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// Valid reports whether t is a known on-disk identifier.
func (t Type) Valid() bool {
	return t < typeNR
}

// normalize maps legacy identifiers to the identifier new data is written with.
func (t Type) normalize() Type {
	if t == TypeLZ4Old {
		return TypeLZ4
	}
	return t
}

// ParseType parses a compression type from its string representation.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == strings.ToLower(name) {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
}

// Opt is a compression option as selected by the user or mount options.
type Opt uint8

const (
	OptNone Opt = iota
	OptLZ4
	OptGzip
	OptZstd
	OptSnappy
	OptBrotli

	optNR
)

var optTypes = [optNR]Type{
	OptNone:   TypeNone,
	OptLZ4:    TypeLZ4,
	OptGzip:   TypeGzip,
	OptZstd:   TypeZstd,
	OptSnappy: TypeSnappy,
	OptBrotli: TypeBrotli,
}

// Type returns the on-disk type data compressed with o is written as.
func (o Opt) Type() Type {
	if o >= optNR {
		panic(fmt.Sprintf("compressio: invalid compression option %d", uint8(o)))
	}
	return optTypes[o]
}

// String returns the option name, which matches the name of its type.
func (o Opt) String() string {
	if o >= optNR {
		return fmt.Sprintf("unknown(%d)", uint8(o))
	}
	return optTypes[o].String()
}

// Feature returns the superblock feature bit that must be set before data
// is written with o. OptNone has no feature; ok is false for it.
func (o Opt) Feature() (f Feature, ok bool) {
	switch o {
	case OptLZ4:
		return FeatureLZ4, true
	case OptGzip:
		return FeatureGzip, true
	case OptZstd:
		return FeatureZstd, true
	case OptSnappy:
		return FeatureSnappy, true
	case OptBrotli:
		return FeatureBrotli, true
	case OptNone:
		return 0, false
	default:
		panic(fmt.Sprintf("compressio: invalid compression option %d", uint8(o)))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Opt) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Opt) UnmarshalText(text []byte) error {
	opt, err := ParseOpt(string(text))
	if err != nil {
		return err
	}
	*o = opt
	return nil
}

// ParseOpt parses a compression option name. The empty string means none.
func ParseOpt(name string) (Opt, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return OptNone, nil
	}
	for o := OptNone; o < optNR; o++ {
		if o.String() == name {
			return o, nil
		}
	}
	return OptNone, fmt.Errorf("%w: %q", ErrUnsupportedType, name)
}

// Feature is a bit number in the superblock's feature word.
type Feature uint

const (
	FeatureLZ4 Feature = iota
	FeatureGzip
	FeatureZstd
	FeatureSnappy
	FeatureBrotli
)

// Mask returns the feature word with only f set.
func (f Feature) Mask() uint64 {
	return 1 << f
}

// Direction selects which side of an I/O a buffer serves.
type Direction int

const (
	// Read buffers are filled from a region before the codec runs.
	Read Direction = iota
	// Write buffers are produced by the codec and copied out by the caller.
	Write
)

func (d Direction) String() string {
	switch d {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

func (f Feature) String() string {
	if int(f) < len(featureTypes) {
		return featureTypes[f].String()
	}
	return fmt.Sprintf("unknown(%d)", uint(f))
}

// Features returns the compression features set in a feature word.
func Features(word uint64) []Feature {
	var fs []Feature
	for f := range Feature(len(featureTypes)) {
		if word&f.Mask() != 0 {
			fs = append(fs, f)
		}
	}
	return fs
}
