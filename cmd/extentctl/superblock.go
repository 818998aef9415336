package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// superblockFile is a superblock persisted as a small CBOR file.
type superblockFile struct {
	path string

	mu    sync.Mutex
	state superblockState
}

type superblockState struct {
	EncodedExtentMax uint32 `cbor:"encoded_extent_max"`
	Features         uint64 `cbor:"features"`
}

var sbEncMode cbor.EncMode

func init() {
	var err error
	sbEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("extentctl: CBOR encoder initialization failed: " + err.Error())
	}
}

// openSuperblock loads path, creating it with encodedExtentMax if it does
// not exist.
func openSuperblock(path string, encodedExtentMax uint32) (*superblockFile, error) {
	sb := &superblockFile{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sb.state.EncodedExtentMax = encodedExtentMax
		return sb, sb.WriteSuper()
	case err != nil:
		return nil, err
	}

	if err := cbor.Unmarshal(data, &sb.state); err != nil {
		return nil, err
	}
	return sb, nil
}

func (sb *superblockFile) EncodedExtentMax() uint32 {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.state.EncodedExtentMax
}

func (sb *superblockFile) Features() uint64 {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.state.Features
}

func (sb *superblockFile) SetFeatures(features uint64) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.state.Features = features
}

// WriteSuper replaces the file through a rename so a crash leaves either
// the old or the new superblock.
func (sb *superblockFile) WriteSuper() error {
	sb.mu.Lock()
	data, err := sbEncMode.Marshal(sb.state)
	sb.mu.Unlock()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(sb.path), ".super-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), sb.path)
}
