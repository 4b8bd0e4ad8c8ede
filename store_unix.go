//go:build unix

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// fileStore is a Store backed by a memory mapped image file, so every Save
// lands on disk without a separate write path.
type fileStore struct {
	f   *os.File
	img image
	log *slog.Logger
}

// openFileStore maps the image at path, creating it if needed. An image that
// fails its checksum is logged and reformatted.
func openFileStore(path string, log *slog.Logger) (*fileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	fresh := fi.Size() == 0
	if fi.Size() != storeSize {
		if err := f.Truncate(storeSize); err != nil {
			f.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, storeSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map store %s: %w", path, err)
	}

	s := &fileStore{f: f, img: image(mem), log: log}
	switch err := s.img.verify(); {
	case fresh:
		s.img.format()
	case errors.Is(err, ErrBadChecksum):
		log.Warn("store: reformatting image", "path", path, "err", err)
		s.img.format()
	}
	if err := s.sync(); err != nil {
		s.Close()
		return nil, fmt.Errorf("sync store %s: %w", path, err)
	}
	return s, nil
}

func (s *fileStore) Load(addr byte) byte { return s.img.load(addr) }

func (s *fileStore) Save(addr, v byte) {
	if !s.img.save(addr, v) {
		return
	}
	if err := s.sync(); err != nil {
		s.log.Error("store: sync failed", "addr", addr, "err", err)
	}
}

func (s *fileStore) sync() error { return unix.Msync(s.img, unix.MS_SYNC) }

func (s *fileStore) Close() error {
	err := unix.Munmap(s.img)
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
