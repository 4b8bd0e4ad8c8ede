//go:build !unix

package main

import (
	"errors"
	"log/slog"
)

type fileStore struct{ memStore }

func openFileStore(path string, log *slog.Logger) (*fileStore, error) {
	return nil, errors.New("open store: image files need a unix host")
}

func (s *fileStore) Close() error { return nil }
