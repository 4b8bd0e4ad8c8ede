package main

import (
	"errors"

	"github.com/sigurn/crc8"
)

const (
	storeSlots = 32             // host addresses 0-31
	storeSum   = storeSlots     // image offset of the checksum byte
	storeSize  = storeSlots + 1 // image length
)

// ErrBadChecksum is reported when a store image fails verification.
var ErrBadChecksum = errors.New("store: checksum mismatch")

var storeTable = crc8.MakeTable(crc8.CRC8)

// Store is the controller's non-volatile byte store. Address 0 is never
// stored (the controller aliases it to the configuration byte); 1 to 31 hold
// data.
type Store interface {
	Load(addr byte) byte
	Save(addr, v byte)
}

// image is the layout shared by every Store: the 32 host slots followed by a
// CRC-8 of them, which the host cannot address.
type image []byte

func (img image) load(addr byte) byte { return img[addr%storeSlots] }

// save writes v at addr and refreshes the checksum. It reports false for
// addresses that cannot be written.
func (img image) save(addr, v byte) bool {
	addr %= storeSlots
	if addr == 0 {
		return false
	}
	img[addr] = v
	img[storeSum] = img.checksum()
	return true
}

func (img image) checksum() byte { return crc8.Checksum(img[:storeSum], storeTable) }

func (img image) verify() error {
	if img[storeSum] != img.checksum() {
		return ErrBadChecksum
	}
	return nil
}

// format zeroes the image and writes a valid checksum.
func (img image) format() {
	clear(img)
	img[storeSum] = img.checksum()
}

// memStore is a Store that forgets everything on exit.
type memStore struct {
	img [storeSize]byte
}

func newMemStore() *memStore {
	s := new(memStore)
	image(s.img[:]).format()
	return s
}

func (s *memStore) Load(addr byte) byte { return image(s.img[:]).load(addr) }
func (s *memStore) Save(addr, v byte)   { image(s.img[:]).save(addr, v) }
