package main

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/sigurn/crc8"
)

func TestMemStoreKeepsChecksum(t *testing.T) {
	is := is.New(t)
	s := newMemStore()
	img := image(s.img[:])
	is.NoErr(img.verify())

	for addr := byte(1); addr < storeSlots; addr++ {
		s.Save(addr, addr*7)
		is.NoErr(img.verify())
	}
	for addr := byte(1); addr < storeSlots; addr++ {
		is.Equal(s.Load(addr), addr*7)
	}
	is.Equal(s.img[storeSum], crc8.Checksum(s.img[:storeSlots], storeTable))
}

func TestStoreLastSlotIsData(t *testing.T) {
	is := is.New(t)
	img := make(image, storeSize)
	img.format()

	is.True(img.save(31, 0x5a))
	is.Equal(img.load(31), byte(0x5a))
	is.NoErr(img.verify()) // checksum kept outside the slots
}

func TestStoreRefusesAddressZero(t *testing.T) {
	is := is.New(t)
	img := make(image, storeSize)
	img.format()
	sum := img[storeSum]

	is.True(!img.save(0, 0x12))
	is.True(!img.save(storeSlots, 0x12)) // addresses wrap
	is.Equal(img[0], byte(0))
	is.Equal(img[storeSum], sum)
	is.True(img.save(storeSlots+5, 0x12))
	is.Equal(img.load(5), byte(0x12))
}

func TestImageVerifyDetectsCorruption(t *testing.T) {
	is := is.New(t)
	img := make(image, storeSize)
	img.format()
	img.save(3, 0x42)

	img[3] ^= 0x01
	is.True(errors.Is(img.verify(), ErrBadChecksum))

	img.format()
	is.NoErr(img.verify())
	is.Equal(img.load(3), byte(0))
}
