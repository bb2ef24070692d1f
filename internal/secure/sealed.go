package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned by Reveal after Destroy.
var ErrDestroyed = errors.New("sealed value destroyed")

// Sealed holds a secret payload encrypted in a memguard enclave.
type Sealed struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	size      int
	destroyed bool
}

// Seal copies data into a new enclave. data itself is left untouched; the
// caller is free to wipe it.
func Seal(data []byte) *Sealed {
	s := &Sealed{size: len(data)}
	if len(data) == 0 {
		// memguard refuses empty enclaves
		return s
	}

	// NewEnclave wipes its argument, so hand it a copy.
	buf := make([]byte, len(data))
	copy(buf, data)
	s.enclave = memguard.NewEnclave(buf)
	return s
}

// Len is the plaintext length.
func (s *Sealed) Len() int {
	return s.size
}

// Reveal decrypts the payload and returns a copy of the plaintext.
func (s *Sealed) Reveal() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.enclave == nil {
		return []byte{}, nil
	}

	locked, err := s.enclave.Open()
	if err != nil {
		return nil, err
	}
	defer locked.Destroy()

	out := make([]byte, locked.Size())
	copy(out, locked.Bytes())
	return out, nil
}

// Destroy drops the enclave. Further Reveal calls fail with ErrDestroyed.
// Destroy is idempotent.
func (s *Sealed) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}

// Purge wipes all memguard state. Enclaves sealed before the call can no
// longer be revealed. Call it once when the process is done with secrets.
func Purge() {
	memguard.Purge()
}
