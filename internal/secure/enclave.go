package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// SecureBuffer holds a secret sealed in a memguard enclave.
// The zero-length secret is represented by a nil enclave.
type SecureBuffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	size    int
	// destroyed allows idempotent Destroy() and blocks use after destroy
	destroyed bool
}

// NewSecureBuffer seals data into an enclave. memguard wipes data in the process.
func NewSecureBuffer(data []byte) *SecureBuffer {
	buf := &SecureBuffer{size: len(data)}
	if len(data) > 0 {
		buf.enclave = memguard.NewEnclave(data)
	}
	return buf
}

// NewSecureString seals a string value.
func NewSecureString(value string) *SecureBuffer {
	return NewSecureBuffer([]byte(value))
}

// Open decrypts the enclave into a locked buffer. The caller must Destroy it.
// An empty or destroyed buffer opens to an empty locked buffer.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.enclave == nil {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}
	return s.enclave.Open()
}

// Reveal returns a plaintext copy of the secret.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()

	return string(locked.Bytes()), nil
}

// Len returns the length of the sealed secret, 0 after Destroy.
func (s *SecureBuffer) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return 0
	}
	return s.size
}

// IsEmpty reports whether there is no secret to reveal.
func (s *SecureBuffer) IsEmpty() bool {
	return s.Len() == 0
}

// Destroy drops the enclave. Safe to call more than once.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.enclave = nil
	s.destroyed = true
}

// String never reveals the secret.
func (s *SecureBuffer) String() string {
	return "[REDACTED]"
}
