// Package secure keeps cached secret payloads encrypted while they sit in
// process memory.
//
// It wraps the memguard library. A Sealed value holds its payload in a
// memguard enclave (XSalsa20Poly1305, key kept in guarded memory). The
// plaintext only exists inside a locked buffer for the duration of Reveal,
// which hands the caller an ordinary copy.
//
// # Usage
//
//	s := secure.Seal([]byte("my-secret"))
//	defer s.Destroy()
//
//	plaintext, err := s.Reveal()
//	if err != nil {
//	    // the value was destroyed
//	}
//
// # Platform Behavior
//
// Opening an enclave locks memory. On Linux this requires RLIMIT_MEMLOCK to
// allow at least a few pages.
//
// It does NOT protect against:
//
//   - Attackers with root access to the running process
//   - Copies returned by Reveal, which are ordinary heap memory
//   - Hardware-level attacks (cold boot, DMA)
package secure
