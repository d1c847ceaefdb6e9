// Package secure keeps the fetched credential encrypted in memory while the
// process idles.
//
// The value is sealed into a memguard enclave (XSalsa20Poly1305, mlocked key
// where the platform allows it) and only decrypted on demand:
//
//	buf := secure.NewSecureString(value)
//	defer buf.Destroy()
//
//	plain, err := buf.Reveal()
//
// SecureBuffer implements fmt.Stringer and always prints [REDACTED], so
// accidentally logging it does not leak the credential.
//
// NewSecureString copies the string into the enclave; the caller's string is
// immutable and stays on the Go heap until collected, so callers should drop
// their own reference and read the value back through Reveal.
//
// Call memguard.Purge before the process exits to wipe every enclave key.
package secure
