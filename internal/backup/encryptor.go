package backup

import "io"

// Encryptor seals artifacts at rest. Sealing uses the public key only, so
// scheduled backups never need user intervention. Unsealing requires a
// passphrase to unlock the private key, producing a DecryptionContext for
// the session.
type Encryptor interface {
	// Setup performs one-time key generation: stores the public key in
	// plaintext and the private key encrypted with the passphrase.
	Setup(passphrase string) error

	// Seal encrypts data read from r and writes ciphertext to w.
	Seal(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext valid for the rest of the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the key files exist at their
	// configured paths.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the
// duration of a restore or verification session. The unlocked key is never
// written to disk.
type DecryptionContext interface {
	// Unseal decrypts data read from r and writes plaintext to w.
	Unseal(r io.Reader, w io.Writer) error
}
