/*
Package recordaead seals and opens record bodies for one direction of one
key epoch.

A Context is built once, when the key schedule installs an epoch, from the
cipher suite profile and the raw key material for that direction. The
profile and protocol version fix the nonce policy at construction time:

	SequenceXor     nonce = fixedIV XOR zero-padded 8-byte big-endian sequence
	                (1.3-generation records, and ChaCha20-Poly1305 always)
	ExplicitPrefix  nonce = fixedIV || 8 explicit bytes carried in the record
	                (1.2-generation AES-GCM)
	RandomPrefixShim
	                nonce = random per-record IV carried in the record
	                (legacy CBC suites driven through the cbcaead shim)

Additional data is either the literal record header (1.3 generation) or the
synthesized pseudo-header

	sequence_with_epoch:u64-BE | type:u8 | version:u16 | [plaintext_length:u16]

with the length omitted for the CBC shim, whose expansion is not fixed.

Every failure during Open that touches key material is reported as
ErrDecrypt and nothing else; only length violations observable before any
cryptography runs get the distinct ErrMalformedRecord. Callers drop the
record and carry on; distinguishing failure causes on the wire would hand
an attacker a decryption oracle.
*/
package recordaead
