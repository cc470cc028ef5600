package params

const (
	// SecParam is the bit strength of commitments and identifiers.
	SecParam = 256
	SecBytes = SecParam / 8

	// StatParam is the statistical security of the cross-group proof,
	// i.e. the number of parallel binary-challenge repetitions.
	StatParam = 128

	// CrossGroupSecretBits bounds secrets that must be valid scalars on
	// both the arbitrating and the accordant group. The edwards25519
	// order is slightly above 2²⁵², and proof responses carry the secret
	// plus a nonce of CrossGroupNonceBits, so the bound keeps responses
	// below both group orders without modular reduction.
	CrossGroupSecretBits  = 248
	CrossGroupSecretBytes = CrossGroupSecretBits / 8
	CrossGroupNonceBits   = 250

	// CrossGroupResponseBytes is the fixed width of a proof response.
	CrossGroupResponseBytes = 32
)
