package domain

// Hasher fingerprints data so user messages can be correlated in logs
// without being written out.
type Hasher interface {
	Hash(data []byte) string
}
