package badger

// Key prefixes for the two keyspaces. The document and vector stores can
// share a single Backend because their keys never collide.
const (
	documentPrefix = "doc"
	vectorPrefix   = "vec"
)

// makeDocumentKey generates the document-store key for a fingerprint.
func makeDocumentKey(fingerprint string) []byte {
	return []byte(documentPrefix + ":" + fingerprint)
}

// makeVectorKey generates the vector-store key for a fingerprint.
func makeVectorKey(fingerprint string) []byte {
	return []byte(vectorPrefix + ":" + fingerprint)
}
