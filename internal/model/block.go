package model

// Block is the scalar view of a block used by the resolver.
type Block struct {
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}
