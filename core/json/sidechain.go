package json

// RegisterSidechainCmd models the parameters of the registerSidechain
// command.  BitVectorConfigs entries are [sizeBits, maxCompressedBytes]
// pairs.
type RegisterSidechainCmd struct {
	ScID                string  `json:"scid"`
	CreationHeight      uint64  `json:"creationheight"`
	VerificationKey     string  `json:"vkey"`
	FieldElementConfigs []int32 `json:"fieldelementconfigs"`
	BitVectorConfigs    [][]int32 `json:"bitvectorconfigs"`
}
