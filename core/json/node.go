package json

// InfoNodeResult models the data returned by the node server getNodeInfo
// command.
type InfoNodeResult struct {
	ID              string `json:"ID"`
	Version         int32  `json:"version"`
	BuildVersion    string `json:"buildversion"`
	ProtocolVersion int32  `json:"protocolversion"`
	Blocks          uint64 `json:"blocks"`
	BestBlockHash   string `json:"bestblockhash"`
	MedianTime      int64  `json:"mediantime"`
	Difficulty      uint32 `json:"difficulty"`
	TestNet         bool   `json:"testnet"`
	Network         string `json:"network"`
	SidechainActive bool   `json:"sidechainactive"`
	Errors          string `json:"errors"`
}
