package json

// TemplateRequest is a request object as defined in BIP22
// (https://en.bitcoin.it/wiki/BIP_0022), it is optionally provided as an
// argument to the getBlockTemplate RPC.
type TemplateRequest struct {
	Mode         string   `json:"mode,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`

	// Optional long polling.
	LongPollID string `json:"longpollid,omitempty"`

	// Optional template tweaking.  SigOpLimit and SizeLimit can be int64
	// or bool.
	SigOpLimit interface{} `json:"sigoplimit,omitempty"`
	SizeLimit  interface{} `json:"sizelimit,omitempty"`
	MaxVersion uint32      `json:"maxversion,omitempty"`

	// Basic pool extension from BIP 0023.
	Target string `json:"target,omitempty"`

	// Block proposal from BIP 0023.  Data is only provided when Mode is
	// "proposal".
	Data   string `json:"data,omitempty"`
	WorkID string `json:"workid,omitempty"`
}

// GetBlockTemplateResultTx models the transactions field of the
// getblocktemplate command.
type GetBlockTemplateResultTx struct {
	Data    string  `json:"data"`
	Hash    string  `json:"hash"`
	Depends []int64 `json:"depends"`
	Fee     int64   `json:"fee"`
	SigOps  int64   `json:"sigops"`
}

// GetBlockTemplateResultCert models the certificates field of the
// getblocktemplate command.
type GetBlockTemplateResultCert struct {
	Data    string  `json:"data"`
	Hash    string  `json:"hash"`
	Depends []int64 `json:"depends"`
	Fee     int64   `json:"fee"`
	SigOps  int64   `json:"sigops"`
}

// GetBlockTemplateResultAux models the coinbaseaux field of the
// getblocktemplate command.
type GetBlockTemplateResultAux struct {
	Flags string `json:"flags"`
}

// GetBlockTemplateResult models the data returned from the getblocktemplate
// command.
type GetBlockTemplateResult struct {
	// Base fields from BIP 0022.  CoinbaseAux is optional.  One of
	// CoinbaseTxn or CoinbaseValue must be specified, but not both.
	Bits            string                       `json:"bits"`
	CurTime         int64                        `json:"curtime"`
	Height          int64                        `json:"height"`
	PreviousHash    string                       `json:"previousblockhash"`
	MerkleTree      string                       `json:"merkleTree"`
	ScTxsCommitment string                       `json:"scTxsCommitment"`
	SigOpLimit      int64                        `json:"sigoplimit,omitempty"`
	SizeLimit       int64                        `json:"sizelimit,omitempty"`
	Transactions []GetBlockTemplateResultTx `json:"transactions"`

	// Certificates is only present when sidechain support is active for
	// the template height.
	Certificates *[]GetBlockTemplateResultCert `json:"certificates,omitempty"`
	Version         uint32                       `json:"version"`
	CoinbaseAux     *GetBlockTemplateResultAux   `json:"coinbaseaux,omitempty"`
	CoinbaseTxn     *GetBlockTemplateResultTx    `json:"coinbasetxn,omitempty"`
	CoinbaseValue   *uint64                      `json:"coinbasevalue,omitempty"`
	WorkID          string                       `json:"workid,omitempty"`

	// Optional long polling from BIP 0022.
	LongPollID  string `json:"longpollid,omitempty"`
	LongPollURI string `json:"longpolluri,omitempty"`
	SubmitOld   *bool  `json:"submitold,omitempty"`

	// Basic pool extension from BIP 0023.
	Target  string `json:"target,omitempty"`
	Expires int64  `json:"expires,omitempty"`

	// Mutations from BIP 0023.
	MaxTime    int64    `json:"maxtime,omitempty"`
	MinTime    int64    `json:"mintime,omitempty"`
	Mutable    []string `json:"mutable,omitempty"`
	NonceRange string   `json:"noncerange,omitempty"`

	// Block proposal from BIP 0023.
	Capabilities []string `json:"capabilities,omitempty"`
	RejectReason string   `json:"reject-reason,omitempty"`
}

// GetBlockMerkleRootsResult models the data returned from the
// getBlockMerkleRoots command: the roots a miner needs to assemble a header
// over an externally chosen transaction and certificate set.
type GetBlockMerkleRootsResult struct {
	MerkleTree      string `json:"merkleTree"`
	ScTxsCommitment string `json:"scTxsCommitment"`
}
