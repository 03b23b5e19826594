// Copyright 2017-2018 The nox developers

package types

// BlockTemplate houses a block that has yet to be solved along with
// additional details about the fees and the number of signature operations
// for each transaction and certificate in the block.
type BlockTemplate struct {
	// Block is a block that is ready to be solved by miners. Thus, it is
	// completely valid with the exception of satisfying the proof-of-work
	// requirement.
	Block *Block

	// TxFees contains the amount of fees each transaction in the generated
	// template pays in base units. Since the first transaction is the
	// coinbase, the first entry will be -1.
	TxFees []int64

	// TxSigOpCounts contains the number of signature operations each
	// transaction in the generated template performs.
	TxSigOpCounts []int64

	// CertFees and CertSigOpCounts hold the same data for the certificate
	// list, positionally.
	CertFees        []int64
	CertSigOpCounts []int64

	// Height is the height at which the block template connects to the
	// chain.
	Height uint64

	// ValidPayAddress indicates whether or not the template coinbase pays
	// to an address or is redeemable by anyone. See the documentation on
	// NewBlockTemplate for details on which this can be useful to generate
	// templates without a coinbase payment address.
	ValidPayAddress bool
}
