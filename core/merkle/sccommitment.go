// Copyright 2017-2018 The nox developers

package merkle

import (
	"sort"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/sidechain"
	"github.com/zenoproject/zeno/core/types"
	"github.com/zenoproject/zeno/crypto/cctp"
)

// RegistrationView resolves sidechain registrations for commitment building.
// The chain's utxo viewpoint implements it.
type RegistrationView interface {
	SidechainRegistration(scID *hash.Hash) *sidechain.Registration
}

// BuildScTxsCommitment computes the header commitment to the sidechain
// content of a block. Certificates are grouped per sidechain, each group is
// folded into a per-sidechain subtree whose leaves are the certificate hashes
// lifted into the scalar field, and the subtree roots are folded into the
// final commitment in ascending sidechain id order. Certificates referencing
// an unregistered sidechain contribute nothing. A block with no eligible
// certificates commits to the Null element.
func BuildScTxsCommitment(certs []*types.Certificate, view RegistrationView) (cctp.FieldElement, error) {
	bySc := make(map[hash.Hash][]cctp.FieldElement)
	for _, cert := range certs {
		scID := cert.ScID
		if view.SidechainRegistration(&scID) == nil {
			continue
		}
		certHash := cert.CertHash()
		bySc[scID] = append(bySc[scID], cctp.ReduceToFieldElement(certHash[:]))
	}
	if len(bySc) == 0 {
		return cctp.FieldElement{}, nil
	}

	scIDs := make([]hash.Hash, 0, len(bySc))
	for scID := range bySc {
		scIDs = append(scIDs, scID)
	}
	sort.Slice(scIDs, func(i, j int) bool {
		a, b := scIDs[i], scIDs[j]
		for k := 0; k < hash.HashSize; k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	scLeaves := make([]cctp.FieldElement, 0, len(scIDs))
	for _, scID := range scIDs {
		subRoot, err := cctp.MerkleRootOfFieldElements(bySc[scID])
		if err != nil {
			return cctp.FieldElement{}, err
		}
		// Bind the subtree to its sidechain so two sidechains with
		// identical certificate sets commit differently.
		leaf, err := cctp.HashFieldElements(cctp.ReduceToFieldElement(scID[:]), subRoot)
		if err != nil {
			return cctp.FieldElement{}, err
		}
		scLeaves = append(scLeaves, leaf)
	}
	return cctp.MerkleRootOfFieldElements(scLeaves)
}

// ScTxsCommitmentHash renders a commitment as the 32 byte header field. The
// Null element renders as the zero hash.
func ScTxsCommitmentHash(fe cctp.FieldElement) hash.Hash {
	var h hash.Hash
	if fe.IsNull() {
		return h
	}
	copy(h[:], fe.Bytes())
	return h
}
