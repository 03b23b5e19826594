package sidechain

import (
	"fmt"

	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/crypto/cctp"
)

// Registration is the sidechain-registration record the node keeps for every
// declared sidechain. Certificates never carry their field configs on the
// wire; validation always resolves them from this record.
type Registration struct {
	ID             hash.Hash
	CreationHeight uint64

	VerificationKey []byte

	FieldElementConfigs []FieldElementCertificateFieldConfig
	BitVectorConfigs    []BitVectorCertificateFieldConfig
}

// IsValid checks the registration-time constraints of the record itself.
func (r *Registration) IsValid() bool {
	if len(r.VerificationKey) != cctp.VKeyByteSize {
		return false
	}
	for _, cfg := range r.FieldElementConfigs {
		if !cfg.IsValid() {
			return false
		}
	}
	for _, cfg := range r.BitVectorConfigs {
		if !cfg.IsValid() {
			return false
		}
	}
	return true
}

// ValidateCustomFields checks a certificate's custom field slots against the
// sidechain's registered configs: the slot counts must match the registration
// exactly and every slot must canonicalize under its config.
func (r *Registration) ValidateCustomFields(feFields []*FieldElementCertificateField,
	bvFields []*BitVectorCertificateField) error {

	if len(feFields) != len(r.FieldElementConfigs) {
		return fmt.Errorf("sidechain %s expects %d field element slots, certificate has %d",
			r.ID, len(r.FieldElementConfigs), len(feFields))
	}
	if len(bvFields) != len(r.BitVectorConfigs) {
		return fmt.Errorf("sidechain %s expects %d bit vector slots, certificate has %d",
			r.ID, len(r.BitVectorConfigs), len(bvFields))
	}
	for i, f := range feFields {
		if !f.IsValid(r.FieldElementConfigs[i]) {
			return fmt.Errorf("field element slot %d does not validate against the registered config", i)
		}
	}
	for i, f := range bvFields {
		if !f.IsValid(r.BitVectorConfigs[i]) {
			return fmt.Errorf("bit vector slot %d does not validate against the registered config", i)
		}
	}
	return nil
}
