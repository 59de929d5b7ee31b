// Package signer implements EngineSigner (spec §4.2): the node's authoring
// identity and its ability to produce Schnorr signatures over consensus
// messages via an unlocked keystore account. It is grounded on the
// teacher's accounts/keystore Schnorr key material
// (newKeyFromSchnorrECDSA/schnorrPubkeyFromECDSA in accounts/keystore/key.go)
// but narrowed to the single signing operation the consensus core needs;
// full encrypted-keystore file management is the external keystore
// collaborator spec §1 scopes out.
package signer

import (
	"crypto/ecdsa"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/validator"
)

// Signer holds (address, public) and a handle to an unlocked account (spec
// §4.2). A Signer may be unset (nil pointer held by the engine); operations
// that require signing then fail with consensus.ErrSignerNotSet.
type Signer struct {
	mu      sync.RWMutex
	address common.Address
	public  validator.PublicKey
	priv    *btcec.PrivateKey // nil once Lock is called
}

// FromECDSA builds a Signer from a secp256k1 private key, deriving its
// Schnorr (BIP340 x-only) public key and CodeChain address exactly as the
// teacher's newSchnorrKeyWithID does.
func FromECDSA(priv *ecdsa.PrivateKey) *Signer {
	btcPriv, _ := btcec.PrivKeyFromBytes(priv.D.Bytes())
	pub := schnorr.SerializePubKey(btcPriv.PubKey())
	return &Signer{
		address: validator.AddressOf(pub),
		public:  pub,
		priv:    btcPriv,
	}
}

// Address returns the signer's derived address.
func (s *Signer) Address() common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// PublicKey returns the signer's Schnorr public key.
func (s *Signer) PublicKey() validator.PublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.public
}

// Lock drops the Signer's reference to its private key, simulating the account becoming
// locked in the keystore. Subsequent Sign calls fail with
// consensus.ErrNotUnlocked.
func (s *Signer) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priv = nil
}

// Sign produces a Schnorr signature over messageHash (spec §4.2). It fails
// with consensus.ErrSignerNotSet on a nil Signer, and with
// consensus.ErrNotUnlocked if the account has become locked since the
// Signer was constructed.
func (s *Signer) Sign(messageHash common.Hash) ([]byte, error) {
	if s == nil {
		return nil, consensus.ErrSignerNotSet
	}
	s.mu.RLock()
	priv := s.priv
	s.mu.RUnlock()
	if priv == nil {
		return nil, consensus.ErrNotUnlocked
	}
	sig, err := schnorr.Sign(priv, messageHash[:])
	if err != nil {
		return nil, err
	}
	return sig.Serialize(), nil
}

// Verify checks that sig is a valid Schnorr signature over messageHash by
// pub. EpochVerifier uses it to authenticate each precommit in a seal.
func Verify(pub validator.PublicKey, messageHash common.Hash, sig []byte) bool {
	parsedPub, err := schnorr.ParsePubKey(pub)
	if err != nil {
		return false
	}
	parsedSig, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return parsedSig.Verify(messageHash[:], parsedPub)
}
