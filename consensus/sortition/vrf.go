package sortition

import (
	"crypto/ecdsa"

	"github.com/vechain/go-ecvrf"
)

// vrf is the ECVRF construction CodeChain uses to produce and check seed
// proofs: secp256k1 keys (the same curve EngineSigner authors with) hashed
// with SHA-256 under the "try-and-increment" (Tai) encode-to-curve method.
var vrf = ecvrf.NewSecp256k1Sha256Tai()

// Prove produces a VRF output (beta) and its proof (pi) over alpha, signed
// by sk. The output feeds Draw's vrfOutput argument; the proof lets every
// other validator verify the output without trusting the prover.
func Prove(sk *ecdsa.PrivateKey, alpha []byte) (beta, pi []byte, err error) {
	return vrf.Prove(sk, alpha)
}

// Verify checks that pi is a valid VRF proof by pk over alpha and, if so,
// returns the VRF output it attests to.
func Verify(pk *ecdsa.PublicKey, alpha, pi []byte) (beta []byte, err error) {
	return vrf.Verify(pk, alpha, pi)
}
