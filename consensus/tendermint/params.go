package tendermint

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/codechain-io/codechain/consensus"
	"github.com/codechain-io/codechain/consensus/validator"
)

// defaultTimeout is every timeout's default when the chain scheme omits it
// (spec §6.5).
const defaultTimeout = 1000 * time.Millisecond

// Params are the Tendermint engine parameters decoded from the chain
// scheme JSON (spec §6.5), mirroring original_source's
// json/src/spec/tendermint.rs TendermintParams.
type Params struct {
	Validators []validator.PublicKey

	TimeoutPropose      time.Duration
	TimeoutProposeDelta time.Duration
	TimeoutPrevote      time.Duration
	TimeoutPrevoteDelta time.Duration
	TimeoutPrecommit      time.Duration
	TimeoutPrecommitDelta time.Duration
	TimeoutCommit         time.Duration

	BlockReward   uint64
	GenesisStakes map[common.Address]uint64
}

// schemeJSON is the on-the-wire chain scheme shape; all timeout fields are
// optional milliseconds, matching spec §6.5's table exactly.
type schemeJSON struct {
	Validators []string `json:"validators"`

	TimeoutPropose        *uint64 `json:"timeoutPropose"`
	TimeoutProposeDelta    *uint64 `json:"timeoutProposeDelta"`
	TimeoutPrevote        *uint64 `json:"timeoutPrevote"`
	TimeoutPrevoteDelta    *uint64 `json:"timeoutPrevoteDelta"`
	TimeoutPrecommit      *uint64 `json:"timeoutPrecommit"`
	TimeoutPrecommitDelta  *uint64 `json:"timeoutPrecommitDelta"`
	TimeoutCommit         *uint64 `json:"timeoutCommit"`

	BlockReward   *uint64           `json:"blockReward"`
	GenesisStakes map[string]uint64 `json:"genesisStakes"`
}

// ParseParams decodes the chain scheme JSON's Tendermint params object into
// Params, applying the defaults spec §6.5 lists.
func ParseParams(data []byte) (*Params, error) {
	var raw schemeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	p := &Params{
		TimeoutPropose:        defaultTimeout,
		TimeoutPrevote:        defaultTimeout,
		TimeoutPrecommit:      defaultTimeout,
		TimeoutCommit:         defaultTimeout,
		GenesisStakes:         map[common.Address]uint64{},
	}

	for _, hexPub := range raw.Validators {
		p.Validators = append(p.Validators, common.FromHex(hexPub))
	}

	applyDuration(&p.TimeoutPropose, raw.TimeoutPropose)
	applyDuration(&p.TimeoutProposeDelta, raw.TimeoutProposeDelta)
	applyDuration(&p.TimeoutPrevote, raw.TimeoutPrevote)
	applyDuration(&p.TimeoutPrevoteDelta, raw.TimeoutPrevoteDelta)
	applyDuration(&p.TimeoutPrecommit, raw.TimeoutPrecommit)
	applyDuration(&p.TimeoutPrecommitDelta, raw.TimeoutPrecommitDelta)
	applyDuration(&p.TimeoutCommit, raw.TimeoutCommit)

	if raw.BlockReward != nil {
		p.BlockReward = *raw.BlockReward
	}
	for addrHex, stake := range raw.GenesisStakes {
		p.GenesisStakes[common.HexToAddress(addrHex)] = stake
	}

	return p, nil
}

func applyDuration(field *time.Duration, ms *uint64) {
	if ms != nil {
		*field = time.Duration(*ms) * time.Millisecond
	}
}

// Timeout returns the backed-off duration for step at view, applying the
// step's base timeout plus its linear per-view delta (spec §4.7's "base
// durations with per-step linear backoff").
func (p *Params) Timeout(step consensus.Step, view consensus.View) time.Duration {
	switch step {
	case consensus.Propose:
		return p.TimeoutPropose + time.Duration(view)*p.TimeoutProposeDelta
	case consensus.Prevote:
		return p.TimeoutPrevote + time.Duration(view)*p.TimeoutPrevoteDelta
	case consensus.Precommit:
		return p.TimeoutPrecommit + time.Duration(view)*p.TimeoutPrecommitDelta
	case consensus.Commit:
		return p.TimeoutCommit
	default:
		return defaultTimeout
	}
}
