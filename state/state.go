package state

import (
	"encoding/json"
	"fmt"
	"sort"

	abci_types "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cosmos/iavl"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	KeyState         = "s"
	KeyAuthority     = "authority"
	KeyCouncil       = "council"
	KeyToken         = "token"
	KeyBank          = "bank"
	KeyCollateral    = "collateral"
	KeyProposalBody  = "p%020d"
	KeyProposalStart = "p"
	KeyNonce         = "n%x"
	KeyNonceStart    = "n"
)

// Dispatcher routes a council Execution proposal to the module that owns the
// encoded call.
type Dispatcher interface {
	Dispatch(st *State, caller, target common.Address, calldata []byte) error
}

type StateHeader struct {
	Height   uint64
	ChainId  string
	Time     uint64
	RootHash []byte
	Hash     []byte
}

func (h *StateHeader) clone() *StateHeader {
	n := *h
	n.RootHash = common.CopyBytes(h.RootHash)
	n.Hash = common.CopyBytes(h.Hash)
	return &n
}

func (h *StateHeader) GetHeight() uint64 {
	if h == nil {
		return 0
	}
	return h.Height
}

type State struct {
	logger cmtlog.Logger
	db     *iavl.MutableTree
	dbVer  int64

	header      *StateHeader
	env         *env
	nonces      map[common.Address]uint64
	modifiedNon map[common.Address]struct{}
	dispatcher  Dispatcher

	authority  *AuthorityRegistry
	council    *Council
	token      *Token
	bank       *Bank
	collateral *CollateralLedger
}

func newState(db *iavl.MutableTree, logger cmtlog.Logger) *State {
	s := &State{
		logger:      logger,
		db:          db,
		header:      new(StateHeader),
		env:         newEnv(logger),
		nonces:      make(map[common.Address]uint64),
		modifiedNon: make(map[common.Address]struct{}),
	}
	s.authority = NewAuthorityRegistry(s.env, common.Address{}, common.Address{}, 0)
	s.council = NewCouncil(s.env, s.authority, DefaultCouncilConfig())
	s.token = NewToken(s.env, s.authority, "", "", 0, new(uint256.Int))
	s.bank = NewBank(s.env)
	s.collateral = NewCollateralLedger(s.env, s.token, s.bank, s.authority)
	s.wire()
	return s
}

// NewMemState builds a state with no backing tree, for tests and previews.
func NewMemState(logger cmtlog.Logger) *State {
	return newState(nil, logger)
}

func (s *State) wire() {
	s.council.dispatch = func(caller, target common.Address, calldata []byte) error {
		if s.dispatcher == nil {
			return ErrNoDispatcher
		}
		return s.dispatcher.Dispatch(s, caller, target, calldata)
	}
}

// Clone returns a deep copy that a transaction can mutate and then either
// adopt or drop.
func (s *State) Clone() *State {
	e := s.env.clone()
	n := &State{
		logger:      s.logger,
		db:          s.db,
		dbVer:       s.dbVer,
		header:      s.header.clone(),
		env:         e,
		nonces:      copyMap(s.nonces),
		modifiedNon: copyMap(s.modifiedNon),
		dispatcher:  s.dispatcher,
	}
	n.authority = s.authority.clone(e)
	n.council = s.council.clone(e, n.authority)
	n.token = s.token.clone(e, n.authority)
	n.bank = s.bank.clone(e)
	n.collateral = s.collateral.clone(e, n.token, n.bank, n.authority)
	n.wire()
	return n
}

func (s *State) nextState() *State {
	n := s.Clone()
	n.env.events = nil
	n.modifiedNon = make(map[common.Address]struct{})
	n.council.modified = make(map[uint64]struct{})
	if s.header.Hash != nil {
		n.header.Height = s.header.Height + 1
	}
	return n
}

func (s *State) load() (err error) {
	val, err := s.db.Get([]byte(KeyState))
	if err != nil {
		return err
	}
	if val == nil {
		return nil
	}
	if err = rlp.DecodeBytes(val, s.header); err != nil {
		return
	}
	blobs := []struct {
		key string
		fn  func([]byte) error
	}{
		{KeyAuthority, s.authority.unmarshal},
		{KeyCouncil, s.council.unmarshal},
		{KeyToken, s.token.unmarshal},
		{KeyBank, s.bank.unmarshal},
		{KeyCollateral, s.collateral.unmarshal},
	}
	for _, b := range blobs {
		val, err = s.db.Get([]byte(b.key))
		if err != nil {
			return err
		}
		if val == nil {
			continue
		}
		if err = b.fn(val); err != nil {
			return fmt.Errorf("load %s: %w", b.key, err)
		}
	}
	if err = s.iterate(KeyProposalStart, func(_, v []byte) error {
		return s.council.loadProposal(v)
	}); err != nil {
		return err
	}
	if err = s.iterate(KeyNonceStart, func(k, v []byte) error {
		var nonce uint64
		if err := rlp.DecodeBytes(v, &nonce); err != nil {
			return err
		}
		s.nonces[common.BytesToAddress(common.FromHex(string(k[1:])))] = nonce
		return nil
	}); err != nil {
		return err
	}
	h := s.db.Hash()
	if h != nil {
		s.calcHash(h, true)
	}
	return
}

func (s *State) iterate(prefix string, fn func(k, v []byte) error) error {
	start := []byte(prefix)
	it, err := s.db.Iterator(start, PrefixEndBytes(start), true)
	if err != nil {
		return err
	}
	defer it.Close()
	for ; it.Valid(); it.Next() {
		if err := fn(it.Key(), it.Value()); err != nil {
			return err
		}
	}
	return nil
}

func (s *State) calcHash(rootHash []byte, update bool) (h common.Hash) {
	h = crypto.Keccak256Hash(rootHash)
	if update {
		s.header.RootHash = common.CopyBytes(rootHash)
		s.header.Hash = common.CopyBytes(h[:])
	}
	return
}

// Update writes the block's changes into the working tree and returns the
// resulting app hash.
func (s *State) Update() (h common.Hash, err error) {
	var hash []byte
	defer func() {
		if hash == nil {
			s.db.Rollback()
		}
	}()
	set := func(key string, val []byte) {
		if err == nil {
			_, err = s.db.Set([]byte(key), val)
		}
	}
	var val []byte
	val, err = rlp.EncodeToBytes(s.header)
	if err != nil {
		return
	}
	set(KeyState, val)

	blobs := []struct {
		key string
		fn  func() ([]byte, error)
	}{
		{KeyAuthority, s.authority.marshal},
		{KeyCouncil, s.council.marshal},
		{KeyToken, s.token.marshal},
		{KeyBank, s.bank.marshal},
		{KeyCollateral, s.collateral.marshal},
	}
	for _, b := range blobs {
		if err != nil {
			return
		}
		val, err = b.fn()
		if err != nil {
			return
		}
		set(b.key, val)
	}

	ids := make([]uint64, 0, len(s.council.modified))
	for id := range s.council.modified {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err != nil {
			return
		}
		val, err = json.Marshal(s.council.proposals[id])
		if err != nil {
			return
		}
		set(fmt.Sprintf(KeyProposalBody, id), val)
	}

	for _, addr := range sortedKeys(s.modifiedNon) {
		if err != nil {
			return
		}
		val, err = rlp.EncodeToBytes(s.nonces[addr])
		if err != nil {
			return
		}
		set(fmt.Sprintf(KeyNonce, addr.Bytes()), val)
	}
	if err != nil {
		return
	}

	hash = s.db.WorkingHash()
	h = s.calcHash(hash, false)
	s.modifiedNon = make(map[common.Address]struct{})
	s.council.modified = make(map[uint64]struct{})
	return
}

func (s *State) save() (h common.Hash, err error) {
	hash, ver, err := s.db.SaveVersion()
	if err != nil {
		return h, err
	}

	s.dbVer = ver
	h = s.calcHash(hash, true)

	return
}

func (s *State) Header() *StateHeader {
	return s.header
}

func (s *State) Hash() (h common.Hash) {
	if s.header.Hash != nil {
		copy(h[:], s.header.Hash)
	}
	return
}

func (s *State) SetChainId(chainId string) {
	s.header.ChainId = chainId
}

// SetTime sets the block clock, in unix seconds, that every component reads.
func (s *State) SetTime(now uint64) {
	s.header.Time = now
	s.env.now = now
}

func (s *State) Now() uint64 { return s.env.now }

func (s *State) SetDispatcher(d Dispatcher) {
	s.dispatcher = d
}

// TakeEvents drains the events emitted since the last call.
func (s *State) TakeEvents() []abci_types.Event {
	return s.env.take()
}

func (s *State) Nonce(addr common.Address) uint64 {
	return s.nonces[addr]
}

// CheckNonce accepts the account's next nonce, or any later one when gaps
// are allowed (mempool checks).
func (s *State) CheckNonce(addr common.Address, nonce uint64, allowNonceGap bool) error {
	cur := s.nonces[addr]
	if nonce == cur || (allowNonceGap && nonce > cur) {
		return nil
	}
	return fmt.Errorf("%w: expected %d got %d", ErrTxNonceInvalid, cur, nonce)
}

func (s *State) IncNonce(addr common.Address) {
	s.nonces[addr]++
	s.modifiedNon[addr] = struct{}{}
}

func (s *State) Authority() *AuthorityRegistry { return s.authority }

func (s *State) Council() *Council { return s.council }

func (s *State) Token() *Token { return s.token }

func (s *State) Bank() *Bank { return s.bank }

func (s *State) Collateral() *CollateralLedger { return s.collateral }
