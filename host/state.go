package host

import (
	"encoding/binary"
	"sync"

	dbm "github.com/cometbft/cometbft-db"
	"golang.org/x/crypto/sha3"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
)

// Costs charged by the simulated handlers.
const (
	ColdSloadCost   uint64 = 2100
	WarmStorageCost uint64 = 100
	SstoreSetCost   uint64 = 20000
	TransientCost   uint64 = 100
	BalanceCost     uint64 = 100
	CodeCost        uint64 = 100
	LogCost         uint64 = 375
	LogTopicCost    uint64 = 375
	LogDataCost     uint64 = 8
	PageCost        uint64 = 1000
)

const (
	statusOK         byte = 0
	statusOutOfGas   byte = 1
	maxLogTopics          = 4
	slotPairSize          = 64
	accountCodeInput      = 20 + 8
)

// Log is an event emitted by a program.
type Log struct {
	Topics []evm.Bytes32
	Data   []byte
}

// State is simulated world state for a single contract.
// Persistent slots live in a MemDB; everything else is in memory.
type State struct {
	mu        sync.Mutex
	storage   *dbm.MemDB
	warm      map[evm.Bytes32]struct{}
	transient map[evm.Bytes32]evm.Bytes32
	balances  map[evm.Bytes20]evm.Bytes32
	code      map[evm.Bytes20][]byte
	logs      []Log
	pages     uint32
}

// NewState creates empty world state.
func NewState() *State {
	return &State{
		storage:   dbm.NewMemDB(),
		warm:      make(map[evm.Bytes32]struct{}),
		transient: make(map[evm.Bytes32]evm.Bytes32),
		balances:  make(map[evm.Bytes20]evm.Bytes32),
		code:      make(map[evm.Bytes20][]byte),
	}
}

// Close releases the storage backend.
func (s *State) Close() error {
	return s.storage.Close()
}

// Load returns a persistent slot; absent slots read as zero.
func (s *State) Load(key evm.Bytes32) (evm.Bytes32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(key)
}

func (s *State) load(key evm.Bytes32) (evm.Bytes32, error) {
	var out evm.Bytes32
	v, err := s.storage.Get(key[:])
	if err != nil {
		return out, errors.Wrap(errors.PhaseHost, errors.KindStorage, err, "load slot "+key.String())
	}
	copy(out[:], v)
	return out, nil
}

// Store writes a persistent slot. Zero values delete the slot.
func (s *State) Store(key, value evm.Bytes32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(key, value)
}

func (s *State) store(key, value evm.Bytes32) error {
	var err error
	if value == (evm.Bytes32{}) {
		err = s.storage.Delete(key[:])
	} else {
		err = s.storage.Set(key[:], value[:])
	}
	if err != nil {
		return errors.Wrap(errors.PhaseHost, errors.KindStorage, err, "store slot "+key.String())
	}
	return nil
}

// SetBalance sets the balance of addr.
func (s *State) SetBalance(addr evm.Bytes20, balance evm.Bytes32) {
	s.mu.Lock()
	s.balances[addr] = balance
	s.mu.Unlock()
}

// SetCode deploys code at addr.
func (s *State) SetCode(addr evm.Bytes20, code []byte) {
	s.mu.Lock()
	s.code[addr] = append([]byte(nil), code...)
	s.mu.Unlock()
}

// Logs returns the events emitted so far.
func (s *State) Logs() []Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Log(nil), s.logs...)
}

// Pages reports the total pages added through AddPages.
func (s *State) Pages() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}

// ClearTransient drops transient storage, as at the end of a transaction.
func (s *State) ClearTransient() {
	s.mu.Lock()
	clear(s.transient)
	s.mu.Unlock()
}

// CodeHash returns the keccak256 hash of code. Accounts without code hash to
// the hash of the empty string.
func CodeHash(code []byte) evm.Bytes32 {
	var out evm.Bytes32
	h := sha3.NewLegacyKeccak256()
	h.Write(code)
	h.Sum(out[:0])
	return out
}

// RegisterHandlers installs handlers for the storage, account, log and page
// methods. Payloads are big-endian.
func (s *State) RegisterHandlers(d *Dispatcher) {
	d.Handle(evm.GetBytes32, s.getBytes32)
	d.Handle(evm.SetTrieSlots, s.setTrieSlots)
	d.Handle(evm.GetTransientBytes32, s.getTransientBytes32)
	d.Handle(evm.SetTransientBytes32, s.setTransientBytes32)
	d.Handle(evm.AccountBalance, s.accountBalance)
	d.Handle(evm.AccountCode, s.accountCode)
	d.Handle(evm.AccountCodeHash, s.accountCodeHash)
	d.Handle(evm.EmitLog, s.emitLog)
	d.Handle(evm.AddPages, s.addPages)
}

func (s *State) getBytes32(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.GetBytes32, payload, 32); err != nil {
		return nil, 0, err
	}
	key := evm.Bytes32(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	value, err := s.load(key)
	if err != nil {
		return nil, 0, err
	}
	cost := ColdSloadCost
	if _, ok := s.warm[key]; ok {
		cost = WarmStorageCost
	}
	s.warm[key] = struct{}{}
	return value[:], cost, nil
}

// setTrieSlots payload: gas left (u64) followed by key/value pairs.
// The answer is a single status byte.
func (s *State) setTrieSlots(payload []byte) ([]byte, uint64, error) {
	if len(payload) < 8 || (len(payload)-8)%slotPairSize != 0 {
		return nil, 0, badPayload(evm.SetTrieSlots, len(payload))
	}
	gasLeft := binary.BigEndian.Uint64(payload)
	pairs := payload[8:]

	s.mu.Lock()
	defer s.mu.Unlock()
	var cost uint64
	for len(pairs) > 0 {
		key := evm.Bytes32(pairs[:32])
		value := evm.Bytes32(pairs[32:64])
		pairs = pairs[slotPairSize:]

		cost += SstoreSetCost
		if cost > gasLeft {
			return []byte{statusOutOfGas}, gasLeft, nil
		}
		if err := s.store(key, value); err != nil {
			return nil, 0, err
		}
		s.warm[key] = struct{}{}
	}
	return []byte{statusOK}, cost, nil
}

func (s *State) getTransientBytes32(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.GetTransientBytes32, payload, 32); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	value := s.transient[evm.Bytes32(payload)]
	s.mu.Unlock()
	return value[:], TransientCost, nil
}

// setTransientBytes32 payload: key then value. The answer is a status byte.
func (s *State) setTransientBytes32(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.SetTransientBytes32, payload, 64); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	s.transient[evm.Bytes32(payload[:32])] = evm.Bytes32(payload[32:])
	s.mu.Unlock()
	return []byte{statusOK}, TransientCost, nil
}

func (s *State) accountBalance(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.AccountBalance, payload, 20); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	balance := s.balances[evm.Bytes20(payload)]
	s.mu.Unlock()
	return balance[:], BalanceCost, nil
}

// accountCode payload: address then gas left (u64). Code that cannot be
// paid for with the remaining gas is not returned.
func (s *State) accountCode(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.AccountCode, payload, accountCodeInput); err != nil {
		return nil, 0, err
	}
	addr := evm.Bytes20(payload[:20])
	gasLeft := binary.BigEndian.Uint64(payload[20:])

	s.mu.Lock()
	code := s.code[addr]
	s.mu.Unlock()

	if CodeCost > gasLeft {
		return []byte{}, gasLeft, nil
	}
	return append([]byte{}, code...), CodeCost, nil
}

func (s *State) accountCodeHash(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.AccountCodeHash, payload, 20); err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	code := s.code[evm.Bytes20(payload)]
	s.mu.Unlock()
	hash := CodeHash(code)
	return hash[:], CodeCost, nil
}

// emitLog payload: topic count (u32), the topics, then the data.
// The answer is empty on success.
func (s *State) emitLog(payload []byte) ([]byte, uint64, error) {
	if len(payload) < 4 {
		return nil, 0, badPayload(evm.EmitLog, len(payload))
	}
	topics := binary.BigEndian.Uint32(payload)
	if topics > maxLogTopics || uint64(len(payload)-4) < uint64(topics)*32 {
		return nil, 0, badPayload(evm.EmitLog, len(payload))
	}
	rest := payload[4:]
	entry := Log{Topics: make([]evm.Bytes32, topics)}
	for i := range entry.Topics {
		entry.Topics[i] = evm.Bytes32(rest[:32])
		rest = rest[32:]
	}
	entry.Data = append([]byte{}, rest...)

	s.mu.Lock()
	s.logs = append(s.logs, entry)
	s.mu.Unlock()

	cost := LogCost + uint64(topics)*LogTopicCost + uint64(len(entry.Data))*LogDataCost
	return []byte{}, cost, nil
}

// addPages payload: page count (u16). The answer is empty.
func (s *State) addPages(payload []byte) ([]byte, uint64, error) {
	if err := expectLen(evm.AddPages, payload, 2); err != nil {
		return nil, 0, err
	}
	pages := binary.BigEndian.Uint16(payload)
	s.mu.Lock()
	s.pages += uint32(pages)
	s.mu.Unlock()
	return []byte{}, uint64(pages) * PageCost, nil
}

func expectLen(method evm.Method, payload []byte, want int) error {
	if len(payload) != want {
		return badPayload(method, len(payload))
	}
	return nil
}

func badPayload(method evm.Method, n int) error {
	return errors.New(errors.PhaseHost, errors.KindEncoding).
		Value(n).
		Detail("malformed %s payload: %d bytes", method, n).
		Build()
}
