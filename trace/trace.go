// Package trace persists the requests served by the host so a session can be
// inspected or replayed later.
//
// Exchanges are stored in a bbolt file, one bucket keyed by a big-endian
// sequence number, each value a zstd-compressed JSON document.
package trace

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/klauspost/compress/zstd"
	bolt "go.etcd.io/bbolt"

	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/host"
)

var bucketExchanges = []byte("exchanges")

// Exchange is a recorded request and its answer.
type Exchange struct {
	Seq     uint64    `json:"-"`
	ID      uint32    `json:"id"`
	Kind    uint32    `json:"kind"`
	Method  string    `json:"method"`
	Payload []byte    `json:"payload"`
	Answer  []byte    `json:"answer"`
	Cost    uint64    `json:"cost"`
	At      time.Time `json:"at"`
}

// Options configure Open.
type Options struct {
	// ReadOnly opens an existing trace for inspection.
	ReadOnly bool
	// Timeout bounds the wait for the file lock. Zero waits one second.
	Timeout time.Duration
}

// Store is a trace file.
type Store struct {
	db  *bolt.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ host.Recorder = (*Store)(nil)

// Open opens or creates the trace at path.
func Open(path string, opts *Options) (*Store, error) {
	if opts == nil {
		opts = &Options{}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout, ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseTrace, errors.KindStorage, err, "open "+path)
	}
	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketExchanges)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, errors.Wrap(errors.PhaseTrace, errors.KindStorage, err, "create bucket")
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(errors.PhaseTrace, errors.KindInternal, err, "zstd encoder")
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, errors.Wrap(errors.PhaseTrace, errors.KindInternal, err, "zstd decoder")
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the file and the codecs.
func (s *Store) Close() error {
	s.dec.Close()
	_ = s.enc.Close()
	return s.db.Close()
}

// Record implements host.Recorder.
func (s *Store) Record(ex host.Exchange) error {
	method := ""
	if m, ok := evm.MethodFromKind(ex.Kind); ok {
		method = m.String()
	}
	_, err := s.Append(Exchange{
		ID:      ex.ID,
		Kind:    ex.Kind,
		Method:  method,
		Payload: ex.Payload,
		Answer:  ex.Answer,
		Cost:    ex.Cost,
		At:      ex.At,
	})
	return err
}

// Append stores ex and returns its sequence number, starting at 1.
func (s *Store) Append(ex Exchange) (uint64, error) {
	raw, err := json.Marshal(ex)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseTrace, errors.KindEncoding, err, "marshal exchange")
	}
	value := s.enc.EncodeAll(raw, nil)

	var seq uint64
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExchanges)
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), value)
	})
	if err != nil {
		return 0, errors.Wrap(errors.PhaseTrace, errors.KindStorage, err, "append exchange")
	}
	return seq, nil
}

// Get returns the exchange with sequence number seq.
func (s *Store) Get(seq uint64) (Exchange, error) {
	var ex Exchange
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExchanges)
		if b == nil {
			return errNotFound(seq)
		}
		v := b.Get(seqKey(seq))
		if v == nil {
			return errNotFound(seq)
		}
		var err error
		ex, err = s.decode(seq, v)
		return err
	})
	return ex, err
}

// List returns every exchange in recording order.
func (s *Store) List() ([]Exchange, error) {
	var out []Exchange
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketExchanges)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			ex, err := s.decode(binary.BigEndian.Uint64(k), v)
			if err != nil {
				return err
			}
			out = append(out, ex)
			return nil
		})
	})
	return out, err
}

// Len reports the number of recorded exchanges.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketExchanges); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

func (s *Store) decode(seq uint64, v []byte) (Exchange, error) {
	var ex Exchange
	raw, err := s.dec.DecodeAll(v, nil)
	if err != nil {
		return ex, errors.Wrap(errors.PhaseTrace, errors.KindEncoding, err, "decompress exchange")
	}
	if err := json.Unmarshal(raw, &ex); err != nil {
		return ex, errors.Wrap(errors.PhaseTrace, errors.KindEncoding, err, "unmarshal exchange")
	}
	ex.Seq = seq
	return ex, nil
}

func seqKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, seq)
}

func errNotFound(seq uint64) error {
	return errors.New(errors.PhaseTrace, errors.KindNotFound).
		Value(seq).
		Detail("exchange %d not found", seq).
		Build()
}
