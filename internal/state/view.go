package state

// State is a prefix-bound view over a PartitionTransaction, handed to per-key
// processing code. Every call delegates to the transaction with the bound
// prefix in the default column family; State keeps nothing of its own.
type State struct {
	tx     *PartitionTransaction
	prefix []byte
}

// AsState returns a State bound to prefix. A []byte prefix is used as is;
// any other value is serialized with the transaction codec. A nil prefix
// means no prefix.
func (tx *PartitionTransaction) AsState(prefix any) (*State, error) {
	switch p := prefix.(type) {
	case nil:
		return &State{tx: tx}, nil
	case []byte:
		return &State{tx: tx, prefix: p}, nil
	}
	b, err := tx.codec.Serialize(prefix)
	if err != nil {
		return nil, &SerializationError{What: "prefix", Err: err}
	}
	return &State{tx: tx, prefix: b}, nil
}

// Prefix returns the bound prefix bytes.
func (s *State) Prefix() []byte { return s.prefix }

// Get loads the value for key into out; see PartitionTransaction.Get.
func (s *State) Get(key, out any) (bool, error) {
	return s.tx.Get(key, s.prefix, DefaultColumnFamily, out)
}

// Set stores value for key.
func (s *State) Set(key, value any) error {
	return s.tx.Set(key, value, s.prefix, DefaultColumnFamily)
}

// Delete removes key. It succeeds whether or not the key exists.
func (s *State) Delete(key any) error {
	return s.tx.Delete(key, s.prefix, DefaultColumnFamily)
}

// Exists reports whether key exists.
func (s *State) Exists(key any) (bool, error) {
	return s.tx.Exists(key, s.prefix, DefaultColumnFamily)
}
