package state

import (
	"context"
	"encoding/json"
	"testing"
)

type fakePartition struct {
	data            map[string]map[string][]byte
	changelogOffset *int64
	processedOffset *int64
	reads           int
	writes          int
	writeErr        error
}

func newFakePartition() *fakePartition {
	return &fakePartition{data: map[string]map[string][]byte{}}
}

func (p *fakePartition) seed(cf string, key, value []byte) {
	if p.data[cf] == nil {
		p.data[cf] = map[string][]byte{}
	}
	p.data[cf][string(key)] = value
}

func (p *fakePartition) lookup(cf string, key []byte) ([]byte, bool) {
	v, ok := p.data[cf][string(key)]
	return v, ok
}

func (p *fakePartition) Get(cf string, key []byte) ([]byte, error) {
	p.reads++
	v, ok := p.lookup(cf, key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (p *fakePartition) Exists(cf string, key []byte) (bool, error) {
	p.reads++
	_, ok := p.lookup(cf, key)
	return ok, nil
}

func (p *fakePartition) Write(_ context.Context, batch *UpdateCache, processedOffset, changelogOffset *int64) error {
	if p.writeErr != nil {
		return p.writeErr
	}
	p.writes++
	err := batch.Range(func(u Update) error {
		if u.Deleted {
			delete(p.data[u.ColumnFamily], string(u.Key))
			return nil
		}
		p.seed(u.ColumnFamily, u.Key, u.Value)
		return nil
	})
	if err != nil {
		return err
	}
	if processedOffset != nil {
		p.processedOffset = Offset(*processedOffset)
	}
	if changelogOffset != nil {
		p.changelogOffset = Offset(*changelogOffset)
	}
	return nil
}

func (p *fakePartition) ChangelogOffset() (int64, bool, error) {
	if p.changelogOffset == nil {
		return 0, false, nil
	}
	return *p.changelogOffset, true, nil
}

type producedRecord struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

type fakeProducer struct {
	name    string
	part    int32
	records []producedRecord
	err     error
}

func (p *fakeProducer) ChangelogName() string { return p.name }
func (p *fakeProducer) Partition() int32      { return p.part }

func (p *fakeProducer) Produce(_ context.Context, key, value []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, producedRecord{Key: key, Value: value, Headers: headers})
	return nil
}

func mustJSON(t testing.TB, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %v: %v", v, err)
	}
	return b
}
