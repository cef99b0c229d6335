package kv_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/defich/ocean/internal/kv"
	"github.com/stretchr/testify/require"
)

type uint32Key struct{}

func (uint32Key) EncodeKey(k uint32) []byte {
	var buf bytes.Buffer
	kv.PutUint32(&buf, k)
	return buf.Bytes()
}

func (uint32Key) DecodeKey(b []byte) (uint32, error) {
	v, _, err := kv.ReadUint32(b)
	return v, err
}

type record struct {
	Name  string
	Value int64
}

func openTestStore(t *testing.T, buckets []string) *kv.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := kv.Open(filepath.Join(dir, "test.db"), kv.DefaultOptions(), buckets)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestColumnRoundTrip(t *testing.T) {
	s := openTestStore(t, []string{"records"})
	col := kv.NewColumn[uint32, record](s, "records", uint32Key{}, kv.GobValue[record]{})

	require.NoError(t, col.Put(1, record{Name: "a", Value: 10}))
	require.NoError(t, col.Put(2, record{Name: "b", Value: 20}))

	v, ok, err := col.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record{Name: "a", Value: 10}, v)

	require.NoError(t, col.Delete(1))
	_, ok, err = col.Get(1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestColumnListOrderingAndDirection(t *testing.T) {
	s := openTestStore(t, []string{"records"})
	col := kv.NewColumn[uint32, record](s, "records", uint32Key{}, kv.GobValue[record]{})

	for i := uint32(1); i <= 5; i++ {
		require.NoError(t, col.Put(i, record{Value: int64(i)}))
	}

	var fwd []uint32
	for p, err := range col.List(nil, kv.Forward) {
		require.NoError(t, err)
		fwd = append(fwd, p.Key)
	}
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, fwd)

	var rev []uint32
	for p, err := range col.List(nil, kv.Reverse) {
		require.NoError(t, err)
		rev = append(rev, p.Key)
	}
	require.Equal(t, []uint32{5, 4, 3, 2, 1}, rev)

	from := uint32(3)
	var fromThree []uint32
	for p, err := range col.List(&from, kv.Forward) {
		require.NoError(t, err)
		fromThree = append(fromThree, p.Key)
	}
	require.Equal(t, []uint32{3, 4, 5}, fromThree)
}

func TestSecondaryResolveMissingPrimaryIsHardError(t *testing.T) {
	s := openTestStore(t, []string{"records", "records_by_name"})
	primary := kv.NewColumn[uint32, record](s, "records", uint32Key{}, kv.GobValue[record]{})

	type strKey struct{}
	_ = strKey{}

	nameKey := struct {
		kv.KeyCodec[string]
	}{}
	_ = nameKey

	// Build a minimal secondary codec inline: string name -> uint32 primary key.
	secCol := kv.NewColumn[string, uint32](s, "records_by_name", stringKeyCodec{}, uint32ValueCodec{})

	require.NoError(t, secCol.Put("orphan", 999)) // no matching primary row

	var sawErr error
	for _, err := range kv.ResolveSecondary[string, uint32, record](secCol, primary, nil, kv.Forward) {
		if err != nil {
			sawErr = err
		}
	}
	require.Error(t, sawErr)
}

type stringKeyCodec struct{}

func (stringKeyCodec) EncodeKey(s string) []byte        { return []byte(s) }
func (stringKeyCodec) DecodeKey(b []byte) (string, error) { return string(b), nil }

type uint32ValueCodec struct{}

func (uint32ValueCodec) EncodeValue(v uint32) ([]byte, error) {
	var buf bytes.Buffer
	kv.PutUint32(&buf, v)
	return buf.Bytes(), nil
}

func (uint32ValueCodec) DecodeValue(b []byte) (uint32, error) {
	v, _, err := kv.ReadUint32(b)
	return v, err
}
