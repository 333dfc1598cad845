package jsontypes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendermint/light-verifier/internal/jsontypes"
)

// key mimics a public key variant: a named byte slice tagged with its type.
type key []byte

func (key) TypeTag() string { return "test/Key" }

// ptrKey is registered through its pointer type.
type ptrKey struct {
	Bytes []byte `json:"bytes"`
}

func (*ptrKey) TypeTag() string { return "test/PtrKey" }

// otherKey is never registered.
type otherKey []byte

func (otherKey) TypeTag() string { return "test/OtherKey" }

type keyer interface{ TypeTag() string }

func init() {
	jsontypes.MustRegister(key{})
	jsontypes.MustRegister((*ptrKey)(nil))
}

func TestMustRegisterTwice(t *testing.T) {
	assert.Panics(t, func() { jsontypes.MustRegister(key{}) })
	assert.Panics(t, func() { jsontypes.MustRegister((*ptrKey)(nil)) })
}

func TestMarshal(t *testing.T) {
	testCases := map[string]struct {
		v    jsontypes.Tagged
		want string
	}{
		"nil":         {nil, `null`},
		"bare type":   {key{0x01, 0x02}, `{"type":"test/Key","value":"AQI="}`},
		"pointer":     {&ptrKey{Bytes: []byte{0xff}}, `{"type":"test/PtrKey","value":{"bytes":"/w=="}}`},
		"not checked": {otherKey{0x00}, `{"type":"test/OtherKey","value":"AA=="}`},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			bz, err := jsontypes.Marshal(tc.v)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(bz))
		})
	}
}

func TestUnmarshalIntoInterface(t *testing.T) {
	var k keyer
	require.NoError(t, jsontypes.Unmarshal([]byte(`{"type":"test/Key","value":"AQI="}`), &k))
	assert.Equal(t, key{0x01, 0x02}, k)

	// A pointer registration decodes to the pointer.
	require.NoError(t, jsontypes.Unmarshal([]byte(`{"type":"test/PtrKey","value":{"bytes":"/w=="}}`), &k))
	assert.Equal(t, &ptrKey{Bytes: []byte{0xff}}, k)

	// null clears the target.
	require.NoError(t, jsontypes.Unmarshal([]byte(`null`), &k))
	assert.Nil(t, k)
}

func TestUnmarshalIntoConcreteType(t *testing.T) {
	var k key
	require.NoError(t, jsontypes.Unmarshal([]byte(`{"type":"test/Key","value":"AQI="}`), &k))
	assert.Equal(t, key{0x01, 0x02}, k)

	var pk ptrKey
	require.NoError(t, jsontypes.Unmarshal([]byte(`{"type":"test/PtrKey","value":{"bytes":"/w=="}}`), &pk))
	assert.Equal(t, ptrKey{Bytes: []byte{0xff}}, pk)
}

func TestUnmarshalErrors(t *testing.T) {
	var k keyer
	testCases := map[string]struct {
		input  string
		target interface{}
	}{
		"unknown tag":        {`{"type":"test/OtherKey","value":"AA=="}`, &k},
		"missing tag":        {`{"value":"AA=="}`, &k},
		"unknown field":      {`{"type":"test/Key","value":"AA==","extra":1}`, &k},
		"not an object":      {`"AA=="`, &k},
		"bad value":          {`{"type":"test/Key","value":{"bytes":"AA=="}}`, &k},
		"wrong target type":  {`{"type":"test/PtrKey","value":{"bytes":"/w=="}}`, new(key)},
		"target not pointer": {`{"type":"test/Key","value":"AA=="}`, key{}},
		"nil target":         {`{"type":"test/Key","value":"AA=="}`, (*key)(nil)},
	}

	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			assert.Error(t, jsontypes.Unmarshal([]byte(tc.input), tc.target))
		})
	}
}
