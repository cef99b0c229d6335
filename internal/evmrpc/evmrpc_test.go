package evmrpc

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNativeBalanceKeyIsAddressPrefixed(t *testing.T) {
	address := [20]byte{0x01, 0x02, 0x03}
	key := nativeBalanceKey(address)
	require.Equal(t, "native-balance:", string(key[:len("native-balance:")]))
	require.Equal(t, address[:], key[len("native-balance:"):])
}

func TestRawSlotKeyIsContractThenBigEndianSlot(t *testing.T) {
	contract := [20]byte{0xAA}
	key := rawSlotKey(contract, 7)
	require.Len(t, key, 20+32)
	require.Equal(t, contract[:], key[:20])
	require.Equal(t, big.NewInt(7).FillBytes(make([]byte, 32)), key[20:])
}

func TestDecodeBigHexRoundTripsThroughBigInt(t *testing.T) {
	raw := big.NewInt(123456789).Bytes()
	require.Equal(t, "123456789", decodeBigHex(raw))
}

func TestDecodeBigHexOfEmptyBytesIsZero(t *testing.T) {
	require.Equal(t, "0", decodeBigHex(nil))
}
