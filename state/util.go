package state

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func copyMap[K comparable, V any](source map[K]V) map[K]V {
	res := make(map[K]V, len(source))
	for k, v := range source {
		res[k] = v
	}
	return res
}

func copyAmounts(source map[common.Address]*uint256.Int) map[common.Address]*uint256.Int {
	res := make(map[common.Address]*uint256.Int, len(source))
	for k, v := range source {
		res[k] = v.Clone()
	}
	return res
}

func sortedKeys[V any](m map[common.Address]V) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	return keys
}

func amountOf(m map[common.Address]*uint256.Int, k common.Address) *uint256.Int {
	if v, ok := m[k]; ok {
		return v.Clone()
	}
	return new(uint256.Int)
}

// setAmount stores v, dropping zero entries so state stays compact.
func setAmount(m map[common.Address]*uint256.Int, k common.Address, v *uint256.Int) {
	if v.IsZero() {
		delete(m, k)
		return
	}
	m[k] = v
}

func PrefixEndBytes(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}

	end := make([]byte, len(prefix))
	copy(end, prefix)

	for {
		if end[len(end)-1] != byte(255) {
			end[len(end)-1]++
			break
		}

		end = end[:len(end)-1]

		if len(end) == 0 {
			end = nil
			break
		}
	}

	return end
}
