package types

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/mr-tron/base58"
)

// ValidateAddress 校验 Solana 账户地址（base58，解码后 32 字节）
func ValidateAddress(s string) error {
	if len(s) < 32 || len(s) > 44 {
		return fmt.Errorf("invalid address length: %d", len(s))
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 address %q: %w", s, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("address %q decodes to %d bytes, expected 32", s, len(raw))
	}
	return nil
}

// AddressHash 地址的稳定哈希，用于排序 tie-break 与分片选择
func AddressHash(s string) uint64 {
	return xxhash.Sum64String(s)
}
