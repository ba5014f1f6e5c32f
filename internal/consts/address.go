package consts

// ChainName 发现通道的链标识，过滤非 Solana 上报
const ChainName = "SOLANA"

// Base58 地址常量（可读性高，适合配置与日志使用）
const (
	SOLMintStr  = "So11111111111111111111111111111111111111111"
	WSOLMintStr = "So11111111111111111111111111111111111111112"

	// 常见结算/托管账户，这些地址出现在 top-holder 表里时按池子处理
	PumpFunBondingCurveProgram = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	PumpFunAmmProgram          = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	RaydiumV4Authority         = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
)

// DefaultPoolAllowList 内置池子地址名单，配置未提供时使用
func DefaultPoolAllowList() []string {
	return []string{
		WSOLMintStr,
		PumpFunBondingCurveProgram,
		PumpFunAmmProgram,
		RaydiumV4Authority,
	}
}
