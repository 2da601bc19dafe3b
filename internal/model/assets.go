package model

import "strings"

var assetNames = map[string]string{
	"BTC":   "Bitcoin",
	"ETH":   "Ethereum",
	"SOL":   "Solana",
	"ADA":   "Cardano",
	"XRP":   "Ripple",
	"LTC":   "Litecoin",
	"BCH":   "Bitcoin Cash",
	"EOS":   "EOS",
	"XLM":   "Stellar",
	"DOGE":  "Dogecoin",
	"MATIC": "Polygon",
	"DOT":   "Polkadot",
	"AVAX":  "Avalanche",
	"LINK":  "Chainlink",
	"UNI":   "Uniswap",
}

// AssetName returns the display name of a symbol, or the upper-case symbol itself when unknown.
func AssetName(symbol string) string {
	symbol = strings.ToUpper(symbol)
	if name, ok := assetNames[symbol]; ok {
		return name
	}
	return symbol
}
