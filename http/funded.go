package http

import (
	babbage "github.com/babbage/go"
	"github.com/babbage/go/funding"
)

// NewFundedWallet wraps the wallet reachable over HTTP at cfg.URL. Payment
// tokens go through the public message relay, signed by that wallet, unless
// opts name another relay.
func NewFundedWallet(cfg *WalletClientConfig, opts ...babbage.Option) (*babbage.FundedWallet, error) {
	if cfg == nil {
		cfg = &WalletClientConfig{}
	}
	wallet := NewWalletClient(cfg)

	relay := NewMessageBoxClient(&MessageBoxConfig{
		AuthProvider: NewWalletAuthProvider(wallet, cfg.Originator),
	})
	defaults := []babbage.Option{
		babbage.WithMessageRelay(relay),
	}
	return babbage.New(wallet, append(defaults, opts...)...)
}

// NewBridgedShopFunder creates a shop funder whose dialogs are rendered by
// the browser behind bridge
func NewBridgedShopFunder(shop *ShopConfig, payments funding.PaymentConfirmer, bridge *FundingBridge) (*funding.ShopFunder, error) {
	return funding.NewShopFunder(funding.Config{
		Shop:     NewShopClient(shop),
		Payments: payments,
		Dialogs:  bridge,
	})
}

// NewBridgedExternalFunder creates an external funder rendered behind bridge
func NewBridgedExternalFunder(bridge *FundingBridge, texts funding.Texts) (*funding.ExternalFunder, error) {
	return funding.NewExternalFunder(funding.ExternalConfig{
		Dialogs: bridge,
		Browser: bridge,
		Texts:   texts,
	})
}
