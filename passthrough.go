package babbage

import "context"

// passThrough calls the wrapped wallet and applies the wallet unavailable
// policy to its error
func passThrough[R any](ctx context.Context, w *FundedWallet, op Operation, call func() (*R, error)) (*R, error) {
	result, err := call()
	if err == nil {
		w.answered(ctx)
		return result, nil
	}
	return nil, w.handleErr(ctx, op, err)
}

// withFallback is passThrough for read-only operations: when the fallback is
// enabled for op, a wallet unavailable error yields the placeholder result
func withFallback[R any](ctx context.Context, w *FundedWallet, op Operation, call func() (*R, error)) (*R, error) {
	result, err := call()
	if err == nil {
		w.answered(ctx)
		return result, nil
	}

	class := Classify(err)
	if class.Kind == KindWalletUnavailable {
		if _, enabled := w.fallbacks[op]; enabled {
			if placeholder, ok := placeholderFor[R](op); ok {
				w.announceUnavailable(ctx, op, class, err)
				log.Debugf("Returning placeholder result for %s", op)
				return placeholder, nil
			}
		}
	}
	return nil, w.handleErr(ctx, op, err)
}

func (w *FundedWallet) GetPublicKey(ctx context.Context, args GetPublicKeyArgs, originator string) (*GetPublicKeyResult, error) {
	return passThrough(ctx, w, OpGetPublicKey, func() (*GetPublicKeyResult, error) {
		return w.wallet.GetPublicKey(ctx, args, originator)
	})
}

func (w *FundedWallet) RevealCounterpartyKeyLinkage(ctx context.Context, args RevealCounterpartyKeyLinkageArgs, originator string) (*RevealCounterpartyKeyLinkageResult, error) {
	return passThrough(ctx, w, OpRevealCounterpartyKeyLinkage, func() (*RevealCounterpartyKeyLinkageResult, error) {
		return w.wallet.RevealCounterpartyKeyLinkage(ctx, args, originator)
	})
}

func (w *FundedWallet) RevealSpecificKeyLinkage(ctx context.Context, args RevealSpecificKeyLinkageArgs, originator string) (*RevealSpecificKeyLinkageResult, error) {
	return passThrough(ctx, w, OpRevealSpecificKeyLinkage, func() (*RevealSpecificKeyLinkageResult, error) {
		return w.wallet.RevealSpecificKeyLinkage(ctx, args, originator)
	})
}

func (w *FundedWallet) Encrypt(ctx context.Context, args EncryptArgs, originator string) (*EncryptResult, error) {
	return passThrough(ctx, w, OpEncrypt, func() (*EncryptResult, error) {
		return w.wallet.Encrypt(ctx, args, originator)
	})
}

func (w *FundedWallet) Decrypt(ctx context.Context, args DecryptArgs, originator string) (*DecryptResult, error) {
	return passThrough(ctx, w, OpDecrypt, func() (*DecryptResult, error) {
		return w.wallet.Decrypt(ctx, args, originator)
	})
}

func (w *FundedWallet) CreateHmac(ctx context.Context, args CreateHmacArgs, originator string) (*CreateHmacResult, error) {
	return passThrough(ctx, w, OpCreateHmac, func() (*CreateHmacResult, error) {
		return w.wallet.CreateHmac(ctx, args, originator)
	})
}

func (w *FundedWallet) VerifyHmac(ctx context.Context, args VerifyHmacArgs, originator string) (*VerifyHmacResult, error) {
	return passThrough(ctx, w, OpVerifyHmac, func() (*VerifyHmacResult, error) {
		return w.wallet.VerifyHmac(ctx, args, originator)
	})
}

func (w *FundedWallet) CreateSignature(ctx context.Context, args CreateSignatureArgs, originator string) (*CreateSignatureResult, error) {
	return passThrough(ctx, w, OpCreateSignature, func() (*CreateSignatureResult, error) {
		return w.wallet.CreateSignature(ctx, args, originator)
	})
}

func (w *FundedWallet) VerifySignature(ctx context.Context, args VerifySignatureArgs, originator string) (*VerifySignatureResult, error) {
	return passThrough(ctx, w, OpVerifySignature, func() (*VerifySignatureResult, error) {
		return w.wallet.VerifySignature(ctx, args, originator)
	})
}

func (w *FundedWallet) ListActions(ctx context.Context, args ListActionsArgs, originator string) (*ListActionsResult, error) {
	return withFallback(ctx, w, OpListActions, func() (*ListActionsResult, error) {
		return w.wallet.ListActions(ctx, args, originator)
	})
}

func (w *FundedWallet) InternalizeAction(ctx context.Context, args InternalizeActionArgs, originator string) (*InternalizeActionResult, error) {
	return passThrough(ctx, w, OpInternalizeAction, func() (*InternalizeActionResult, error) {
		return w.wallet.InternalizeAction(ctx, args, originator)
	})
}

func (w *FundedWallet) ListOutputs(ctx context.Context, args ListOutputsArgs, originator string) (*ListOutputsResult, error) {
	return withFallback(ctx, w, OpListOutputs, func() (*ListOutputsResult, error) {
		return w.wallet.ListOutputs(ctx, args, originator)
	})
}

func (w *FundedWallet) RelinquishOutput(ctx context.Context, args RelinquishOutputArgs, originator string) (*RelinquishOutputResult, error) {
	return passThrough(ctx, w, OpRelinquishOutput, func() (*RelinquishOutputResult, error) {
		return w.wallet.RelinquishOutput(ctx, args, originator)
	})
}

func (w *FundedWallet) AcquireCertificate(ctx context.Context, args AcquireCertificateArgs, originator string) (*CertificateResult, error) {
	return passThrough(ctx, w, OpAcquireCertificate, func() (*CertificateResult, error) {
		return w.wallet.AcquireCertificate(ctx, args, originator)
	})
}

func (w *FundedWallet) ListCertificates(ctx context.Context, args ListCertificatesArgs, originator string) (*ListCertificatesResult, error) {
	return withFallback(ctx, w, OpListCertificates, func() (*ListCertificatesResult, error) {
		return w.wallet.ListCertificates(ctx, args, originator)
	})
}

func (w *FundedWallet) ProveCertificate(ctx context.Context, args ProveCertificateArgs, originator string) (*ProveCertificateResult, error) {
	return passThrough(ctx, w, OpProveCertificate, func() (*ProveCertificateResult, error) {
		return w.wallet.ProveCertificate(ctx, args, originator)
	})
}

func (w *FundedWallet) RelinquishCertificate(ctx context.Context, args RelinquishCertificateArgs, originator string) (*RelinquishCertificateResult, error) {
	return passThrough(ctx, w, OpRelinquishCertificate, func() (*RelinquishCertificateResult, error) {
		return w.wallet.RelinquishCertificate(ctx, args, originator)
	})
}

func (w *FundedWallet) DiscoverByIdentityKey(ctx context.Context, args DiscoverByIdentityKeyArgs, originator string) (*DiscoverCertificatesResult, error) {
	return passThrough(ctx, w, OpDiscoverByIdentityKey, func() (*DiscoverCertificatesResult, error) {
		return w.wallet.DiscoverByIdentityKey(ctx, args, originator)
	})
}

func (w *FundedWallet) DiscoverByAttributes(ctx context.Context, args DiscoverByAttributesArgs, originator string) (*DiscoverCertificatesResult, error) {
	return passThrough(ctx, w, OpDiscoverByAttributes, func() (*DiscoverCertificatesResult, error) {
		return w.wallet.DiscoverByAttributes(ctx, args, originator)
	})
}

func (w *FundedWallet) IsAuthenticated(ctx context.Context, args any, originator string) (*AuthenticatedResult, error) {
	return withFallback(ctx, w, OpIsAuthenticated, func() (*AuthenticatedResult, error) {
		return w.wallet.IsAuthenticated(ctx, args, originator)
	})
}

func (w *FundedWallet) WaitForAuthentication(ctx context.Context, args any, originator string) (*AuthenticatedResult, error) {
	return passThrough(ctx, w, OpWaitForAuthentication, func() (*AuthenticatedResult, error) {
		return w.wallet.WaitForAuthentication(ctx, args, originator)
	})
}

func (w *FundedWallet) GetHeight(ctx context.Context, args any, originator string) (*GetHeightResult, error) {
	return withFallback(ctx, w, OpGetHeight, func() (*GetHeightResult, error) {
		return w.wallet.GetHeight(ctx, args, originator)
	})
}

func (w *FundedWallet) GetHeaderForHeight(ctx context.Context, args GetHeaderArgs, originator string) (*GetHeaderResult, error) {
	return passThrough(ctx, w, OpGetHeaderForHeight, func() (*GetHeaderResult, error) {
		return w.wallet.GetHeaderForHeight(ctx, args, originator)
	})
}

func (w *FundedWallet) GetNetwork(ctx context.Context, args any, originator string) (*GetNetworkResult, error) {
	return withFallback(ctx, w, OpGetNetwork, func() (*GetNetworkResult, error) {
		return w.wallet.GetNetwork(ctx, args, originator)
	})
}

func (w *FundedWallet) GetVersion(ctx context.Context, args any, originator string) (*GetVersionResult, error) {
	return withFallback(ctx, w, OpGetVersion, func() (*GetVersionResult, error) {
		return w.wallet.GetVersion(ctx, args, originator)
	})
}
