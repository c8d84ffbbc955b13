package settings

import "github.com/shopspring/decimal"

// Patch is a partial update from the settings dialog. Nil fields are left alone.
type Patch struct {
	DisplayName         *string          `json:"displayName,omitempty"`
	Email               *string          `json:"email,omitempty"`
	Timezone            *Timezone        `json:"timezone,omitempty"`
	TwoFactorEnabled    *bool            `json:"twoFactorEnabled,omitempty"`
	EncryptionLevel     *EncryptionLevel `json:"encryptionLevel,omitempty"`
	SessionTimeout      *int             `json:"sessionTimeout,omitempty"`
	DefaultOrderSize    *decimal.Decimal `json:"defaultOrderSize,omitempty"`
	SlippageTolerance   *decimal.Decimal `json:"slippageTolerance,omitempty"`
	AutoConfirm         *bool            `json:"autoConfirm,omitempty"`
	TradeAlerts         *bool            `json:"tradeAlerts,omitempty"`
	PriceAlerts         *bool            `json:"priceAlerts,omitempty"`
	SystemNotifications *bool            `json:"systemNotifications,omitempty"`
	DefaultWallet       *WalletKind      `json:"defaultWallet,omitempty"`
	GasPreference       *GasPreference   `json:"gasPreference,omitempty"`
}

// Apply calls the typed setter of every present field, stopping at the first error.
func (p Patch) Apply(s *Settings) error {
	steps := []func() error{
		func() error {
			if p.DisplayName == nil {
				return nil
			}
			return s.SetDisplayName(*p.DisplayName)
		},
		func() error {
			if p.Email == nil {
				return nil
			}
			return s.SetEmail(*p.Email)
		},
		func() error {
			if p.Timezone == nil {
				return nil
			}
			return s.SetTimezone(*p.Timezone)
		},
		func() error {
			if p.EncryptionLevel == nil {
				return nil
			}
			return s.SetEncryptionLevel(*p.EncryptionLevel)
		},
		func() error {
			if p.SessionTimeout == nil {
				return nil
			}
			return s.SetSessionTimeout(*p.SessionTimeout)
		},
		func() error {
			if p.DefaultOrderSize == nil {
				return nil
			}
			return s.SetDefaultOrderSize(*p.DefaultOrderSize)
		},
		func() error {
			if p.SlippageTolerance == nil {
				return nil
			}
			return s.SetSlippageTolerance(*p.SlippageTolerance)
		},
		func() error {
			if p.DefaultWallet == nil {
				return nil
			}
			return s.SetDefaultWallet(*p.DefaultWallet)
		},
		func() error {
			if p.GasPreference == nil {
				return nil
			}
			return s.SetGasPreference(*p.GasPreference)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	if p.TwoFactorEnabled != nil {
		s.SetTwoFactorEnabled(*p.TwoFactorEnabled)
	}
	if p.AutoConfirm != nil {
		s.SetAutoConfirm(*p.AutoConfirm)
	}
	if p.TradeAlerts != nil {
		s.SetTradeAlerts(*p.TradeAlerts)
	}
	if p.PriceAlerts != nil {
		s.SetPriceAlerts(*p.PriceAlerts)
	}
	if p.SystemNotifications != nil {
		s.SetSystemNotifications(*p.SystemNotifications)
	}
	return nil
}
