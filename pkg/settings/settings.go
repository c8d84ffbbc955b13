// Package settings holds the desk's user preferences as an explicit typed
// record. Every option has its own setter; there is no string-keyed update.
package settings

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var ErrInvalidValue = errors.New("invalid setting value")

type Timezone string

const (
	UTC Timezone = "UTC"
	EST Timezone = "EST"
	PST Timezone = "PST"
	CST Timezone = "CST"
	JST Timezone = "JST"
)

type EncryptionLevel string

const (
	AES128   EncryptionLevel = "AES-128"
	AES256   EncryptionLevel = "AES-256"
	ChaCha20 EncryptionLevel = "ChaCha20"
)

type WalletKind string

const (
	MetaMask      WalletKind = "MetaMask"
	WalletConnect WalletKind = "WalletConnect"
	Coinbase      WalletKind = "Coinbase"
	Ledger        WalletKind = "Ledger"
)

type GasPreference string

const (
	GasSlow     GasPreference = "slow"
	GasStandard GasPreference = "standard"
	GasFast     GasPreference = "fast"
)

// GasMultiplier returns the gas price scaling as num/den.
func (g GasPreference) GasMultiplier() (num, den int64) {
	switch g {
	case GasSlow:
		return 9, 10
	case GasFast:
		return 5, 4
	default:
		return 1, 1
	}
}

var (
	timezones   = []Timezone{UTC, EST, PST, CST, JST}
	encryptions = []EncryptionLevel{AES128, AES256, ChaCha20}
	wallets     = []WalletKind{MetaMask, WalletConnect, Coinbase, Ledger}
	gasPrefs    = []GasPreference{GasSlow, GasStandard, GasFast}
)

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if a == v {
			return true
		}
	}
	return false
}

type Settings struct {
	// account
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email"`
	Timezone    Timezone `json:"timezone"`

	// security
	TwoFactorEnabled bool            `json:"twoFactorEnabled"`
	EncryptionLevel  EncryptionLevel `json:"encryptionLevel"`
	SessionTimeout   int             `json:"sessionTimeout"` // minutes

	// trading
	DefaultOrderSize  decimal.Decimal `json:"defaultOrderSize"`  // USD
	SlippageTolerance decimal.Decimal `json:"slippageTolerance"` // percent
	AutoConfirm       bool            `json:"autoConfirm"`

	// notifications
	TradeAlerts         bool `json:"tradeAlerts"`
	PriceAlerts         bool `json:"priceAlerts"`
	SystemNotifications bool `json:"systemNotifications"`

	// wallet
	DefaultWallet WalletKind    `json:"defaultWallet"`
	GasPreference GasPreference `json:"gasPreference"`
}

func Default() Settings {
	return Settings{
		DisplayName:         "Institution_Alpha",
		Email:               "trading@institution.com",
		Timezone:            UTC,
		TwoFactorEnabled:    true,
		EncryptionLevel:     AES256,
		SessionTimeout:      30,
		DefaultOrderSize:    decimal.NewFromInt(1_000_000),
		SlippageTolerance:   decimal.RequireFromString("0.5"),
		AutoConfirm:         false,
		TradeAlerts:         true,
		PriceAlerts:         true,
		SystemNotifications: true,
		DefaultWallet:       MetaMask,
		GasPreference:       GasStandard,
	}
}

func invalid(field string, v any) error {
	return fmt.Errorf("%s %v: %w", field, v, ErrInvalidValue)
}

func (s *Settings) SetDisplayName(v string) error {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > 64 {
		return invalid("displayName", v)
	}
	s.DisplayName = v
	return nil
}

func (s *Settings) SetEmail(v string) error {
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != strings.TrimSpace(v) {
		return invalid("email", v)
	}
	s.Email = addr.Address
	return nil
}

func (s *Settings) SetTimezone(v Timezone) error {
	if !oneOf(v, timezones) {
		return invalid("timezone", v)
	}
	s.Timezone = v
	return nil
}

func (s *Settings) SetTwoFactorEnabled(v bool) { s.TwoFactorEnabled = v }

func (s *Settings) SetEncryptionLevel(v EncryptionLevel) error {
	if !oneOf(v, encryptions) {
		return invalid("encryptionLevel", v)
	}
	s.EncryptionLevel = v
	return nil
}

// SetSessionTimeout takes minutes, 1 to 1440.
func (s *Settings) SetSessionTimeout(minutes int) error {
	if minutes < 1 || minutes > 1440 {
		return invalid("sessionTimeout", minutes)
	}
	s.SessionTimeout = minutes
	return nil
}

func (s *Settings) SetDefaultOrderSize(v decimal.Decimal) error {
	if v.Sign() <= 0 {
		return invalid("defaultOrderSize", v)
	}
	s.DefaultOrderSize = v
	return nil
}

// SetSlippageTolerance takes a percentage in [0, 50].
func (s *Settings) SetSlippageTolerance(v decimal.Decimal) error {
	if v.Sign() < 0 || v.GreaterThan(decimal.NewFromInt(50)) {
		return invalid("slippageTolerance", v)
	}
	s.SlippageTolerance = v
	return nil
}

func (s *Settings) SetAutoConfirm(v bool)         { s.AutoConfirm = v }
func (s *Settings) SetTradeAlerts(v bool)         { s.TradeAlerts = v }
func (s *Settings) SetPriceAlerts(v bool)         { s.PriceAlerts = v }
func (s *Settings) SetSystemNotifications(v bool) { s.SystemNotifications = v }

func (s *Settings) SetDefaultWallet(v WalletKind) error {
	if !oneOf(v, wallets) {
		return invalid("defaultWallet", v)
	}
	s.DefaultWallet = v
	return nil
}

func (s *Settings) SetGasPreference(v GasPreference) error {
	if !oneOf(v, gasPrefs) {
		return invalid("gasPreference", v)
	}
	s.GasPreference = v
	return nil
}

// Store guards the live settings record.
type Store struct {
	mu sync.RWMutex
	s  Settings
}

func NewStore() *Store {
	return &Store{s: Default()}
}

func (st *Store) Snapshot() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

// Update runs fn on a copy and commits it only if fn succeeds, so a patch
// touching several options is all-or-nothing.
func (st *Store) Update(fn func(*Settings) error) (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	next := st.s
	if err := fn(&next); err != nil {
		return st.s, err
	}
	st.s = next
	return next, nil
}

func (st *Store) Reset() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = Default()
	return st.s
}

func (st *Store) GasPreference() GasPreference { return st.Snapshot().GasPreference }

func (st *Store) TradeAlerts() bool { return st.Snapshot().TradeAlerts }
