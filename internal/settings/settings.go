// Package settings manages the business profile shown on reports.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/aburayhan/cargo-erp/internal/persist"
)

// StoreKey is the local row holding the settings document.
const StoreKey = "settings"

// BusinessSettings names the business and its two profit-sharing partners.
type BusinessSettings struct {
	Name     string `json:"name" validate:"required,max=120"`
	LogoURL  string `json:"logoUrl,omitempty" validate:"omitempty,logo"`
	Partner1 string `json:"partner1" validate:"required,max=120"`
	Partner2 string `json:"partner2" validate:"required,max=120,nefield=Partner1"`
	Currency string `json:"currency" validate:"required,max=20"`
}

// Defaults are used until the operator saves their own profile.
type Defaults struct {
	Name     string
	Partner1 string
	Partner2 string
	Currency string
}

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("settings: invalid input")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	if err := v.RegisterValidation("logo", func(fl validator.FieldLevel) bool {
		return validLogo(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("settings: register logo validation: %v", err))
	}
	return v
}

// validLogo accepts inline data URIs and absolute http(s) URLs.
func validLogo(raw string) bool {
	if strings.HasPrefix(raw, "data:image/") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Validate checks the settings.
func (s BusinessSettings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "nefield":
			msgs = append(msgs, "partners must have different names")
		case "logo":
			msgs = append(msgs, "logoUrl must be an image data URI or http(s) URL")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Service holds the current settings and writes every change through to the
// store.
type Service struct {
	store    persist.StateStore
	logger   *slog.Logger
	defaults BusinessSettings

	mu      sync.RWMutex
	current BusinessSettings
}

// NewService builds the service with defaults applied.
func NewService(store persist.StateStore, defaults Defaults, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	d := BusinessSettings{
		Name:     defaults.Name,
		Partner1: defaults.Partner1,
		Partner2: defaults.Partner2,
		Currency: defaults.Currency,
	}
	return &Service{store: store, logger: logger, defaults: d, current: d}
}

// Load reads stored settings, keeping defaults when none are stored or the
// stored document is unreadable.
func (s *Service) Load(ctx context.Context) error {
	data, err := s.store.Load(ctx)
	if errors.Is(err, persist.ErrNoState) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("settings: load: %w", err)
	}
	loaded := s.defaults
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("discard unreadable settings", slog.Any("error", err))
		return nil
	}
	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

// Get returns the current settings.
func (s *Service) Get() BusinessSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and stores new settings.
func (s *Service) Update(ctx context.Context, in BusinessSettings) (BusinessSettings, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Partner1 = strings.TrimSpace(in.Partner1)
	in.Partner2 = strings.TrimSpace(in.Partner2)
	in.Currency = strings.TrimSpace(in.Currency)
	if in.Currency == "" {
		in.Currency = s.defaults.Currency
	}
	if err := in.Validate(); err != nil {
		return BusinessSettings{}, err
	}
	data, err := json.Marshal(in)
	if err != nil {
		return BusinessSettings{}, fmt.Errorf("settings: encode: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, data); err != nil {
		return BusinessSettings{}, fmt.Errorf("settings: save: %w", err)
	}
	s.current = in
	return in, nil
}
