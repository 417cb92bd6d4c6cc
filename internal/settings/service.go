package settings

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps field validation failures.
var ErrInvalid = errors.New("settings: invalid values")

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string { return "settings: invalid values" }

func (e FieldErrors) Unwrap() error { return ErrInvalid }

// Service reads and updates site settings.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Service{repo: repo, validate: v, logger: logger}
}

// Get returns the current settings.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	return s.repo.Load(ctx)
}

// Normalize trims input and strips a leading @ from the Instagram handle.
func Normalize(in Settings) Settings {
	in.ContactEmail = strings.ToLower(strings.TrimSpace(in.ContactEmail))
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	in.WhatsApp = strings.ReplaceAll(strings.TrimSpace(in.WhatsApp), " ", "")
	in.Address = strings.TrimSpace(in.Address)
	in.Instagram = strings.TrimPrefix(strings.TrimSpace(in.Instagram), "@")
	return in
}

// Update validates input and stores the keys that changed. It returns the
// changed keys; none means nothing was written.
func (s *Service) Update(ctx context.Context, actorID int64, in Settings) ([]string, error) {
	in = Normalize(in)
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields := FieldErrors{}
		for _, fe := range verrs {
			switch fe.Tag() {
			case "email":
				fields[fe.Field()] = "Format email tidak valid"
			case "e164":
				fields[fe.Field()] = "Gunakan format internasional, contoh +6281234567890"
			case "max":
				fields[fe.Field()] = "Maksimal " + fe.Param() + " karakter"
			default:
				fields[fe.Field()] = "Nilai tidak valid"
			}
		}
		return nil, fields
	}
	current, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	changed := Changed(current, in)
	if len(changed) == 0 {
		return nil, nil
	}
	if err := s.repo.Save(ctx, actorID, in, changed); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "site settings updated", slog.Int64("actor_id", actorID), slog.Any("keys", changed))
	return changed, nil
}
