package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "tickbol/internal/errors"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// Uppercase letters and digits keep codes readable over the phone.
const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const CodeLength = 8

// Generator mints verification codes, relying on the code store's
// uniqueness guarantee and retrying with a fresh draw on collision. With a
// 36^8 code space collisions are practically unreachable, but the retry
// budget keeps a pathological store from looping forever.
type Generator struct {
	codes       repository.CodeStore
	maxAttempts int
}

func New(codes repository.CodeStore, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Generator{codes: codes, maxAttempts: maxAttempts}
}

// Generate draws a random 8-character code, persists it scoped to codeType
// and bound to relatedID, and returns it. A nil expiresAt means the code
// never expires.
func (g *Generator) Generate(ctx context.Context, codeType string, relatedID uuid.UUID, expiresAt *time.Time) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("failed to draw random code: %w", err)
		}

		record := &models.VerificationCode{
			ID:        uuid.New(),
			Code:      code,
			Type:      codeType,
			RelatedID: relatedID,
			IsActive:  true,
			ExpiresAt: expiresAt,
		}

		err = g.codes.Insert(ctx, record)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, apperrors.ErrConflict) {
			continue
		}
		return "", fmt.Errorf("failed to persist code: %w", err)
	}

	return "", fmt.Errorf("no unique %s code after %d attempts: %w", codeType, g.maxAttempts, apperrors.ErrCodeExhausted)
}

func randomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	for i := range buf {
		buf[i] = charset[int(buf[i])%len(charset)]
	}
	return string(buf), nil
}
