package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/daniil11ru/geotrack/cli/tracker/repository"
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Publisher получатель записанных отметок, например асинхронный репозиторий внешних хранилищ
type Publisher interface {
	Save(interface{ ToBytes() ([]byte, error) }) error
}

// TrackPosition приём GPS-отметок. Попадание в геозоны при записи не проверяется.
type TrackPosition struct {
	Samples   repository.Samples
	Publisher Publisher
}

func validateUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return types.NewValidationError("user_id", "обязательное поле")
	}
	return nil
}

func (s *TrackPosition) Run(ctx context.Context, tripID, userID uuid.UUID, sample types.GPSSample) (types.GPSSample, error) {
	if err := validateUser(userID); err != nil {
		return types.GPSSample{}, err
	}
	sample.TripID = tripID
	sample.UserID = userID
	if err := types.ValidateSample(sample); err != nil {
		return types.GPSSample{}, err
	}

	saved, err := s.Samples.AddSample(ctx, sample)
	if err != nil {
		return types.GPSSample{}, fmt.Errorf("не удалось сохранить отметку поездки %s: %w", tripID, err)
	}

	s.publish([]types.GPSSample{saved})
	return saved, nil
}

// RunBatch записывает пачку отметок целиком или не записывает ничего
func (s *TrackPosition) RunBatch(ctx context.Context, tripID, userID uuid.UUID, samples []types.GPSSample) ([]types.GPSSample, error) {
	if len(samples) < 1 || len(samples) > types.MaxBatchSize {
		return nil, types.NewValidationError("samples", "размер пачки должен быть в диапазоне [1; "+strconv.Itoa(types.MaxBatchSize)+"]")
	}
	if err := validateUser(userID); err != nil {
		return nil, err
	}

	batch := make([]types.GPSSample, len(samples))
	for i, sample := range samples {
		sample.TripID = tripID
		sample.UserID = userID
		if err := types.ValidateSample(sample); err != nil {
			var validationErr *types.ValidationError
			if errors.As(err, &validationErr) {
				return nil, types.NewValidationError(fmt.Sprintf("samples[%d].%s", i, validationErr.Field), validationErr.Reason)
			}
			return nil, err
		}
		batch[i] = sample
	}

	saved, err := s.Samples.AddSamples(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("не удалось сохранить пачку из %d отметок поездки %s: %w", len(batch), tripID, err)
	}

	s.publish(saved)
	return saved, nil
}

// CountDuplicateTimestamps информационная проверка повторов времени фиксации
func (s *TrackPosition) CountDuplicateTimestamps(ctx context.Context, tripID uuid.UUID) (int64, error) {
	return s.Samples.CountDuplicateTimestamps(ctx, tripID)
}

func (s *TrackPosition) publish(samples []types.GPSSample) {
	if s.Publisher == nil {
		return
	}

	for i := range samples {
		sample := samples[i]
		if err := s.Publisher.Save(&sample); err != nil {
			log.WithField("err", err).Warnf("Не удалось передать отметку %s во внешние хранилища", sample.ID)
		}
	}
}
