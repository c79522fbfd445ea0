// service содержит бизнес-логику media-hub:
// жизненный цикл учётной записи и сессии (регистрация, вход, ротация
// refresh-токена, выход, смена пароля), проверку access-токена и
// агрегирующие запросы над подписками и историей просмотров.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования, если безопасны переданные хранилища;
//   - все ошибки бизнес-уровня имеют тип *Error с видом (ErrValidation,
//     ErrConflict, ErrNotFound, ErrAuth); транспорт маппит вид на HTTP-код;
//   - прочие ошибки (сбой БД, подписи) считаются внутренними.
package service

import (
	"github.com/pribylovaa/go-media-hub/internal/cache"
	"github.com/pribylovaa/go-media-hub/internal/config"
	"github.com/pribylovaa/go-media-hub/internal/storage"
)

// Service описывает бизнес-логику media-hub.
type Service struct {
	storage storage.Storage
	assets  storage.AssetStore
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, assets storage.AssetStore, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		assets:  assets,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
