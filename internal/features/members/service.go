// Package members — service.go даёт остальным модулям доступ к составу пулов.
package members

import (
	"context"
	"fmt"
)

// Store — операции с участниками, которые нужны сервису.
type Store interface {
	ListByPool(ctx context.Context, poolID string) ([]*PoolMember, error)
	IsMember(ctx context.Context, poolID, userID string) (bool, error)
}

// Service отвечает на вопросы «кто в пуле» и «состоит ли пользователь в пуле».
type Service struct {
	repo Store
}

// NewService создаёт новый сервис участников.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// UserIDs возвращает ID всех участников пула.
func (s *Service) UserIDs(ctx context.Context, poolID string) ([]string, error) {
	list, err := s.repo.ListByPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки участников пула %s: %w", poolID, err)
	}
	return UserIDs(list), nil
}

// IsMember проверяет, является ли пользователь участником пула.
func (s *Service) IsMember(ctx context.Context, poolID, userID string) (bool, error) {
	return s.repo.IsMember(ctx, poolID, userID)
}
